// Package design implements the design agent. It collects the cut details,
// drives the mood-board loop (generate, present, revise, at most seven
// rounds), secures the email for the CRM lead and hands the validated
// construction payload to the measurement phase.
package design

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	"github.com/laserhenk/henk-agent/agent/llm"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

// designLLMOutput is the JSON shape the design model must return. The patch
// carries only fields the user just decided; "unknown" marks an explicit
// "entscheide du" and is never stored.
type designLLMOutput struct {
	Message            string             `json:"message"`
	Patch              statex.DesignPatch `json:"patch"`
	GenerateMoodBoard  bool               `json:"generate_mood_board,omitempty"`
	RequestMeasurement bool               `json:"request_measurement,omitempty"`
}

type Agent struct {
	runner compose.Runnable[map[string]any, designLLMOutput]
	system string
}

// New builds the design agent. A nil chat model is valid: scripted questions
// and the keyword patch extraction carry the flow on their own.
func New(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*Agent, error) {
	a := &Agent{system: systemPrompt}
	if chatModel == nil {
		return a, nil
	}
	runner, err := llm.CompileStructuredGraph[designLLMOutput](ctx, chatModel, "design_agent")
	if err != nil {
		return nil, fmt.Errorf("design agent: %w", err)
	}
	a.runner = runner
	return a, nil
}

func (a *Agent) Name() contractx.AgentName { return contractx.AgentDesign }

// capMessage closes the revision loop once the iteration cap is reached.
const capMessage = "Ich verstehe, dass das Moodbild noch nicht perfekt ist. " +
	"Wir haben das Maximum an Iterationen erreicht, aber keine Sorge - " +
	"beim persönlichen Termin können wir alle Details noch genau besprechen!\n\n" +
	"Lass uns jetzt mit der Terminvereinbarung fortfahren."

const offlineDesignQuestion = "Lass uns über die Design-Details deines Anzugs sprechen! " +
	"Magst du ein Spitzrevers, ein steigendes Revers oder einen Schalkragen? " +
	"Und wie kräftig dürfen die Schulterpolster sein - keine, leicht, mittel oder stark?"

// Process handles one step. Before the approval the agent lives in the
// mood-board loop; afterwards it secures email and CRM lead and finally
// hands over to the measurement phase.
func (a *Agent) Process(ctx context.Context, session *statex.SessionState) (contractx.Decision, error) {
	if session.Image.Status != statex.MoodBoardApproved {
		return a.moodLoop(ctx, session), nil
	}

	prefs := &session.DesignPreferences
	if prefs.ApprovedImageURL == "" {
		prefs.ApprovedImageURL = session.Image.CurrentURL
	}

	if session.Customer.CRMLeadID == "" {
		if session.Customer.Email == "" {
			return stayDesign("Mega, dass dir das Moodbild gefällt! Damit ich alles für deinen Termin vorbereiten kann: Wie lautet deine E-Mail-Adresse?"), nil
		}
		return contractx.Decision{
			NextDestination: string(contractx.AgentDesign),
			Message:         "Perfekt! Ich sichere jetzt deine Daten und bereite die Terminvereinbarung vor...",
			Action:          contractx.ToolCRMLead,
			ShouldContinue:  true,
		}, nil
	}

	return completeDesign(session), nil
}

// moodLoop runs until the customer approves an image or the revision cap
// locks the latest one in.
func (a *Agent) moodLoop(ctx context.Context, session *statex.SessionState) contractx.Decision {
	input := strings.TrimSpace(session.UserInput)

	// Revision cap: the newest image becomes final, open wishes move to the
	// in-person appointment.
	if session.Image.CurrentURL != "" && session.Image.Iterations >= statex.MoodBoardMaxIterations {
		session.Image.Approve()
		session.Image.Feedback = ""
		return stayDesign(capMessage)
	}

	// A routed revision note: fold it into the preferences, then regenerate.
	// The note survives a failed generation and is retried next turn.
	if fb := session.Image.Feedback; fb != "" {
		a.applyPatch(ctx, session, fb)
		return generateDecision(session)
	}

	// An image is on the table, waiting for a verdict.
	if session.Image.CurrentURL != "" {
		return stayDesign(presentationMessage(session))
	}

	// No image yet: one round of cut questions, then the house line fills
	// what is still open and the first board goes out.
	var out designLLMOutput
	if input != "" {
		out = a.applyPatch(ctx, session, input)
	}
	if !coreChoicesSet(session.DesignPreferences) && !out.GenerateMoodBoard {
		question := out.Message
		if question == "" {
			question = offlineDesignQuestion
		}
		applyHouseLine(&session.DesignPreferences)
		return stayDesign(question)
	}
	applyHouseLine(&session.DesignPreferences)
	return generateDecision(session)
}

// applyPatch merges the keyword read and, when a model is configured, the
// structured extraction from text into the preferences. The keyword pass
// runs first so the flow works identically offline.
func (a *Agent) applyPatch(ctx context.Context, session *statex.SessionState, text string) designLLMOutput {
	lower := strings.ToLower(text)
	session.DesignPreferences.Apply(extractPatch(lower))
	if code := mentionedShownCode(lower, session.Fabric.Shown); code != "" {
		session.DesignPreferences.RequestedFabricCode = code
	}
	out := a.converse(ctx, session, text)
	normalizePatch(&out.Patch)
	session.DesignPreferences.Apply(out.Patch)
	switchRequestedFabric(session)
	return out
}

// converse is total: without a model or on failure the zero output comes
// back and the keyword patch stays the only extraction.
func (a *Agent) converse(ctx context.Context, session *statex.SessionState, input string) designLLMOutput {
	if a.runner == nil {
		return designLLMOutput{}
	}
	out, err := a.runner.Invoke(ctx, map[string]any{
		"system":  a.system,
		"history": llm.HistoryMessages(historyForModel(session, input)),
		"input":   input,
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", session.SessionID).Msg("design model failed, using scripted reply")
		return designLLMOutput{}
	}
	return out
}

// historyForModel drops the trailing user turn when it duplicates the input
// the template appends itself.
func historyForModel(session *statex.SessionState, input string) []statex.Turn {
	turns := session.RecentHistory(10)
	if n := len(turns); n > 0 && turns[n-1].Role == statex.RoleUser && turns[n-1].Content == input {
		turns = turns[:n-1]
	}
	return turns
}

// coreChoicesSet reports whether the two choices every mood board needs are
// decided.
func coreChoicesSet(d statex.DesignPreferences) bool {
	return d.LapelStyle != "" && d.ShoulderPadding != ""
}

// applyHouseLine fills the open core choices with the house cut. One round
// of questions is enough; everything else gets corrected on the image.
func applyHouseLine(d *statex.DesignPreferences) {
	if d.LapelStyle == "" {
		d.LapelStyle = "peak"
	}
	if d.ShoulderPadding == "" {
		d.ShoulderPadding = "medium"
	}
	if d.TrouserFront == "" {
		d.TrouserFront = "pleats"
	}
}

// generateDecision triggers the mood-board tool and returns control here
// afterwards for the presentation.
func generateDecision(session *statex.SessionState) contractx.Decision {
	msg := "Generiere dein Outfit-Moodbild..."
	if n := session.Image.Iterations + 1; n > 1 {
		msg = fmt.Sprintf("Generiere dein Outfit-Moodbild (Iteration %d/%d)...", n, statex.MoodBoardMaxIterations)
	}
	return contractx.Decision{
		NextDestination: string(contractx.AgentDesign),
		Message:         msg,
		Action:          contractx.ToolMoodBoard,
		ShouldContinue:  true,
	}
}

// presentationMessage presents the freshly generated board and asks for a
// verdict, naming the remaining revision rounds.
func presentationMessage(session *statex.SessionState) string {
	var b strings.Builder
	b.WriteString("So stelle ich mir deinen Anzug vor")
	if fab := presentationFabric(session); fab != nil && fab.Name != "" {
		if fab.Color != "" {
			fmt.Fprintf(&b, ": %s in %s", fab.Name, fab.Color)
		} else {
			b.WriteString(": " + fab.Name)
		}
	}
	if kws := styleKeywords(session); len(kws) > 0 {
		b.WriteString(", Richtung " + strings.Join(kws, ", "))
	}
	b.WriteString(". Wie gefällt dir das? Sag mir, was ich anpassen soll")
	if left := statex.MoodBoardMaxIterations - session.Image.Iterations; left > 0 {
		fmt.Fprintf(&b, " (bis zu %d Runden sind noch drin)", left)
	}
	b.WriteString(" - oder gib dein Go!")
	return b.String()
}

// presentationFabric picks the fabric the image is based on: the favorite,
// otherwise the first shown, otherwise the first catalog hit.
func presentationFabric(session *statex.SessionState) *statex.Fabric {
	if f := session.Fabric.Favorite; f != nil {
		return f
	}
	if len(session.Fabric.Shown) > 0 {
		return &session.Fabric.Shown[0]
	}
	if len(session.Fabric.RAGContext) > 0 {
		return &session.Fabric.RAGContext[0]
	}
	return nil
}

// styleKeywords names the direction of the board: the handoff style plus a
// cut word derived from the lapel choice.
func styleKeywords(session *statex.SessionState) []string {
	var kws []string
	if h := session.Handoffs.Design; h != nil && h.Style != "" {
		kws = append(kws, strings.ReplaceAll(h.Style, "_", " "))
	}
	switch session.DesignPreferences.LapelStyle {
	case "peak":
		kws = append(kws, "klassisch")
	case "notch", "shawl":
		kws = append(kws, "modern")
	}
	if len(kws) == 0 {
		kws = []string{"elegant", "maßgeschneidert"}
	}
	return kws
}

// completeDesign wraps the phase up: the construction payload goes through
// the validated handoff and the measurement agent takes over immediately.
func completeDesign(session *statex.SessionState) contractx.Decision {
	return contractx.Decision{
		NextDestination: string(contractx.AgentMeasurement),
		Message:         "Wunderbar, dein Design steht! Als Nächstes bringen wir deine Maße auf den Punkt.",
		Action:          contractx.ActionHandoff,
		ActionParams: map[string]any{
			"target_agent": statex.HandoffMeasurement,
			"payload":      measurementPayload(session),
		},
		ShouldContinue: true,
	}
}

func stayDesign(message string) contractx.Decision {
	return contractx.Decision{
		NextDestination: string(contractx.AgentDesign),
		Message:         message,
	}
}
