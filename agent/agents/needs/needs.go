// Package needs implements the needs-assessment agent. It collects occasion,
// timing, colors and contact details, steers the customer through the fabric
// pair choice and hands a validated payload to the design phase. All scripted
// replies work without a model backend; the model only makes the small talk
// better and the extraction sharper.
package needs

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

// needsLLMOutput is the JSON shape the conversational model must return.
// Every field except Message is an extraction and may be absent.
type needsLLMOutput struct {
	Message         string   `json:"message"`
	Occasion        string   `json:"occasion,omitempty"`
	EventDate       string   `json:"event_date,omitempty"`
	TimingHint      string   `json:"timing_hint,omitempty"`
	Style           string   `json:"style,omitempty"`
	Colors          []string `json:"colors,omitempty"`
	Patterns        []string `json:"patterns,omitempty"`
	BudgetMin       float64  `json:"budget_min,omitempty"`
	BudgetMax       float64  `json:"budget_max,omitempty"`
	WantsVest       *bool    `json:"wants_vest,omitempty"`
	ContactRequest  bool     `json:"contact_request,omitempty"`
	ReadyForFabrics bool     `json:"ready_for_fabrics,omitempty"`
}

type Agent struct {
	runner compose.Runnable[map[string]any, needsLLMOutput]
	system string
}

// New builds the needs-assessment agent. A nil chat model is valid: the agent
// then runs purely on scripted replies and keyword extraction.
func New(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*Agent, error) {
	a := &Agent{system: systemPrompt}
	if chatModel == nil {
		return a, nil
	}
	runner, err := llm.CompileStructuredGraph[needsLLMOutput](ctx, chatModel, "needs_agent")
	if err != nil {
		return nil, fmt.Errorf("needs agent: %w", err)
	}
	a.runner = runner
	return a, nil
}

func (a *Agent) Name() contractx.AgentName { return contractx.AgentNeedsAssessment }

// Process handles one step. The deterministic detections (suit cut, contact,
// fabric choice) run before any model call so they work identically offline.
func (a *Agent) Process(ctx context.Context, session *statex.SessionState) (contractx.Decision, error) {
	input := strings.TrimSpace(session.UserInput)
	lower := strings.ToLower(input)

	// Re-entry after a tool run: the fabric presentation speaks for itself.
	if input == "" {
		return stay(""), nil
	}

	suitUpdated := applySuitChoice(session, lower)
	captureContact(session, input)
	if isContactDecline(lower) && session.Progress.Contact != statex.ContactProvided {
		session.Progress.Contact = statex.ContactDeclined
	}

	// A pick among the fabrics already on the table short-circuits the
	// conversation.
	if session.Fabric.Favorite == nil && len(session.Fabric.Shown) > 0 && !isNewFabricSearch(lower) {
		if idx := detectFabricChoice(lower, session.Fabric.Shown); idx >= 0 {
			fab := session.Fabric.Shown[idx]
			session.Fabric.Favorite = &fab
			session.DesignPreferences.RequestedFabricCode = ""
			if session.Progress.CutConfirmed {
				return toDesign("Super, Stoff notiert. Lass uns direkt Passform & Revers klären – lieber schlank oder klassisch geschnitten?", false), nil
			}
			return stay("Super, ich notiere den Stoff. Soll es ein 2- oder 3-Teiler werden? Weste ja/nein?"), nil
		}
	}

	// With a favorite locked in, the cut is the only thing still blocking the
	// design phase.
	if session.Fabric.Favorite != nil {
		return a.cutStep(session, suitUpdated), nil
	}

	snap := analyzeConversation(session)
	applySnapshot(session, snap)
	out := a.converse(ctx, session, input)
	mergeModelOutput(session, &snap, out)

	reply := out.Message
	gaps := collectGaps(session)
	fabricsShown := len(session.Fabric.Shown) > 0 || session.Fabric.Search.Shown()
	newSearch := isNewFabricSearch(lower)
	wantsF := out.ReadyForFabrics || wantsFabrics(lower)

	if fabricsShown && !newSearch {
		return stay(reply + "\n\nIch habe dir gerade passende Stoffideen geschickt – sag kurz, was dir davon gefällt oder welche Farbe du lieber hättest."), nil
	}

	// Everything required is on file and no fabric was ever shown: move the
	// fabrics forward even without an explicit ask.
	if !wantsF && len(gaps) == 0 && !fabricsShown {
		wantsF = true
	}

	if (wantsF || newSearch) && len(gaps) == 0 {
		persistDesignHandoff(session, snap)
		return contractx.Decision{
			NextDestination: string(contractx.AgentNeedsAssessment),
			Message:         reply,
			Action:          contractx.ToolFabricSearch,
			ActionParams:    searchParams(session, snap),
			ShouldContinue:  true,
		}, nil
	}

	if wantsF && len(gaps) > 0 {
		return stay(reply + "\n\nBevor ich dir Stoffe zeige, sag mir bitte noch: " + strings.Join(gaps, ", ")), nil
	}

	if shouldRequestContact(session) {
		session.Progress.Contact = statex.ContactRequested
		return stay(reply + "\n\nDamit ich dir direkt Stoffvorschläge schicken kann: Welche Email und ggf. WhatsApp-/Telefonnummer passt für dich?"), nil
	}

	return stay(reply), nil
}

/* ------------------------------ cut collection ----------------------------- */

// cutStep runs once a favorite fabric exists: confirm 2/3-Teiler and vest,
// then forward to design.
func (a *Agent) cutStep(session *statex.SessionState, suitUpdated bool) contractx.Decision {
	if suitUpdated {
		if session.Progress.CutConfirmed {
			return toDesign("Perfekt, ich notiere: "+cutSummary(session)+". Lass uns noch Passform & Revers festlegen – eher schlank oder klassisch?", false)
		}
		acks, missing := cutAcks(session)
		if len(missing) > 0 {
			return stay("Notiert: " + acks + ". Sag mir noch: " + strings.Join(missing, " und ") + ".")
		}
		return toDesign("Notiert: "+acks+". Lass uns Passform & Revers klären – schlank oder klassisch?", false)
	}

	if session.Progress.CutConfirmed {
		// Needs assessment is done; the design agent takes over within the
		// same turn.
		return toDesign("Perfekt! Lass uns jetzt über Schnitt und Details sprechen...", true)
	}

	if strings.Contains(session.LastAssistantReply(), "Teiler") {
		return stay("Sag mir kurz, ob du einen 2- oder 3-Teiler willst und ob eine Weste dabei sein soll.")
	}
	return stay("Alles klar, lass uns jetzt den Schnitt klären. Lieber 2- oder 3-Teiler? Brauchst du eine Weste?")
}

func cutSummary(session *statex.SessionState) string {
	label := "2-Teiler"
	if session.Progress.SuitPieces == "three_piece" {
		label = "3-Teiler"
	}
	if v := session.DesignPreferences.WantsVest; v != nil {
		if *v {
			label += " mit Weste"
		} else {
			label += " ohne Weste"
		}
	}
	return label
}

func cutAcks(session *statex.SessionState) (string, []string) {
	var acks []string
	var missing []string
	switch session.Progress.SuitPieces {
	case "two_piece":
		acks = append(acks, "2-Teiler")
	case "three_piece":
		acks = append(acks, "3-Teiler")
	default:
		missing = append(missing, "2- oder 3-Teiler")
	}
	if v := session.DesignPreferences.WantsVest; v != nil {
		if *v {
			acks = append(acks, "mit Weste")
		} else {
			acks = append(acks, "ohne Weste")
		}
	} else {
		missing = append(missing, "Weste ja/nein")
	}
	return strings.Join(acks, ", "), missing
}

/* ---------------------------- conversational step --------------------------- */

// converse is total: a missing or failing model degrades into the scripted
// reply and the keyword extraction stays the only extraction.
func (a *Agent) converse(ctx context.Context, session *statex.SessionState, input string) needsLLMOutput {
	if a.runner == nil {
		return needsLLMOutput{Message: offlineReply(session)}
	}
	out, err := a.runner.Invoke(ctx, map[string]any{
		"system":  a.system,
		"history": llm.HistoryMessages(historyForModel(session, input)),
		"input":   input,
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", session.SessionID).Msg("needs model failed, using scripted reply")
		return needsLLMOutput{Message: offlineReply(session)}
	}
	if strings.TrimSpace(out.Message) == "" {
		out.Message = offlineReply(session)
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

func offlineReply(session *statex.SessionState) string {
	if session.Customer.Occasion != "" {
		return "Top, das habe ich notiert! Welche Farbe(n) gefallen dir? Und bis wann brauchst du den Anzug?"
	}
	return "Alles klar, ich helfe dir gern! Wofür brauchst du den Anzug (z.B. Hochzeit, Business)? Welche Farben magst du? Bis wann soll er fertig sein?"
}

// applySnapshot persists what the keyword pass read out of the conversation.
// Existing values always win; extraction never overwrites.
func applySnapshot(session *statex.SessionState, snap snapshot) {
	if session.Customer.Occasion == "" && snap.Occasion != "" {
		session.Customer.Occasion = snap.Occasion
	}
	if session.Customer.TimingHint == "" && snap.TimingHint != "" {
		session.Customer.TimingHint = snap.TimingHint
	}
	for _, c := range snap.Colors {
		session.DesignPreferences.PreferredColors = appendUnique(session.DesignPreferences.PreferredColors, c)
	}
}

// mergeModelOutput folds the model extraction into the session and enriches
// the snapshot for the handoff payload.
func mergeModelOutput(session *statex.SessionState, snap *snapshot, out needsLLMOutput) {
	if occ := strings.ToLower(strings.TrimSpace(out.Occasion)); occ != "" && session.Customer.Occasion == "" {
		session.Customer.Occasion = occ
	}
	if date := strings.TrimSpace(out.EventDate); date != "" && session.Customer.EventDate == "" {
		session.Customer.EventDate = date
	}
	if hint := strings.TrimSpace(out.TimingHint); hint != "" && session.Customer.TimingHint == "" {
		session.Customer.TimingHint = hint
	}
	for _, c := range out.Colors {
		session.DesignPreferences.PreferredColors = appendUnique(session.DesignPreferences.PreferredColors, normalizeColor(c))
	}
	for _, p := range out.Patterns {
		if mapped := extractPatterns(strings.ToLower(p)); len(mapped) > 0 {
			snap.Patterns = appendUnique(snap.Patterns, mapped[0])
		}
	}
	if style := strings.ToLower(strings.TrimSpace(out.Style)); style != "" {
		snap.Styles = appendUnique(snap.Styles, style)
	}
	if out.BudgetMax > 0 {
		snap.BudgetEUR = out.BudgetMax
	} else if out.BudgetMin > 0 {
		snap.BudgetEUR = out.BudgetMin
	}
	if out.WantsVest != nil && session.DesignPreferences.WantsVest == nil {
		v := *out.WantsVest
		session.DesignPreferences.WantsVest = &v
	}
	if session.Progress.SuitPieces != "" && session.DesignPreferences.WantsVest != nil {
		session.Progress.CutConfirmed = true
	}
	if out.ContactRequest {
		switch session.Progress.Contact {
		case statex.ContactDeclined, statex.ContactProvided:
		default:
			session.Progress.Contact = statex.ContactRequested
		}
	}
}

// normalizeColor maps a model-emitted color word onto the catalog vocabulary,
// keeping the raw word when no mapping exists.
func normalizeColor(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if mapped := extractColors(lower); len(mapped) > 0 {
		return mapped[0]
	}
	return lower
}

// collectGaps lists what must still be asked before fabrics may be shown.
// Only the color wish is blocking; occasion and timing are collected
// conversationally but never hold the fabrics back.
func collectGaps(session *statex.SessionState) []string {
	if len(session.DesignPreferences.PreferredColors) == 0 {
		return []string{"welche Farbe(n) du willst"}
	}
	return nil
}

// shouldRequestContact fires once per session: fabric interest somewhere in
// the conversation, enough turns to not feel pushy, and no contact data yet.
func shouldRequestContact(session *statex.SessionState) bool {
	if session.Customer.Email != "" || session.Customer.Phone != "" {
		return false
	}
	switch session.Progress.Contact {
	case statex.ContactDeclined, statex.ContactRequested, statex.ContactProvided:
		return false
	}
	return wantsFabrics(conversationText(session)) && len(session.RecentHistory(20)) >= 4
}

/* ------------------------------ handoff + search ---------------------------- */

// persistDesignHandoff stores the design payload once budget, colors,
// patterns and occasion are all known. An incomplete picture is not an
// error; the next turn tries again.
func persistDesignHandoff(session *statex.SessionState, snap snapshot) {
	occ := session.Customer.Occasion
	colors := session.DesignPreferences.PreferredColors
	if snap.BudgetEUR <= 0 || occ == "" || len(colors) == 0 || len(snap.Patterns) == 0 {
		return
	}

	style := "business"
	for _, s := range snap.Styles {
		if s == "casual" {
			style = "smart_casual"
			break
		}
	}

	payload := statex.DesignHandoff{
		BudgetMin:     snap.BudgetEUR,
		BudgetMax:     snap.BudgetEUR,
		Style:         style,
		Occasion:      handoffOccasion(occ),
		Patterns:      snap.Patterns,
		Colors:        colors,
		Season:        seasonFromHint(session.Customer.TimingHint),
		CustomerNotes: session.DesignPreferences.Notes,
	}
	if prev := session.Handoffs.Design; prev != nil {
		payload.FabricReferences = prev.FabricReferences
		payload.PreferredTier = prev.PreferredTier
	}
	if err := session.SetDesignHandoff(payload); err != nil {
		log.Debug().Err(err).Str("session_id", session.SessionID).Msg("design handoff not ready yet")
	}
}

func handoffOccasion(label string) string {
	switch label {
	case "hochzeit":
		return "wedding"
	case "business", "formal":
		return "business_meeting"
	case "gala":
		return "gala"
	case "party", "feier":
		return "party"
	case "alltag", "casual", "everyday":
		return "everyday"
	default:
		return "other"
	}
}

func seasonFromHint(hint string) string {
	lower := strings.ToLower(hint)
	for _, s := range []string{"sommer", "winter", "frühjahr", "herbst", "frühling"} {
		if strings.Contains(lower, s) {
			return s
		}
	}
	return ""
}

func searchParams(session *statex.SessionState, snap snapshot) map[string]any {
	colors := session.DesignPreferences.PreferredColors
	parts := make([]string, 0, len(colors)+len(snap.Patterns)+2)
	if occ := session.Customer.Occasion; occ != "" {
		parts = append(parts, occ)
	}
	parts = append(parts, colors...)
	parts = append(parts, snap.Patterns...)
	parts = append(parts, "anzug stoff")
	return map[string]any{
		"query":    strings.Join(parts, " "),
		"colors":   colors,
		"patterns": snap.Patterns,
	}
}

/* -------------------------------- decisions -------------------------------- */

func stay(message string) contractx.Decision {
	return contractx.Decision{
		NextDestination: string(contractx.AgentNeedsAssessment),
		Message:         message,
	}
}

func toDesign(message string, continueNow bool) contractx.Decision {
	return contractx.Decision{
		NextDestination: string(contractx.AgentDesign),
		Message:         message,
		ShouldContinue:  continueNow,
	}
}
