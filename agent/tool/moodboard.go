package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

// MoodBoard generates the visualization image for the current design state.
// Without a generator it serves a deterministic placeholder URL so the
// approval loop still runs offline. A failed generation returns the error
// untouched: the session must not record an iteration that produced nothing.
type MoodBoard struct {
	images ImageGenerator
	now    func() time.Time
}

func NewMoodBoard(images ImageGenerator, now func() time.Time) *MoodBoard {
	return &MoodBoard{images: images, now: now}
}

func (t *MoodBoard) Name() string { return contractx.ToolMoodBoard }

func (t *MoodBoard) Run(ctx context.Context, params map[string]any, session *statex.SessionState) (contractx.ToolOutput, error) {
	feedback := stringParam(params, "feedback")
	if feedback == "" {
		feedback = session.Image.Feedback
	}

	prompt := stringParam(params, "prompt")
	if prompt == "" {
		prompt = buildMoodPrompt(session, feedback)
	}

	var url string
	if t.images == nil {
		url = fmt.Sprintf("https://images.laserhenk.example/mood/%s/%d.png", session.SessionID, session.Image.Iterations+1)
	} else {
		generated, err := t.images.Generate(ctx, prompt)
		if err != nil {
			return contractx.ToolOutput{}, fmt.Errorf("mood board generation: %w", err)
		}
		url = generated
	}

	session.Image.RecordGenerated(url, "mood_board", t.now())

	return contractx.ToolOutput{
		Text:     "Hier ist dein Mood Board!",
		Metadata: map[string]any{"image_url": url},
	}, nil
}

func buildMoodPrompt(session *statex.SessionState, feedback string) string {
	parts := []string{"Elegantes Mood Board für einen maßgeschneiderten Herrenanzug"}

	if fav := session.Fabric.Favorite; fav != nil {
		parts = append(parts, fmt.Sprintf("Stoff: %s, Farbe %s, Muster %s", fav.Name, fav.Color, fav.Pattern))
	}
	prefs := session.DesignPreferences
	for _, p := range []struct {
		label string
		value string
	}{
		{"Revers", prefs.LapelStyle},
		{"Schulter", prefs.ShoulderPadding},
		{"Innenfutter", prefs.InnerLining},
		{"Futterfarbe", prefs.LiningColor},
		{"Taschen", prefs.PocketStyle},
		{"Knöpfe", prefs.ButtonStyle},
	} {
		if p.value != "" && p.value != statex.Unknown {
			parts = append(parts, p.label+": "+p.value)
		}
	}
	if occ := session.Customer.Occasion; occ != "" {
		parts = append(parts, "Anlass: "+occ)
	}
	if feedback != "" {
		parts = append(parts, "Anpassungswunsch: "+feedback)
	}
	return strings.Join(parts, ". ")
}
