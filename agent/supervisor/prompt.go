package supervisor

import (
	"fmt"
	"strings"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

// historyWindow bounds how many prior turns the routing model sees.
const historyWindow = 20

func normalizeHistory(session *statex.SessionState) []contractx.HistoryMessage {
	turns := session.RecentHistory(historyWindow)
	history := make([]contractx.HistoryMessage, 0, len(turns))
	for _, t := range turns {
		history = append(history, contractx.HistoryMessage{Role: t.Role, Content: t.Content})
	}
	return history
}

// buildSystemPrompt appends the live session context to the static routing
// prompt so the model decides with the same facts the assessor computed.
func buildSystemPrompt(base string, session *statex.SessionState, assessment contractx.PhaseAssessment) string {
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\n## Aktueller Kontext\n")
	fmt.Fprintf(&b, "- Empfohlene Phase: %s\n", assessment.RecommendedPhase)

	missing := "keine"
	if len(assessment.MissingFields) > 0 {
		missing = strings.Join(assessment.MissingFields, ", ")
	}
	fmt.Fprintf(&b, "- Fehlende Felder: %s\n", missing)

	entries := collectedData(session)
	if len(entries) == 0 {
		b.WriteString("- Erfasste Kundendaten: keine\n")
	} else {
		b.WriteString("- Erfasste Kundendaten:\n")
		for _, e := range entries {
			fmt.Fprintf(&b, "  - %s: %s\n", e.label, e.value)
		}
	}

	fmt.Fprintf(&b, "- Datenvollständigkeit: %s\n", completenessLabel(len(entries)+setDesignFields(session)))
	return b.String()
}

type contextEntry struct {
	label string
	value string
}

func collectedData(session *statex.SessionState) []contextEntry {
	candidates := []contextEntry{
		{"Name", session.Customer.Name},
		{"E-Mail", session.Customer.Email},
		{"Telefon", session.Customer.Phone},
		{"Anlass", session.Customer.Occasion},
		{"Event-Datum", session.Customer.EventDate},
		{"Lieblingsstoff", favoriteCode(session)},
		{"Aktueller Agent", session.CurrentAgent},
	}
	entries := make([]contextEntry, 0, len(candidates))
	for _, c := range candidates {
		if c.value != "" && c.value != statex.Unknown {
			entries = append(entries, c)
		}
	}
	return entries
}

func favoriteCode(session *statex.SessionState) string {
	if session.Fabric.Favorite != nil {
		return session.Fabric.Favorite.Code
	}
	return session.DesignPreferences.RequestedFabricCode
}

func setDesignFields(session *statex.SessionState) int {
	prefs := session.DesignPreferences
	count := 0
	for _, v := range []string{
		prefs.LapelStyle,
		prefs.ShoulderPadding,
		prefs.InnerLining,
		prefs.PocketStyle,
		prefs.ButtonStyle,
	} {
		if v != "" && v != statex.Unknown {
			count++
		}
	}
	return count
}

func completenessLabel(n int) string {
	switch {
	case n == 0:
		return "Leer (0 Felder)"
	case n < 3:
		return fmt.Sprintf("Minimal (%d Felder)", n)
	case n < 6:
		return fmt.Sprintf("Teilweise (%d Felder)", n)
	default:
		return fmt.Sprintf("Umfangreich (%d Felder)", n)
	}
}
