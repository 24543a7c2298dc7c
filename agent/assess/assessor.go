// Package assess computes, per phase, which required session fields are still
// missing and which phase should be active next. Everything here is pure: no
// I/O, no mutation, safe to call any number of times per turn.
package assess

import (
	"strings"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

var designCoreFields = []string{
	"lapel_style",
	"shoulder_padding",
	"inner_lining",
	"pocket_style",
	"button_style",
}

var measurementCoreFields = []string{
	"shoulder_width",
	"chest",
	"waist",
	"hip",
	"sleeve_length",
	"body_length",
	"inseam",
}

// occasionKeywords backs the last-resort scan over recent conversation when
// no occasion was recorded explicitly.
var occasionKeywords = []struct {
	keyword string
	value   string
}{
	{"hochzeit", "hochzeit"},
	{"wedding", "wedding"},
	{"business", "business"},
	{"gala", "gala"},
	{"party", "party"},
	{"feier", "feier"},
	{"formal", "formal"},
	{"casual", "casual"},
}

// Assess returns the completeness picture for routing. Malformed or partial
// state is never an error; absent data just reads as missing.
func Assess(session *statex.SessionState) contractx.PhaseAssessment {
	needsMissing := missingNeedsFields(session)
	designMissing := missingDesignFields(session)
	measurementsMissing := missingMeasurementFields(session)

	needsComplete := len(needsMissing) == 0
	designComplete := needsComplete && len(designMissing) == 0
	measurementsComplete := designComplete && len(measurementsMissing) == 0

	phase := contractx.PhaseEnd
	switch {
	case !needsComplete:
		phase = contractx.PhaseNeedsAssessment
	case !designComplete:
		phase = contractx.PhaseDesign
	case !measurementsComplete:
		phase = contractx.PhaseMeasurement
	}

	missing := make([]string, 0, len(needsMissing)+len(designMissing)+len(measurementsMissing))
	missing = append(missing, needsMissing...)
	missing = append(missing, designMissing...)
	missing = append(missing, measurementsMissing...)

	return contractx.PhaseAssessment{
		MissingFields:           missing,
		RecommendedPhase:        phase,
		NeedsAssessmentComplete: needsComplete,
		DesignComplete:          designComplete,
		MeasurementsComplete:    measurementsComplete,
	}
}

func missingNeedsFields(session *statex.SessionState) []string {
	var missing []string
	if occasion(session) == "" {
		missing = append(missing, "occasion")
	}
	if timing(session) == "" {
		missing = append(missing, "timing")
	}
	if fabricColor(session) == "" {
		missing = append(missing, "fabric_color")
	}
	return missing
}

func missingDesignFields(session *statex.SessionState) []string {
	var missing []string
	for _, field := range designCoreFields {
		if designField(session, field) == "" {
			missing = append(missing, field)
		}
	}
	// One preferred color is required on top of the core fields.
	if fabricColor(session) == "" {
		missing = append(missing, "fabric_color")
	}
	return missing
}

func missingMeasurementFields(session *statex.SessionState) []string {
	if session == nil || session.Measurements == nil {
		out := make([]string, len(measurementCoreFields))
		copy(out, measurementCoreFields)
		return out
	}
	m := session.Measurements
	values := map[string]*float64{
		"shoulder_width": m.ShoulderWidth,
		"chest":          m.Chest,
		"waist":          m.Waist,
		"hip":            m.Hip,
		"sleeve_length":  m.SleeveLength,
		"body_length":    m.BodyLength,
		"inseam":         m.Inseam,
	}
	var missing []string
	for _, field := range measurementCoreFields {
		if values[field] == nil {
			missing = append(missing, field)
		}
	}
	return missing
}

/* ---------------------------- field resolution ---------------------------- */

func occasion(session *statex.SessionState) string {
	if session == nil {
		return ""
	}
	if v := strings.TrimSpace(session.Customer.Occasion); v != "" {
		return v
	}
	if h := session.Handoffs.Design; h != nil && h.Occasion != "" {
		return h.Occasion
	}
	// Fall back to a keyword scan over the recent conversation.
	convo := recentConversation(session, 10)
	for _, entry := range occasionKeywords {
		if strings.Contains(convo, entry.keyword) {
			return entry.value
		}
	}
	return ""
}

func timing(session *statex.SessionState) string {
	if session == nil {
		return ""
	}
	if v := strings.TrimSpace(session.Customer.EventDate); v != "" {
		return v
	}
	if v := strings.TrimSpace(session.Customer.TimingHint); v != "" {
		return v
	}
	if h := session.Handoffs.Design; h != nil && h.Season != "" {
		return h.Season
	}
	return ""
}

func fabricColor(session *statex.SessionState) string {
	if session == nil {
		return ""
	}
	prefs := session.DesignPreferences
	if len(prefs.PreferredColors) > 0 {
		return strings.Join(prefs.PreferredColors, ", ")
	}
	if prefs.LiningColor != "" {
		return prefs.LiningColor
	}
	if fav := session.Fabric.Favorite; fav != nil && fav.Color != "" {
		return fav.Color
	}
	if h := session.Handoffs.Design; h != nil && len(h.Colors) > 0 {
		return strings.Join(h.Colors, ", ")
	}
	return ""
}

func designField(session *statex.SessionState, field string) string {
	if session == nil {
		return ""
	}
	if h := session.Handoffs.Measurement; h != nil {
		switch field {
		case "lapel_style":
			if h.LapelStyle != "" {
				return h.LapelStyle
			}
		case "shoulder_padding":
			if h.ShoulderProcessing != "" {
				return h.ShoulderProcessing
			}
		case "inner_lining":
			if h.InnerLining != "" {
				return h.InnerLining
			}
		case "pocket_style":
			if h.PocketStyle != "" {
				return h.PocketStyle
			}
		case "button_style":
			if h.ButtonStyle != "" {
				return h.ButtonStyle
			}
		}
	}
	prefs := session.DesignPreferences
	switch field {
	case "lapel_style":
		return prefs.LapelStyle
	case "shoulder_padding":
		return prefs.ShoulderPadding
	case "inner_lining":
		return prefs.InnerLining
	case "pocket_style":
		return prefs.PocketStyle
	case "button_style":
		return prefs.ButtonStyle
	}
	return ""
}

// recentConversation joins the last n user turns. Assistant turns are
// excluded: replies list example occasions and must not satisfy the scan.
func recentConversation(session *statex.SessionState, n int) string {
	turns := session.RecentHistory(n)
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		if t.Role != statex.RoleUser {
			continue
		}
		parts = append(parts, strings.ToLower(t.Content))
	}
	return strings.Join(parts, " ")
}
