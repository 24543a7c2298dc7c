package design

import (
	"strings"

	"github.com/rs/zerolog/log"

	statex "github.com/laserhenk/henk-agent/agent/state"
)

// extractPatch reads the design choices a message states in plain German.
// It covers the vocabulary the questions offer; free-form wishes stay with
// the model extraction.
func extractPatch(lower string) statex.DesignPatch {
	var p statex.DesignPatch

	p.LapelStyle = lapelWish(lower)

	// Shoulder words only count next to a shoulder mention: "keine" or
	// "leicht" alone say nothing about the padding.
	switch {
	case containsAny(lower, "keine polster", "ohne polster", "keine schulterpolster", "ohne schulterpolster", "keine schulterpolsterung", "natürliche schulter"):
		p.ShoulderPadding = "none"
	case strings.Contains(lower, "schulter") || strings.Contains(lower, "polster"):
		p.ShoulderPadding = firstWanted(lower, shoulderWishes)
	}

	switch {
	case containsAny(lower, "ohne bundfalte", "keine bundfalte", "glatte hose", "glatter bund", "flat front"):
		p.TrouserFront = "flat_front"
	case strings.Contains(lower, "bundfalte"):
		p.TrouserFront = "pleats"
	}

	switch {
	case containsAny(lower, "zweireiher", "zweireihig", "doppelreihig"):
		p.JacketFront = "double_breasted"
	case containsAny(lower, "einreiher", "einreihig"):
		p.JacketFront = "single_breasted"
	}

	switch {
	case containsAny(lower, "keine krawatte", "ohne krawatte", "keine fliege", "ohne fliege"):
		p.Neckwear = "none"
	case strings.Contains(lower, "fliege"):
		p.Neckwear = "bow_tie"
	case strings.Contains(lower, "krawatte"):
		p.Neckwear = "tie"
	}

	switch {
	case strings.Contains(lower, "bemberg"):
		p.InnerLining = "bemberg"
	case strings.Contains(lower, "seide"):
		p.InnerLining = "silk"
	case containsAny(lower, "halb gefüttert", "halbgefüttert", "halbfutter", "halbes futter"):
		p.InnerLining = "half_lining"
	case containsAny(lower, "voll gefüttert", "vollgefüttert", "vollfutter", "volles futter"):
		p.InnerLining = "full_lining"
	case containsAny(lower, "viertel gefüttert", "viertelfutter"):
		p.InnerLining = "quarter_lining"
	}

	if strings.Contains(lower, "knopf") || strings.Contains(lower, "knöpfe") {
		switch {
		case containsAny(lower, "drei knöpfe", "3 knöpfe", "dreiknopf", "3-knopf"):
			p.ButtonCount = 3
		case containsAny(lower, "zwei knöpfe", "2 knöpfe", "zweiknopf", "2-knopf"):
			p.ButtonCount = 2
		case containsAny(lower, "ein knopf", "einen knopf", "1 knopf", "einknopf", "1-knopf"):
			p.ButtonCount = 1
		}
	}

	switch {
	case containsAny(lower, "ohne weste", "keine weste"):
		v := false
		p.WantsVest = &v
	case containsAny(lower, "mit weste", "und weste", "plus weste"):
		v := true
		p.WantsVest = &v
	}

	return p
}

// lapelCandidates in the order spoken terms shadow each other; the scan
// itself walks the message left to right.
var lapelCandidates = []struct {
	keyword string
	value   string
}{
	{"spitzrevers", "peak"}, {"spitzes revers", "peak"}, {"spitz-revers", "peak"},
	{"schalkragen", "shawl"}, {"schal-revers", "shawl"}, {"shawl", "shawl"},
	{"steigendes revers", "notch"}, {"steigende revers", "notch"}, {"fallendes revers", "notch"}, {"notch", "notch"},
}

// lapelWish finds the wanted lapel. Mentions right after "statt", "nicht"
// or "kein" name the rejected option, not the wish: "Schalkragen statt
// Spitzrevers" means shawl.
func lapelWish(lower string) string {
	wantedIdx := -1
	wanted := ""
	for _, c := range lapelCandidates {
		idx := strings.Index(lower, c.keyword)
		if idx < 0 || rejectedBefore(lower[:idx]) {
			continue
		}
		if wantedIdx == -1 || idx < wantedIdx {
			wantedIdx = idx
			wanted = c.value
		}
	}
	return wanted
}

type wish struct {
	prefix string
	value  string
}

var shoulderWishes = []wish{
	{"leicht", "light"},
	{"stark", "structured"}, {"strukturiert", "structured"}, {"kräftig", "structured"},
	{"mittel", "medium"}, {"mittler", "medium"},
}

// firstWanted returns the value of the first word matching a wish prefix
// that is not rejected by the words right before it.
func firstWanted(lower string, wishes []wish) string {
	fields := strings.Fields(lower)
	for i, f := range fields {
		w := strings.Trim(f, ".,!?;:()")
		for _, c := range wishes {
			if !strings.HasPrefix(w, c.prefix) {
				continue
			}
			if rejectedBefore(strings.Join(fields[:i], " ")) {
				continue
			}
			return c.value
		}
	}
	return ""
}

// rejectedBefore reports whether the trailing words of prefix reject what
// follows. A two-word window covers "nicht so stark".
func rejectedBefore(prefix string) bool {
	fields := strings.Fields(prefix)
	for i := len(fields) - 1; i >= 0 && i >= len(fields)-2; i-- {
		switch strings.Trim(fields[i], ".,!?;:()") {
		case "statt", "anstatt", "anstelle", "nicht", "kein", "keine", "keinen", "ohne":
			return true
		}
	}
	return false
}

// Canonical vocabularies for the enumerated patch fields. The model answers
// in German about as often as in the canonical terms.
var (
	lapelVocab = map[string]string{
		"peak": "peak", "spitzrevers": "peak", "spitzes revers": "peak",
		"notch": "notch", "steigendes revers": "notch", "steigendes_revers": "notch", "fallendes revers": "notch",
		"shawl": "shawl", "schalkragen": "shawl", "schal": "shawl",
	}
	lapelRollVocab = map[string]string{
		"rolling": "rolling", "rollend": "rolling",
		"flat": "flat", "flach": "flat",
	}
	shoulderVocab = map[string]string{
		"none": "none", "keine": "none", "ohne": "none",
		"light": "light", "leicht": "light",
		"medium": "medium", "mittel": "medium",
		"structured": "structured", "stark": "structured", "strukturiert": "structured",
	}
	jacketFrontVocab = map[string]string{
		"single_breasted": "single_breasted", "einreiher": "single_breasted", "einreihig": "single_breasted",
		"double_breasted": "double_breasted", "zweireiher": "double_breasted", "zweireihig": "double_breasted",
	}
	trouserFrontVocab = map[string]string{
		"pleats": "pleats", "bundfalte": "pleats", "bundfalten": "pleats",
		"flat_front": "flat_front", "flat": "flat_front", "glatt": "flat_front",
	}
	neckwearVocab = map[string]string{
		"tie": "tie", "krawatte": "tie",
		"bow_tie": "bow_tie", "fliege": "bow_tie",
		"none": "none", "keine": "none", "ohne": "none",
	}
	liningVocab = map[string]string{
		"full_lining": "full_lining", "full": "full_lining", "vollgefüttert": "full_lining",
		"half_lining": "half_lining", "half": "half_lining", "halbgefüttert": "half_lining",
		"quarter_lining": "quarter_lining", "quarter": "quarter_lining",
		"bemberg": "bemberg",
		"silk": "silk", "seide": "silk",
	}
)

// normalizePatch maps loose model vocabulary onto the canonical values and
// drops what stays unrecognized. Free-text fields pass through untouched.
func normalizePatch(p *statex.DesignPatch) {
	p.LapelStyle = normalizeChoice(p.LapelStyle, lapelVocab)
	p.LapelRoll = normalizeChoice(p.LapelRoll, lapelRollVocab)
	p.ShoulderPadding = normalizeChoice(p.ShoulderPadding, shoulderVocab)
	p.JacketFront = normalizeChoice(p.JacketFront, jacketFrontVocab)
	p.TrouserFront = normalizeChoice(p.TrouserFront, trouserFrontVocab)
	p.Neckwear = normalizeChoice(p.Neckwear, neckwearVocab)
	p.InnerLining = normalizeChoice(p.InnerLining, liningVocab)
}

func normalizeChoice(raw string, vocab map[string]string) string {
	if raw == "" {
		return ""
	}
	return vocab[strings.ToLower(strings.TrimSpace(raw))]
}

/* ------------------------------ fabric switch ------------------------------ */

// mentionedShownCode finds a literal fabric code from the shown set in the
// message.
func mentionedShownCode(lower string, shown []statex.Fabric) string {
	for _, f := range shown {
		if f.Code != "" && strings.Contains(lower, strings.ToLower(f.Code)) {
			return f.Code
		}
	}
	return ""
}

// switchRequestedFabric honors a fabric change request against the fabrics
// already shown. Unknown codes are dropped, the favorite stays.
func switchRequestedFabric(session *statex.SessionState) {
	code := session.DesignPreferences.RequestedFabricCode
	if code == "" {
		return
	}
	session.DesignPreferences.RequestedFabricCode = ""
	for _, f := range session.Fabric.Shown {
		if strings.EqualFold(f.Code, code) {
			fab := f
			session.Fabric.Favorite = &fab
			return
		}
	}
	log.Debug().Str("session_id", session.SessionID).Str("fabric_code", code).Msg("requested fabric not among the shown ones")
}

/* --------------------------- measurement payload --------------------------- */

// measurementPayload converts the collected preferences into the
// construction vocabulary the measurement phase validates.
func measurementPayload(session *statex.SessionState) map[string]any {
	prefs := session.DesignPreferences
	payload := map[string]any{
		"garment_type":        "anzug",
		"jacket_form":         jacketFormFromHistory(session),
		"shoulder_processing": shoulderProcessing(prefs.ShoulderPadding),
		"lapel_style":         handoffLapel(prefs.LapelStyle),
		"inner_lining":        handoffLining(prefs.InnerLining),
	}
	if prefs.LiningColor != "" {
		payload["lining_color"] = prefs.LiningColor
	}
	if prefs.ButtonStyle != "" {
		payload["button_style"] = prefs.ButtonStyle
	}
	if prefs.PocketStyle != "" {
		payload["pocket_style"] = prefs.PocketStyle
	}
	if url := prefs.ApprovedImageURL; url != "" {
		payload["mood_image_url"] = url
	} else if session.Image.CurrentURL != "" {
		payload["mood_image_url"] = session.Image.CurrentURL
	}
	return payload
}

// jacketFormFromHistory reads the fit wish out of the recent user turns.
// There is no dedicated question for it; the default is the safe middle.
func jacketFormFromHistory(session *statex.SessionState) string {
	var b strings.Builder
	for _, t := range session.RecentHistory(20) {
		if t.Role != statex.RoleUser {
			continue
		}
		b.WriteString(strings.ToLower(t.Content))
		b.WriteString(" ")
	}
	joined := b.String()
	switch {
	case containsAny(joined, "schlank", "slim", "körperbetont", "eng anliegend"):
		return "slim_fit"
	case containsAny(joined, "bequem", "locker", "comfort"):
		return "comfort_fit"
	case containsAny(joined, "klassisch", "classic"):
		return "classic_fit"
	default:
		return "regular_fit"
	}
}

// shoulderProcessing maps the padding choice onto the workshop vocabulary.
func shoulderProcessing(padding string) string {
	switch padding {
	case "none":
		return "natural"
	case "light":
		return "soft"
	case "structured":
		return "strong"
	default:
		return "medium"
	}
}

func handoffLapel(style string) string {
	switch style {
	case "peak":
		return "spitzrevers"
	case "shawl":
		return "schalkragen"
	default:
		return "steigendes_revers"
	}
}

func handoffLining(lining string) string {
	switch lining {
	case "full_lining", "half_lining", "quarter_lining", "bemberg", "silk":
		return lining
	default:
		return "half_lining"
	}
}

/* --------------------------------- helpers --------------------------------- */

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
