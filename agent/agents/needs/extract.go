package needs

import (
	"regexp"
	"strings"

	statex "github.com/laserhenk/henk-agent/agent/state"
)

// Keyword tables for the deterministic extraction layer. The conversational
// model refines these, it never replaces them: every detection below also
// works offline.

var occasionLabels = []struct {
	keyword string
	label   string
}{
	{"hochzeit", "hochzeit"},
	{"wedding", "hochzeit"},
	{"business", "business"},
	{"geschäft", "business"},
	{"beruf", "business"},
	{"arbeit", "business"},
	{"job", "business"},
	{"office", "business"},
	{"messe", "business"},
	{"alltag", "alltag"},
	{"gala", "gala"},
	{"empfang", "gala"},
	{"party", "party"},
	{"feier", "feier"},
	{"formal", "formal"},
	{"casual", "casual"},
	{"lässig", "casual"},
}

// colorTable maps conversational color words onto the catalog vocabulary.
// Longer keywords come first so "hellgrau" wins over "grau".
var colorTable = []struct {
	keyword string
	color   string
}{
	{"dunkelblau", "navy"},
	{"hellgrau", "hellgrau"},
	{"dunkelgrau", "grau"},
	{"tannengrün", "oliv"},
	{"bordeaux", "braun"},
	{"weinrot", "braun"},
	{"schwarz", "schwarz"},
	{"marine", "navy"},
	{"braun", "braun"},
	{"beige", "beige"},
	{"camel", "beige"},
	{"olive", "oliv"},
	{"navy", "navy"},
	{"blau", "navy"},
	{"grau", "grau"},
	{"grün", "oliv"},
	{"rot", "braun"},
}

// patternTable maps conversational pattern words onto the catalog vocabulary.
// "uni" must match as a word: it is a substring of "Juni".
var patternTable = []struct {
	keyword  string
	pattern  string
	wordOnly bool
}{
	{"fischgrat", "fischgrat", false},
	{"nadelstreifen", "nadelstreifen", false},
	{"einfarbig", "uni", false},
	{"kariert", "karo", false},
	{"streifen", "nadelstreifen", false},
	{"tweed", "struktur", false},
	{"karo", "karo", false},
	{"uni", "uni", true},
}

var styleTable = []struct {
	keyword string
	style   string
}{
	{"klassisch", "klassisch"},
	{"classic", "klassisch"},
	{"contemporary", "modern"},
	{"modern", "modern"},
	{"elegant", "elegant"},
	{"sportlich", "sportlich"},
	{"casual", "casual"},
	{"formell", "formal"},
	{"formal", "formal"},
	{"schlicht", "minimalistisch"},
	{"minimalist", "minimalistisch"},
}

var fabricIntentKeywords = []string{
	"stoff", "zeigen", "auswahl", "empfehl", "option", "material", "sehen",
}

var contactDeclineMarkers = []string{
	"kein e-mail", "keine e-mail", "keine email", "ohne email", "ohne mail",
	"keine nummer", "kein whatsapp", "kein telefon", "nur hier", "im chat",
	"nicht per mail", "zeige mir hier", "hier die stoffe", "nicht per email",
}

var newSearchTriggers = []string{
	"andere stoffe", "mehr auswahl", "andere farbe", "zeig mehr", "nochmal", "andere muster",
}

var (
	vestNegative = []string{"ohne weste", "keine weste", "nicht mit weste", "kein weste"}
	vestPositive = []string{"mit weste", "haben weste", "möchte weste", "will weste", "weste ja"}
)

var (
	emailRe        = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe        = regexp.MustCompile(`\+?\d[\d\s\-/()]{6,}\d`)
	fabricNumberRe = regexp.MustCompile(`(?:nummer|nr\.?|no\.?|#)\s*(\d+)`)
	fabricDigitRe  = regexp.MustCompile(`\b([1-9])\b`)
	budgetAmountRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:€|euro)`)
	budgetPrefixRe = regexp.MustCompile(`budget\D{0,20}?(\d+(?:[.,]\d+)?)`)
	timingRes      = []*regexp.Regexp{
		regexp.MustCompile(`in\s+\d+\s+(?:wochen|woche|monaten|monate|tagen|tage)`),
		regexp.MustCompile(`\bq[1-4]\b`),
		regexp.MustCompile(`sommer|winter|frühjahr|herbst|frühling`),
		regexp.MustCompile(`januar|februar|märz|april|mai|juni|juli|august|september|oktober|november|dezember`),
	}
)

var ordinalIndexes = []struct {
	keyword string
	index   int
}{
	{"erste", 0}, {"ersten", 0}, {"erster", 0},
	{"zweite", 1}, {"zweiten", 1}, {"zweiter", 1},
	{"dritte", 2}, {"dritten", 2}, {"dritter", 2},
	{"vierte", 3}, {"vierten", 3}, {"vierter", 3},
	{"fünfte", 4}, {"fünften", 4}, {"fünfter", 4},
}

var (
	rightKeywords = []string{"rechts", "rechte", "rechter"}
	leftKeywords  = []string{"links", "linke"}
)

// snapshot is the per-turn view of everything the deterministic layer could
// read out of the conversation.
type snapshot struct {
	Occasion   string
	Colors     []string
	Patterns   []string
	Styles     []string
	BudgetEUR  float64
	NoBudget   bool
	TimingHint string
}

func analyzeConversation(session *statex.SessionState) snapshot {
	text := conversationText(session)

	snap := snapshot{
		Occasion:   extractOccasion(text),
		Colors:     extractColors(text),
		Patterns:   extractPatterns(text),
		Styles:     extractStyles(text),
		TimingHint: extractTimingHint(text),
	}
	snap.BudgetEUR, snap.NoBudget = extractBudget(text)

	if len(snap.Styles) == 0 {
		switch snap.Occasion {
		case "business", "formal":
			snap.Styles = []string{"elegant", "klassisch"}
		case "hochzeit", "gala":
			snap.Styles = []string{"elegant", "festlich"}
		default:
			snap.Styles = []string{"modern", "vielseitig"}
		}
	}
	return snap
}

// conversationText joins the recent user turns. Assistant replies stay out:
// they name occasions and colors themselves and would poison the extraction.
func conversationText(session *statex.SessionState) string {
	turns := session.RecentHistory(20)
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		if t.Role != statex.RoleUser {
			continue
		}
		parts = append(parts, strings.ToLower(t.Content))
	}
	return strings.Join(parts, " ")
}

func extractOccasion(text string) string {
	for _, entry := range occasionLabels {
		if strings.Contains(text, entry.keyword) {
			return entry.label
		}
	}
	return ""
}

func extractColors(text string) []string {
	var colors []string
	for _, entry := range colorTable {
		if !strings.Contains(text, entry.keyword) {
			continue
		}
		colors = appendUnique(colors, entry.color)
		// Consume the match so "hellgrau" does not also read as "grau".
		text = strings.ReplaceAll(text, entry.keyword, " ")
	}
	return colors
}

func extractPatterns(text string) []string {
	var patterns []string
	for _, entry := range patternTable {
		if entry.wordOnly && !containsWord(text, entry.keyword) {
			continue
		}
		if !entry.wordOnly && !strings.Contains(text, entry.keyword) {
			continue
		}
		patterns = appendUnique(patterns, entry.pattern)
		text = strings.ReplaceAll(text, entry.keyword, " ")
	}
	return patterns
}

func extractStyles(text string) []string {
	var styles []string
	for _, entry := range styleTable {
		if strings.Contains(text, entry.keyword) {
			styles = appendUnique(styles, entry.style)
		}
	}
	return styles
}

// extractBudget only accepts amounts anchored to a currency marker or the
// word "budget"; a bare number in conversation is too often a date or size.
func extractBudget(text string) (float64, bool) {
	for _, kw := range []string{"kein budget", "keine preisvorstellung", "ohne budget"} {
		if strings.Contains(text, kw) {
			return 0, true
		}
	}
	for _, re := range []*regexp.Regexp{budgetAmountRe, budgetPrefixRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			return parseAmount(m[1]), false
		}
	}
	return 0, false
}

func parseAmount(raw string) float64 {
	whole := raw
	frac := ""
	if i := strings.IndexAny(raw, ".,"); i >= 0 {
		whole, frac = raw[:i], raw[i+1:]
		// "1.800" is a thousands group, not a decimal.
		if raw[i] == '.' && len(frac) == 3 {
			whole += frac
			frac = ""
		}
	}
	value := 0.0
	for _, r := range whole {
		if r < '0' || r > '9' {
			return 0
		}
		value = value*10 + float64(r-'0')
	}
	scale := 0.1
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0
		}
		value += float64(r-'0') * scale
		scale /= 10
	}
	return value
}

func extractTimingHint(text string) string {
	for _, re := range timingRes {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

// applySuitChoice parses 2/3-Teiler and vest wishes out of the message and
// persists them. Already-set values are never overwritten.
func applySuitChoice(session *statex.SessionState, lower string) bool {
	updated := false
	trimmed := strings.TrimSpace(lower)

	variant := ""
	switch {
	case strings.Contains(lower, "zweiteiler"), strings.Contains(lower, "2-teiler"), strings.Contains(lower, "2 teiler"), trimmed == "2":
		variant = "two_piece"
	case strings.Contains(lower, "dreiteiler"), strings.Contains(lower, "3-teiler"), strings.Contains(lower, "3 teiler"), trimmed == "3":
		variant = "three_piece"
	}
	if variant != "" && session.Progress.SuitPieces == "" {
		session.Progress.SuitPieces = variant
		updated = true
	}

	if strings.Contains(lower, "weste") && session.DesignPreferences.WantsVest == nil {
		if containsAny(lower, vestNegative) {
			v := false
			session.DesignPreferences.WantsVest = &v
			updated = true
		} else if containsAny(lower, vestPositive) {
			v := true
			session.DesignPreferences.WantsVest = &v
			updated = true
		}
	}

	if session.Progress.SuitPieces != "" && session.DesignPreferences.WantsVest != nil {
		session.Progress.CutConfirmed = true
	}
	return updated
}

func isContactDecline(lower string) bool {
	return containsAny(lower, contactDeclineMarkers)
}

// captureContact pulls email and phone out of the raw message. Found data
// flips the contact status to provided unless the customer declined before.
func captureContact(session *statex.SessionState, text string) bool {
	captured := false
	if session.Customer.Email == "" {
		if m := emailRe.FindString(text); m != "" {
			session.Customer.Email = m
			captured = true
		}
	}
	if session.Customer.Phone == "" {
		if m := phoneRe.FindString(text); m != "" {
			session.Customer.Phone = strings.TrimSpace(m)
			captured = true
		}
	}
	if captured && session.Progress.Contact != statex.ContactDeclined {
		session.Progress.Contact = statex.ContactProvided
	}
	return captured
}

// detectFabricChoice resolves which of the shown fabrics the user picked:
// catalog code, "Nummer N", a bare digit, German ordinals, or links/rechts.
// Returns -1 when the message names none.
func detectFabricChoice(lower string, shown []statex.Fabric) int {
	if lower == "" || len(shown) == 0 {
		return -1
	}

	for i, f := range shown {
		if f.Code != "" && strings.Contains(lower, strings.ToLower(f.Code)) {
			return i
		}
	}

	if m := fabricNumberRe.FindStringSubmatch(lower); m != nil {
		return clampIndex(parseDigit(m[1])-1, len(shown))
	}
	if m := fabricDigitRe.FindStringSubmatch(lower); m != nil {
		return clampIndex(parseDigit(m[1])-1, len(shown))
	}
	for _, entry := range ordinalIndexes {
		if strings.Contains(lower, entry.keyword) {
			return clampIndex(entry.index, len(shown))
		}
	}
	if containsAny(lower, rightKeywords) {
		return clampIndex(1, len(shown))
	}
	if containsAny(lower, leftKeywords) {
		return 0
	}
	return -1
}

// isNewFabricSearch recognizes the wish for a different selection, either by
// an explicit trigger phrase or by a rejection combined with a color.
func isNewFabricSearch(lower string) bool {
	if containsAny(lower, newSearchTriggers) {
		return true
	}

	hasRejection := containsWord(lower, "ne") || containsWord(lower, "nein") ||
		strings.Contains(lower, "nicht") || strings.Contains(lower, "lieber") || strings.Contains(lower, "besser")
	if !hasRejection {
		return false
	}
	for _, entry := range colorTable {
		if strings.Contains(lower, entry.keyword) {
			return true
		}
	}
	return strings.Contains(lower, "dunkel") || strings.Contains(lower, "hell")
}

func wantsFabrics(lower string) bool {
	return containsAny(lower, fabricIntentKeywords)
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func containsWord(text, word string) bool {
	for _, field := range strings.Fields(text) {
		if strings.Trim(field, ".,!?;:") == word {
			return true
		}
	}
	return false
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

func clampIndex(idx, length int) int {
	if idx < 0 {
		return 0
	}
	if idx >= length {
		return length - 1
	}
	return idx
}

func parseDigit(raw string) int {
	n := 0
	for _, r := range raw {
		n = n*10 + int(r-'0')
	}
	return n
}
