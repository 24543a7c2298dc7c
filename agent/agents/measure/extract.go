package measure

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	statex "github.com/laserhenk/henk-agent/agent/state"
)

// Dictated measurements arrive as "Brustumfang 102" or "meine Taille liegt
// bei 88". Each field has one pattern: name, optional filler words, value.
var measurePatterns = []struct {
	field string
	re    *regexp.Regexp
}{
	{"shoulder_width", measureRe("schulterbreite", "schulter")},
	{"chest", measureRe("brustumfang", "brust", "chest")},
	{"waist", measureRe("taillenumfang", "taille")},
	{"hip", measureRe("hüftumfang", "hüftweite", "hüfte")},
	{"sleeve_length", measureRe("ärmellänge", "armlänge")},
	{"body_length", measureRe("rückenlänge", "rumpflänge")},
	{"inseam", measureRe("schrittlänge", "beinlänge", "schritt")},
}

func measureRe(names ...string) *regexp.Regexp {
	connector := `(?:(?:ist|sind|liegt|beträgt|bei|ca\.?|circa|etwa|um|die|von|so|dann)\s+){0,3}`
	// \b is ASCII-only and never fires before "ä", so the left boundary is
	// spelled out as start-of-text or a non-letter.
	return regexp.MustCompile(`(?:^|[^\p{L}\d])(?:` + strings.Join(names, "|") + `)\s*[:=]?\s*` + connector + `(\d{2,3}(?:[.,]\d+)?)`)
}

func parseMeasurements(lower string) map[string]float64 {
	var out map[string]float64
	for _, p := range measurePatterns {
		m := p.re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil {
			continue
		}
		if out == nil {
			out = make(map[string]float64)
		}
		out[p.field] = v
	}
	return out
}

var measureFields = map[string]bool{
	"shoulder_width": true,
	"chest":          true,
	"waist":          true,
	"hip":            true,
	"sleeve_length":  true,
	"body_length":    true,
	"inseam":         true,
}

// applyMeasurements folds stated values into the record. Unknown fields and
// values outside the plausible centimeter range are dropped rather than
// guessed at.
func applyMeasurements(session *statex.SessionState, values map[string]float64) {
	for field, v := range values {
		if !measureFields[field] || v < 20 || v > 250 {
			continue
		}
		if session.Measurements == nil {
			session.Measurements = &statex.Measurements{Source: statex.MeasureSourceManual, TakenAt: time.Now().UTC()}
		}
		setMeasurement(session.Measurements, field, v)
	}
}

func setMeasurement(m *statex.Measurements, field string, v float64) {
	val := v
	switch field {
	case "shoulder_width":
		m.ShoulderWidth = &val
	case "chest":
		m.Chest = &val
	case "waist":
		m.Waist = &val
	case "hip":
		m.Hip = &val
	case "sleeve_length":
		m.SleeveLength = &val
	case "body_length":
		m.BodyLength = &val
	case "inseam":
		m.Inseam = &val
	}
}

/* --------------------------------- intents --------------------------------- */

func scanIntent(lower string) bool {
	return containsAny(lower, "saia", "scan", "3d", "von zuhause", "selbst messen", "selber messen", "smartphone", "handy")
}

func appointmentIntent(lower string) bool {
	return containsAny(lower, "termin", "showroom", "atelier", "vorbeikommen", "vorbei kommen", "persönlich", "vor ort", "bei euch")
}

func cancelIntent(lower string) bool {
	return containsAny(lower, "abbrechen", "stornieren", "storno", "doch nicht", "kein interesse", "abbestellen", "aufhören")
}

// existingCustomerIntent spots customers whose measurements the atelier
// already has on file.
func existingCustomerIntent(lower string) bool {
	return containsAny(lower,
		"bestandskunde",
		"schon bei euch",
		"schon mal bei euch",
		"habt ihr noch meine",
		"meine maße habt ihr",
		"maße liegen",
		"bereits vermessen",
		"schon vermessen",
		"vom letzten mal",
		"letzten besuch",
	)
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
