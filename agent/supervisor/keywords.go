package supervisor

import (
	"fmt"
	"strings"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
)

// Keyword routing is lowercased literal substring match, first hit wins.
// These intents are unambiguous and must never be second-guessed by the
// model; a hit here skips the model call entirely.

const preRouteConfidence = 0.9

type keywordRoute struct {
	label    string
	keywords []string
	kind     contractx.ActionKind
	name     string
	// needsFabric gates the route on a fabric having been chosen already.
	needsFabric bool
}

var preRoutes = []keywordRoute{
	{
		label:    "fabric intent",
		keywords: []string{"stoff", "material", "fabric", "auswahl", "empfehl"},
		kind:     contractx.ActionTool,
		name:     contractx.ToolFabricSearch,
	},
	{
		label:    "pricing intent",
		keywords: []string{"preis", "kosten", "kostet", "budget", "teuer", "euro", "€"},
		kind:     contractx.ActionTool,
		name:     contractx.ToolPricing,
	},
	{
		label:    "comparison intent",
		keywords: []string{"vergleich", "unterschied", "versus", " vs "},
		kind:     contractx.ActionTool,
		name:     contractx.ToolComparison,
	},
	{
		label:    "measurement intent",
		keywords: []string{"maße", "messen", "maß nehmen", "körpermaß", "measurement", "saia", "scan"},
		kind:     contractx.ActionAgent,
		name:     string(contractx.AgentMeasurement),
	},
	{
		label:       "design detail intent",
		keywords:    []string{"revers", "lapel", "knopf", "knöpfe", "futter", "taschen", "schulter"},
		kind:        contractx.ActionAgent,
		name:        string(contractx.AgentDesign),
		needsFabric: true,
	},
}

// preRoute scans the lowercased message against the routing tables.
func preRoute(message, lower string, fabricChosen bool) (contractx.Action, bool) {
	for _, route := range preRoutes {
		if route.needsFabric && !fabricChosen {
			continue
		}
		for _, kw := range route.keywords {
			if !strings.Contains(lower, kw) {
				continue
			}
			action := contractx.Action{
				Kind:       route.kind,
				Name:       route.name,
				Reasoning:  fmt.Sprintf("keyword pre-route: %s (%q)", route.label, kw),
				Confidence: preRouteConfidence,
			}
			if route.kind == contractx.ActionTool {
				action.Params = map[string]any{"query": message}
			} else {
				action.ShouldContinue = true
			}
			return action, true
		}
	}
	return contractx.Action{}, false
}

/* --------------------------- feedback classifiers -------------------------- */

var fabricFeedbackKeywords = []string{
	"zu hell",
	"zu dunkel",
	"zu leicht",
	"zu schwer",
	"anderes muster",
	"andere muster",
	"andere farbe",
	"andere stoffe",
	"mehr auswahl",
	"zeig mehr",
	"nochmal",
	"gefällt mir nicht",
	"nicht mein",
}

func isFabricFeedback(lower string) (string, bool) {
	for _, kw := range fabricFeedbackKeywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

type moodVerdict string

const (
	moodNoSignal moodVerdict = ""
	moodApproved moodVerdict = "approved"
	moodRevision moodVerdict = "revision"
)

var moodRevisionKeywords = []string{
	"ändern",
	"anders",
	"nicht",
	"eher",
	"lieber",
	"dunkler",
	"heller",
	"anpassen",
	"überarbeite",
}

var moodApprovalKeywords = []string{
	"gefällt mir",
	"sieht gut aus",
	"perfekt",
	"super",
	"passt",
	"genau so",
	"nehmen wir",
	"top",
	"wunderbar",
}

// classifyMoodFeedback decides approval vs. revision for a pending mood
// board. Revision wins on overlap so "gefällt mir nicht" reads as revision.
func classifyMoodFeedback(lower string) moodVerdict {
	for _, kw := range moodRevisionKeywords {
		if strings.Contains(lower, kw) {
			return moodRevision
		}
	}
	for _, kw := range moodApprovalKeywords {
		if strings.Contains(lower, kw) {
			return moodApproved
		}
	}
	return moodNoSignal
}
