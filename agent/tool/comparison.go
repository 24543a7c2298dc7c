package tool

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

// Comparison renders a side-by-side view of two or more options. Items naming
// a known fabric code are enriched with the catalog details; anything else is
// compared verbatim.
type Comparison struct{}

func NewComparison() *Comparison { return &Comparison{} }

func (t *Comparison) Name() string { return contractx.ToolComparison }

func (t *Comparison) Run(_ context.Context, params map[string]any, session *statex.SessionState) (contractx.ToolOutput, error) {
	items := stringSliceParam(params, "items")
	if len(items) == 0 {
		items = shownCodes(session)
	}
	if len(items) < 2 {
		return contractx.ToolOutput{Text: "Ich brauche mindestens 2 Optionen zum Vergleichen."}, nil
	}

	comparisonType := stringParam(params, "comparison_type")
	if comparisonType == "" {
		comparisonType = "general"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Vergleich (%s):**\n", comparisonType)
	for i, item := range items {
		fmt.Fprintf(&b, "\nOption %d: %s", i+1, describeOption(session, item))
	}
	return contractx.ToolOutput{Text: b.String()}, nil
}

// shownCodes falls back to the fabrics of the latest presentation round when
// the router passed no explicit items.
func shownCodes(session *statex.SessionState) []string {
	shown := session.Fabric.Shown
	if len(shown) < 2 {
		shown = session.Fabric.RAGContext
	}
	if len(shown) < 2 {
		return nil
	}
	pair := shown[len(shown)-2:]
	return []string{pair[0].Code, pair[1].Code}
}

func describeOption(session *statex.SessionState, item string) string {
	fabric, ok := session.Fabric.ShownByCode(item)
	if !ok {
		fabric, ok = fromRAGContext(session, item)
	}
	if !ok {
		return item
	}

	parts := []string{fabricLabel(fabric)}
	if fabric.Composition != "" {
		parts = append(parts, "Material: "+fabric.Composition)
	}
	if fabric.WeightGSM > 0 {
		parts = append(parts, fmt.Sprintf("Gewicht: %d g/m²", fabric.WeightGSM))
	}
	switch fabric.PriceTier {
	case "luxury":
		parts = append(parts, "Luxus-Klasse")
	case "mid":
		parts = append(parts, "mittlere Preisklasse")
	}
	return strings.Join(parts, ", ")
}
