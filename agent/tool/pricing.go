package tool

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

// Base prices in EUR by garment type. Fabric choice is required before a
// quote goes out; the tier itself is already priced into the base.
var basePrices = map[string]int{
	"suit":        1800,
	"three_piece": 2100,
	"jacket":      1200,
	"trousers":    600,
	"vest":        400,
	"coat":        2500,
	"tuxedo":      2200,
}

var garmentLabels = map[string]string{
	"suit":        "Bespoke-Anzug (2-teilig)",
	"three_piece": "Bespoke-Anzug (3-teilig)",
	"jacket":      "Bespoke-Sakko",
	"trousers":    "Bespoke-Hose",
	"vest":        "Bespoke-Weste",
	"coat":        "Bespoke-Mantel",
	"tuxedo":      "Bespoke-Smoking",
}

const noFabricPricingText = "**Preisauskunft:**\n\n" +
	"Gerne! Um dir einen genauen Preis zu nennen, brauche ich noch deine Stoffauswahl.\n\n" +
	"Die Stoffkategorie macht den größten Unterschied - von klassischer Schurwolle bis zu exklusiven italienischen Tüchern.\n\n" +
	"Soll ich dir passende Stoffe zeigen? Dann kann ich direkt den Preis kalkulieren."

// Pricing calculates a quote from the garment type, the chosen fabric and
// the extras. It reads the session but never writes it.
type Pricing struct{}

func NewPricing() *Pricing { return &Pricing{} }

func (t *Pricing) Name() string { return contractx.ToolPricing }

func (t *Pricing) Run(_ context.Context, params map[string]any, session *statex.SessionState) (contractx.ToolOutput, error) {
	fabric, ok := chosenFabric(session)
	if !ok {
		return contractx.ToolOutput{Text: noFabricPricingText}, nil
	}

	garment := stringParam(params, "garment_type", "garment")
	if _, known := basePrices[garment]; !known {
		garment = "suit"
	}

	wantsVest := session.DesignPreferences.WantsVest != nil && *session.DesignPreferences.WantsVest
	addVest := garment == "suit" && (boolParam(params, "add_vest") || wantsVest)

	base := basePrices[garment]
	total := base
	var extras []string
	if boolParam(params, "monogram") {
		total += 50
		extras = append(extras, "+ 50€ Monogramm")
	}
	if boolParam(params, "custom_lining") {
		total += 150
		extras = append(extras, "+ 150€ Custom-Innenfutter")
	}
	if boolParam(params, "custom_buttons") {
		total += 80
		extras = append(extras, "+ 80€ Spezial-Knöpfe")
	}
	if addVest {
		total += 400
		extras = append(extras, "+ 400€ Weste")
		garment = "three_piece"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Preiskalkulation:**\n\n%s\nStoff: %s\n\nBasis: %d€", garmentLabels[garment], fabricLabel(fabric), base)
	for _, line := range extras {
		b.WriteString("\n" + line)
	}
	fmt.Fprintf(&b, "\n\n**Gesamt: %d€**\n\n", total)
	b.WriteString("_Inkl. individueller Anpassung, Maßanfertigung und Premium-Service._\n")
	b.WriteString("_Preis kann sich bei finaler Stoffauswahl/Details noch ändern._")

	return contractx.ToolOutput{
		Text: b.String(),
		Metadata: map[string]any{
			"price_total":  total,
			"garment_type": garment,
		},
	}, nil
}

// chosenFabric resolves the fabric a quote is based on: the favorite first,
// then an explicitly requested catalog code from the shown fabrics.
func chosenFabric(session *statex.SessionState) (statex.Fabric, bool) {
	if fav := session.Fabric.Favorite; fav != nil {
		return *fav, true
	}
	if code := session.DesignPreferences.RequestedFabricCode; code != "" {
		if f, ok := session.Fabric.ShownByCode(code); ok {
			return f, true
		}
		if f, ok := fromRAGContext(session, code); ok {
			return f, true
		}
		return statex.Fabric{Code: code}, true
	}
	return statex.Fabric{}, false
}

func fabricLabel(f statex.Fabric) string {
	if f.Name == "" {
		return f.Code
	}
	return fmt.Sprintf("%s (%s)", f.Name, f.Code)
}
