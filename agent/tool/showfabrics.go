package tool

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	fabricx "github.com/laserhenk/henk-agent/agent/fabric"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

// ShowFabrics presents the curated two-tier pair from the already searched
// fabrics, one mid and one luxury option with photos, plus up to three
// similar alternatives without photos.
type ShowFabrics struct {
	now func() time.Time
}

func NewShowFabrics(now func() time.Time) *ShowFabrics {
	return &ShowFabrics{now: now}
}

func (t *ShowFabrics) Name() string { return contractx.ToolShowFabrics }

func (t *ShowFabrics) Run(_ context.Context, _ map[string]any, session *statex.SessionState) (contractx.ToolOutput, error) {
	fabrics := session.Fabric.RAGContext
	if len(fabrics) == 0 {
		return contractx.ToolOutput{
			Text: "Lass uns zuerst passende Stoffe suchen. Was für ein Stoff soll es denn sein?",
		}, nil
	}

	mid, luxury, ok := fabricx.PickPair(fabrics)
	if !ok {
		single := fabrics[0]
		session.Fabric.RecordShown(single)
		session.Fabric.Search = statex.FabricSearchShown
		return contractx.ToolOutput{
			Text: fmt.Sprintf("Hier ist %s (Code: %s). Was hältst du davon?", single.Name, single.Code),
			Metadata: map[string]any{
				"fabric_images": fabricImages([]statex.Fabric{single}, 1),
			},
		}, nil
	}

	session.Fabric.RecordShown(mid, luxury)
	session.Fabric.Search = statex.FabricSearchShown
	session.Fabric.PairHistory = append(session.Fabric.PairHistory, statex.FabricPair{
		MidCode:    mid.Code,
		LuxuryCode: luxury.Code,
		ShownAt:    t.now().UTC(),
	})
	if h := session.Handoffs.Design; h != nil {
		h.FabricReferences = []string{mid.Code, luxury.Code}
	}

	occasion := session.Customer.Occasion
	if occasion == "" {
		occasion = "deinen Anlass"
	}
	style := "modern"
	if h := session.Handoffs.Design; h != nil && h.Style != "" {
		style = h.Style
	}

	lines := []string{"2 Top-Stoffe – Mid & Luxury"}
	for _, f := range []statex.Fabric{mid, luxury} {
		lines = append(lines, fmt.Sprintf("- %s: Ref %s | %s | %s g/m² | FOTO: %s",
			fabricTitle(f.PriceTier, occasion, style), f.Code, f.Composition, weightLabel(f.WeightGSM), fabricx.ImageURL(f)))
	}

	if alts := similarAlternatives(fabrics, mid, luxury, 3); len(alts) > 0 {
		lines = append(lines, "", fmt.Sprintf("%d ähnliche Alternativen (ohne Foto)", len(alts)))
		for _, alt := range alts {
			lines = append(lines, fmt.Sprintf("- Ref %s | %s | %s g/m²", alt.Code, alt.Composition, weightLabel(alt.WeightGSM)))
		}
	}
	lines = append(lines, "", "Welcher gefällt dir besser?")

	return contractx.ToolOutput{
		Text: strings.Join(lines, "\n"),
		Metadata: map[string]any{
			"fabric_images": fabricImages([]statex.Fabric{mid, luxury}, 2),
		},
	}, nil
}

func fabricTitle(tier, occasion, style string) string {
	if tier == fabricx.TierLuxury {
		return "Luxus-Statement für " + occasion
	}
	return fmt.Sprintf("Allrounder (%s) für %s", style, occasion)
}

func weightLabel(weightGSM int) string {
	if weightGSM <= 0 {
		return "Allround"
	}
	return strconv.Itoa(weightGSM)
}

// similarAlternatives ranks the remaining candidates by closeness to the mid
// anchor: same color weighs most, then same pattern, then weight proximity.
func similarAlternatives(all []statex.Fabric, mid, luxury statex.Fabric, n int) []statex.Fabric {
	rest := make([]statex.Fabric, 0, len(all))
	for _, f := range all {
		if f.Code == mid.Code || f.Code == luxury.Code {
			continue
		}
		rest = append(rest, f)
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return similarity(mid, rest[i]) > similarity(mid, rest[j])
	})
	if len(rest) > n {
		rest = rest[:n]
	}
	return rest
}

func similarity(anchor, candidate statex.Fabric) float64 {
	score := 0.0
	if anchor.Color != "" && anchor.Color == candidate.Color {
		score += 1.5
	}
	if anchor.Pattern != "" && anchor.Pattern == candidate.Pattern {
		score += 1.2
	}
	if anchor.WeightGSM > 0 && candidate.WeightGSM > 0 {
		diff := anchor.WeightGSM - candidate.WeightGSM
		if diff < 0 {
			diff = -diff
		}
		switch {
		case diff <= 30:
			score += 1.0
		case diff <= 50:
			score += 0.6
		}
	}
	return score
}
