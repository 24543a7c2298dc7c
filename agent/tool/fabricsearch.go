package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	fabricx "github.com/laserhenk/henk-agent/agent/fabric"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

// FabricSearch queries the catalog and records the results as the session's
// RAG context. The top two results are presented immediately as images. A
// missing or unreachable catalog serves the curated fallback selection
// instead of failing the turn.
type FabricSearch struct {
	catalog FabricSearcher
	now     func() time.Time
}

func NewFabricSearch(catalog FabricSearcher, now func() time.Time) *FabricSearch {
	return &FabricSearch{catalog: catalog, now: now}
}

func (t *FabricSearch) Name() string { return contractx.ToolFabricSearch }

func (t *FabricSearch) Run(ctx context.Context, params map[string]any, session *statex.SessionState) (contractx.ToolOutput, error) {
	query := stringParam(params, "query", "prompt")
	if query == "" {
		return contractx.ToolOutput{Text: "Ich brauche noch ein paar Details für die Stoffsuche."}, nil
	}

	colors := stringSliceParam(params, "colors")
	if len(colors) == 0 {
		colors = session.DesignPreferences.PreferredColors
	}
	patterns := stringSliceParam(params, "patterns")
	if len(patterns) == 0 {
		if h := session.Handoffs.Design; h != nil {
			patterns = h.Patterns
		}
	}

	if t.catalog == nil {
		return fallbackOutput(session), nil
	}

	fabrics, err := t.catalog.Search(ctx, fabricx.Query{
		Text:     query,
		Colors:   colors,
		Patterns: patterns,
		Tier:     stringParam(params, "tier"),
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", session.SessionID).Msg("fabric catalog unreachable, serving fallback selection")
		return fallbackOutput(session), nil
	}
	if len(fabrics) == 0 {
		return contractx.ToolOutput{
			Text: "Dazu habe ich leider nichts Passendes gefunden. Magst du mir Farbe oder Muster etwas genauer beschreiben?",
		}, nil
	}

	session.Fabric.RAGContext = fabrics
	session.Fabric.Search = statex.FabricSearchShown

	images := fabricImages(fabrics, 2)
	for _, f := range firstN(fabrics, 2) {
		session.Fabric.RecordShown(f)
	}
	if mid, luxury, ok := fabricx.PickPair(fabrics); ok {
		session.Fabric.PairHistory = append(session.Fabric.PairHistory, statex.FabricPair{
			MidCode:    mid.Code,
			LuxuryCode: luxury.Code,
			ShownAt:    t.now().UTC(),
		})
	}

	var b strings.Builder
	b.WriteString("**Passende Stoffe für dich:**\n\n")
	for i, f := range firstN(fabrics, 5) {
		name := f.Name
		if name == "" {
			name = "Hochwertiger Stoff"
		}
		color := f.Color
		if color == "" {
			color = "klassisch"
		}
		pattern := f.Pattern
		if pattern == "" {
			pattern = "uni"
		}
		fmt.Fprintf(&b, "%d. %s (Code: %s) - Farbe: %s, Muster: %s\n", i+1, name, f.Code, color, pattern)
	}

	metadata := map[string]any{}
	if len(images) > 0 {
		metadata["fabric_images"] = images
	}
	if feedback := stringParam(params, "feedback"); feedback != "" {
		metadata["feedback"] = feedback
	}
	return contractx.ToolOutput{Text: b.String(), Metadata: metadata}, nil
}

// fallbackOutput serves the curated selection. The message names all three
// options, so all three are recorded as shown; feedback routing and
// positional picks ("die erste", "Nummer 2") keep working without a
// database.
func fallbackOutput(session *statex.SessionState) contractx.ToolOutput {
	fabrics := fabricx.FallbackFabrics()
	session.Fabric.RAGContext = fabrics
	session.Fabric.RecordShown(fabrics...)
	session.Fabric.Search = statex.FabricSearchShown
	return contractx.ToolOutput{Text: fabricx.FallbackText}
}

func fabricImages(fabrics []statex.Fabric, n int) []map[string]any {
	images := make([]map[string]any, 0, n)
	for _, f := range firstN(fabrics, n) {
		images = append(images, map[string]any{
			"url":         fabricx.ImageURL(f),
			"fabric_code": f.Code,
			"name":        f.Name,
			"color":       f.Color,
			"pattern":     f.Pattern,
		})
	}
	return images
}

func firstN(fabrics []statex.Fabric, n int) []statex.Fabric {
	if len(fabrics) > n {
		return fabrics[:n]
	}
	return fabrics
}
