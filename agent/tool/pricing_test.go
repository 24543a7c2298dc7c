package tool

import (
	"context"
	"strings"
	"testing"

	statex "github.com/laserhenk/henk-agent/agent/state"
)

func sessionWithFavorite() *statex.SessionState {
	session := newTestSession()
	fav := twoTierFabrics()[0]
	session.Fabric.Favorite = &fav
	return session
}

func TestPricingWithoutFabricDefersQuote(t *testing.T) {
	t.Parallel()

	tool := NewPricing()
	out, err := tool.Run(context.Background(), nil, newTestSession())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.Text, "brauche ich noch deine Stoffauswahl") {
		t.Fatalf("Run() text = %q, want fabric-first policy", out.Text)
	}
	if out.Metadata != nil {
		t.Fatalf("deferral must not carry price metadata, got %v", out.Metadata)
	}
}

func TestPricingBaseSuit(t *testing.T) {
	t.Parallel()

	tool := NewPricing()
	out, err := tool.Run(context.Background(), nil, sessionWithFavorite())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, want := range []string{"Bespoke-Anzug (2-teilig)", "Vitale Barberis Twill (VBC-301)", "Basis: 1800€", "**Gesamt: 1800€**"} {
		if !strings.Contains(out.Text, want) {
			t.Fatalf("Run() text = %q, missing %q", out.Text, want)
		}
	}
	if got, _ := out.Metadata["price_total"].(int); got != 1800 {
		t.Fatalf("price_total = %v, want 1800", out.Metadata["price_total"])
	}
}

func TestPricingAppliesAdjustments(t *testing.T) {
	t.Parallel()

	tool := NewPricing()
	params := map[string]any{"monogram": true, "custom_lining": true, "custom_buttons": true}
	out, err := tool.Run(context.Background(), params, sessionWithFavorite())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, want := range []string{"+ 50€ Monogramm", "+ 150€ Custom-Innenfutter", "+ 80€ Spezial-Knöpfe", "**Gesamt: 2080€**"} {
		if !strings.Contains(out.Text, want) {
			t.Fatalf("Run() text = %q, missing %q", out.Text, want)
		}
	}
}

func TestPricingVestConvertsSuitToThreePiece(t *testing.T) {
	t.Parallel()

	tool := NewPricing()
	out, err := tool.Run(context.Background(), map[string]any{"add_vest": true}, sessionWithFavorite())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, want := range []string{"Bespoke-Anzug (3-teilig)", "+ 400€ Weste", "**Gesamt: 2200€**"} {
		if !strings.Contains(out.Text, want) {
			t.Fatalf("Run() text = %q, missing %q", out.Text, want)
		}
	}
	if got, _ := out.Metadata["garment_type"].(string); got != "three_piece" {
		t.Fatalf("garment_type = %q, want three_piece", got)
	}
}

func TestPricingReadsVestPreferenceFromSession(t *testing.T) {
	t.Parallel()

	session := sessionWithFavorite()
	wantsVest := true
	session.DesignPreferences.WantsVest = &wantsVest

	tool := NewPricing()
	out, err := tool.Run(context.Background(), nil, session)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.Text, "**Gesamt: 2200€**") {
		t.Fatalf("Run() text = %q, want vest included", out.Text)
	}
}

func TestPricingThreePieceDoesNotDoubleCountVest(t *testing.T) {
	t.Parallel()

	tool := NewPricing()
	params := map[string]any{"garment_type": "three_piece", "add_vest": true}
	out, err := tool.Run(context.Background(), params, sessionWithFavorite())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.Text, "**Gesamt: 2100€**") {
		t.Fatalf("Run() text = %q, vest is already part of a three-piece", out.Text)
	}
}

func TestComparisonNeedsTwoItems(t *testing.T) {
	t.Parallel()

	tool := NewComparison()
	out, err := tool.Run(context.Background(), map[string]any{"items": []string{"wolle"}}, newTestSession())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Text != "Ich brauche mindestens 2 Optionen zum Vergleichen." {
		t.Fatalf("Run() text = %q", out.Text)
	}
}

func TestComparisonEnrichesKnownFabrics(t *testing.T) {
	t.Parallel()

	session := newTestSession()
	session.Fabric.RecordShown(twoTierFabrics()...)
	tool := NewComparison()

	params := map[string]any{"items": []string{"VBC-301", "LP-120"}, "comparison_type": "Stoffe"}
	out, err := tool.Run(context.Background(), params, session)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, want := range []string{"**Vergleich (Stoffe):**", "Option 1: Vitale Barberis Twill (VBC-301)", "Option 2: Loro Piana Flanell (LP-120)", "Luxus-Klasse"} {
		if !strings.Contains(out.Text, want) {
			t.Fatalf("Run() text = %q, missing %q", out.Text, want)
		}
	}
}

func TestComparisonFallsBackToShownPair(t *testing.T) {
	t.Parallel()

	session := newTestSession()
	session.Fabric.RecordShown(twoTierFabrics()...)
	tool := NewComparison()

	out, err := tool.Run(context.Background(), nil, session)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.Text, "VBC-301") || !strings.Contains(out.Text, "LP-120") {
		t.Fatalf("Run() text = %q, want the last shown pair", out.Text)
	}
}

func TestMarkFavoriteNeedsCode(t *testing.T) {
	t.Parallel()

	tool := NewMarkFavorite()
	out, err := tool.Run(context.Background(), nil, newTestSession())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.Text, "Welchen Stoff") {
		t.Fatalf("Run() text = %q", out.Text)
	}
}

func TestMarkFavoriteUnknownCode(t *testing.T) {
	t.Parallel()

	tool := NewMarkFavorite()
	out, err := tool.Run(context.Background(), map[string]any{"fabric_code": "XX-1"}, newTestSession())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.Text, "nicht gefunden") {
		t.Fatalf("Run() text = %q", out.Text)
	}
}

func TestMarkFavoriteFromShownFabrics(t *testing.T) {
	t.Parallel()

	session := newTestSession()
	session.Fabric.RecordShown(twoTierFabrics()...)
	session.DesignPreferences.RequestedFabricCode = "LP-120"
	tool := NewMarkFavorite()

	out, err := tool.Run(context.Background(), nil, session)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if session.Fabric.Favorite == nil || session.Fabric.Favorite.Code != "LP-120" {
		t.Fatalf("Favorite = %+v", session.Fabric.Favorite)
	}
	if session.DesignPreferences.RequestedFabricCode != "" {
		t.Fatal("requested code should be cleared once resolved")
	}
	if !strings.Contains(out.Text, "LP-120 ist jetzt dein Favorit") {
		t.Fatalf("Run() text = %q", out.Text)
	}
}
