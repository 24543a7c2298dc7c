package tool

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	fabricx "github.com/laserhenk/henk-agent/agent/fabric"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

var testNow = func() time.Time {
	return time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
}

func newTestSession() *statex.SessionState {
	return statex.NewSessionState("sess-test", testNow())
}

type fakeSearcher struct {
	fabrics   []statex.Fabric
	err       error
	lastQuery fabricx.Query
}

func (f *fakeSearcher) Search(_ context.Context, q fabricx.Query) ([]statex.Fabric, error) {
	f.lastQuery = q
	return f.fabrics, f.err
}

func (f *fakeSearcher) ByCode(_ context.Context, code string) (statex.Fabric, error) {
	for _, fb := range f.fabrics {
		if fb.Code == code {
			return fb, nil
		}
	}
	return statex.Fabric{}, fabricx.ErrNotFound
}

func twoTierFabrics() []statex.Fabric {
	return []statex.Fabric{
		{Code: "VBC-301", Name: "Vitale Barberis Twill", Color: "navy", Pattern: "uni", PriceTier: fabricx.TierMid},
		{Code: "LP-120", Name: "Loro Piana Flanell", Color: "grau", Pattern: "melange", PriceTier: fabricx.TierLuxury},
	}
}

func TestFabricSearchEmptyQuery(t *testing.T) {
	t.Parallel()

	tool := NewFabricSearch(&fakeSearcher{}, testNow)
	out, err := tool.Run(context.Background(), map[string]any{}, newTestSession())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.Text, "Details für die Stoffsuche") {
		t.Fatalf("Run() text = %q, want detail request", out.Text)
	}
}

func TestFabricSearchOfflineServesFallback(t *testing.T) {
	t.Parallel()

	session := newTestSession()
	tool := NewFabricSearch(nil, testNow)
	out, err := tool.Run(context.Background(), map[string]any{"query": "navy wolle"}, session)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Text != fabricx.FallbackText {
		t.Fatalf("Run() text = %q, want fallback text", out.Text)
	}
	if !session.Fabric.Search.Shown() {
		t.Fatal("fallback must still mark fabrics as shown")
	}
	if got := len(session.Fabric.RAGContext); got != 3 {
		t.Fatalf("len(RAGContext) = %d, want 3", got)
	}
	// The named trio must be on record so "die erste" or "Nummer 2" can be
	// resolved against it afterwards.
	if got := len(session.Fabric.Shown); got != 3 {
		t.Fatalf("len(Shown) = %d, want the named trio", got)
	}
	if session.Fabric.Shown[0].Code != "NAVY_WOOL_120" {
		t.Fatalf("Shown[0].Code = %q, want NAVY_WOOL_120", session.Fabric.Shown[0].Code)
	}
}

func TestFabricSearchCatalogErrorServesFallback(t *testing.T) {
	t.Parallel()

	session := newTestSession()
	tool := NewFabricSearch(&fakeSearcher{err: errors.New("connection refused")}, testNow)
	out, err := tool.Run(context.Background(), map[string]any{"query": "navy"}, session)
	if err != nil {
		t.Fatalf("Run() error = %v, catalog failures must not fail the turn", err)
	}
	if out.Text != fabricx.FallbackText {
		t.Fatalf("Run() text = %q, want fallback text", out.Text)
	}
	if got := len(session.Fabric.Shown); got != 3 {
		t.Fatalf("len(Shown) = %d, want the named trio", got)
	}
}

func TestFabricSearchNoResults(t *testing.T) {
	t.Parallel()

	session := newTestSession()
	tool := NewFabricSearch(&fakeSearcher{}, testNow)
	out, err := tool.Run(context.Background(), map[string]any{"query": "pinke seide"}, session)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.Text, "nichts Passendes gefunden") {
		t.Fatalf("Run() text = %q", out.Text)
	}
	if session.Fabric.Search.Shown() {
		t.Fatal("empty result must not mark fabrics as shown")
	}
}

func TestFabricSearchRecordsResults(t *testing.T) {
	t.Parallel()

	session := newTestSession()
	session.DesignPreferences.PreferredColors = []string{"navy"}
	searcher := &fakeSearcher{fabrics: twoTierFabrics()}
	tool := NewFabricSearch(searcher, testNow)

	out, err := tool.Run(context.Background(), map[string]any{"query": "wolle für hochzeit"}, session)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if searcher.lastQuery.Text != "wolle für hochzeit" {
		t.Fatalf("query text = %q", searcher.lastQuery.Text)
	}
	if len(searcher.lastQuery.Colors) != 1 || searcher.lastQuery.Colors[0] != "navy" {
		t.Fatalf("query colors = %v, want session preference", searcher.lastQuery.Colors)
	}
	if !strings.Contains(out.Text, "VBC-301") || !strings.Contains(out.Text, "LP-120") {
		t.Fatalf("Run() text = %q, want both codes listed", out.Text)
	}
	if got := len(session.Fabric.Shown); got != 2 {
		t.Fatalf("len(Shown) = %d, want 2", got)
	}
	if got := len(session.Fabric.PairHistory); got != 1 {
		t.Fatalf("len(PairHistory) = %d, want 1", got)
	}
	pair := session.Fabric.PairHistory[0]
	if pair.MidCode != "VBC-301" || pair.LuxuryCode != "LP-120" {
		t.Fatalf("pair = %+v", pair)
	}
	images, ok := out.Metadata["fabric_images"].([]map[string]any)
	if !ok || len(images) != 2 {
		t.Fatalf("fabric_images metadata = %v", out.Metadata["fabric_images"])
	}
}

func TestShowFabricsWithoutSearch(t *testing.T) {
	t.Parallel()

	tool := NewShowFabrics(testNow)
	out, err := tool.Run(context.Background(), nil, newTestSession())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.Text, "zuerst passende Stoffe suchen") {
		t.Fatalf("Run() text = %q", out.Text)
	}
}

func TestShowFabricsPresentsPair(t *testing.T) {
	t.Parallel()

	session := newTestSession()
	session.Fabric.RAGContext = twoTierFabrics()
	tool := NewShowFabrics(testNow)

	out, err := tool.Run(context.Background(), nil, session)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, want := range []string{"2 Top-Stoffe", "Ref VBC-301", "Ref LP-120", "Luxus-Statement für deinen Anlass"} {
		if !strings.Contains(out.Text, want) {
			t.Fatalf("Run() text = %q, missing %q", out.Text, want)
		}
	}
	if got := len(session.Fabric.Shown); got != 2 {
		t.Fatalf("len(Shown) = %d, want 2", got)
	}
	if got := len(session.Fabric.PairHistory); got != 1 {
		t.Fatalf("len(PairHistory) = %d, want 1", got)
	}
}

func TestShowFabricsListsAlternatives(t *testing.T) {
	t.Parallel()

	session := newTestSession()
	session.Fabric.RAGContext = append(twoTierFabrics(),
		statex.Fabric{Code: "VBC-305", Name: "Vitale Barberis Hopsack", Color: "navy", Pattern: "uni", PriceTier: fabricx.TierMid, WeightGSM: 260},
		statex.Fabric{Code: "DRP-77", Name: "Drago Serge", Color: "grau", Pattern: "uni", PriceTier: fabricx.TierMid, WeightGSM: 280},
	)
	tool := NewShowFabrics(testNow)

	out, err := tool.Run(context.Background(), nil, session)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.Text, "2 ähnliche Alternativen (ohne Foto)") {
		t.Fatalf("Run() text = %q, want alternatives block", out.Text)
	}
	// Same color as the mid anchor ranks first.
	if strings.Index(out.Text, "VBC-305") > strings.Index(out.Text, "DRP-77") {
		t.Fatalf("Run() text = %q, want navy alternative ranked first", out.Text)
	}
}

func TestShowFabricsSingleCandidate(t *testing.T) {
	t.Parallel()

	session := newTestSession()
	session.Fabric.RAGContext = twoTierFabrics()[:1]
	tool := NewShowFabrics(testNow)

	out, err := tool.Run(context.Background(), nil, session)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.Text, "VBC-301") {
		t.Fatalf("Run() text = %q", out.Text)
	}
	if got := len(session.Fabric.PairHistory); got != 0 {
		t.Fatalf("len(PairHistory) = %d, want 0 for a single fabric", got)
	}
}
