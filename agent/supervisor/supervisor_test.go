package supervisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

type fakeDecisionModel struct {
	dec     contractx.RouteDecision
	err     error
	calls   int
	lastReq contractx.RouteRequest
}

func (m *fakeDecisionModel) Decide(_ context.Context, req contractx.RouteRequest) (contractx.RouteDecision, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return contractx.RouteDecision{}, m.err
	}
	return m.dec, nil
}

func testNow() time.Time {
	return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
}

func newTestSession(t *testing.T) *statex.SessionState {
	t.Helper()
	return statex.NewSessionState("sess-1", testNow())
}

// completeNeeds fills occasion, timing and a color so the needs phase reads
// as done and the design gate opens.
func completeNeeds(s *statex.SessionState) {
	s.Customer.Occasion = "hochzeit"
	s.Customer.EventDate = "2026-09-12"
	s.DesignPreferences.PreferredColors = []string{"navy"}
}

func newSupervisor(model contractx.DecisionModel) *Supervisor {
	s := New(model, "Du bist der Routing-Supervisor.")
	s.now = testNow
	return s
}

func TestDecideKeywordFabric(t *testing.T) {
	t.Parallel()

	model := &fakeDecisionModel{}
	sup := newSupervisor(model)
	session := newTestSession(t)

	action := sup.Decide(context.Background(), "Ich suche einen Stoff in Blau", session)

	if action.Kind != contractx.ActionTool || action.Name != contractx.ToolFabricSearch {
		t.Fatalf("Decide() = %s/%s, want tool/%s", action.Kind, action.Name, contractx.ToolFabricSearch)
	}
	if action.Confidence != preRouteConfidence {
		t.Fatalf("Confidence = %v, want %v", action.Confidence, preRouteConfidence)
	}
	if got := action.Params["query"]; got != "Ich suche einen Stoff in Blau" {
		t.Fatalf("Params[query] = %v, want original message", got)
	}
	if model.calls != 0 {
		t.Fatalf("model called %d times, want 0", model.calls)
	}
}

func TestDecideKeywordPricing(t *testing.T) {
	t.Parallel()

	sup := newSupervisor(nil)
	session := newTestSession(t)

	action := sup.Decide(context.Background(), "Was kostet ein Anzug bei euch?", session)

	if action.Kind != contractx.ActionTool || action.Name != contractx.ToolPricing {
		t.Fatalf("Decide() = %s/%s, want tool/%s", action.Kind, action.Name, contractx.ToolPricing)
	}
}

func TestDecideKeywordComparison(t *testing.T) {
	t.Parallel()

	sup := newSupervisor(nil)
	session := newTestSession(t)

	action := sup.Decide(context.Background(), "Was ist der Unterschied zwischen den beiden?", session)

	if action.Kind != contractx.ActionTool || action.Name != contractx.ToolComparison {
		t.Fatalf("Decide() = %s/%s, want tool/%s", action.Kind, action.Name, contractx.ToolComparison)
	}
}

func TestDecideKeywordMeasurement(t *testing.T) {
	t.Parallel()

	model := &fakeDecisionModel{}
	sup := newSupervisor(model)
	session := newTestSession(t)

	action := sup.Decide(context.Background(), "Können wir meine Maße aufnehmen?", session)

	if action.Kind != contractx.ActionAgent || action.Name != string(contractx.AgentMeasurement) {
		t.Fatalf("Decide() = %s/%s, want agent/%s", action.Kind, action.Name, contractx.AgentMeasurement)
	}
	if !action.ShouldContinue {
		t.Fatal("agent route should continue automatically")
	}
	if model.calls != 0 {
		t.Fatalf("model called %d times, want 0", model.calls)
	}
}

func TestDecideDesignKeywordNeedsFabricFirst(t *testing.T) {
	t.Parallel()

	sup := newSupervisor(nil)
	session := newTestSession(t)

	// Without a chosen fabric the design-detail route must not fire; with no
	// model configured the turn falls back to the recommended phase.
	action := sup.Decide(context.Background(), "Welche Reversform empfiehlst du?", session)
	if action.Kind != contractx.ActionAgent || action.Name != string(contractx.AgentNeedsAssessment) {
		t.Fatalf("Decide() = %s/%s, want agent/%s", action.Kind, action.Name, contractx.AgentNeedsAssessment)
	}

	completeNeeds(session)
	session.Fabric.Favorite = &statex.Fabric{Code: "NAVY_WOOL", Color: "navy"}

	action = sup.Decide(context.Background(), "Welche Reversform empfiehlst du?", session)
	if action.Kind != contractx.ActionAgent || action.Name != string(contractx.AgentDesign) {
		t.Fatalf("Decide() with fabric = %s/%s, want agent/%s", action.Kind, action.Name, contractx.AgentDesign)
	}
	if !action.ShouldContinue {
		t.Fatal("agent route should continue automatically")
	}
}

func TestDecideCapturesEmail(t *testing.T) {
	t.Parallel()

	model := &fakeDecisionModel{}
	sup := newSupervisor(model)
	session := newTestSession(t)
	completeNeeds(session)
	session.CurrentAgent = string(contractx.AgentDesign)

	action := sup.Decide(context.Background(), "Meine E-Mail ist max.mustermann@example.com", session)

	if session.Customer.Email != "max.mustermann@example.com" {
		t.Fatalf("Customer.Email = %q, want captured address", session.Customer.Email)
	}
	if session.Progress.Contact != statex.ContactProvided {
		t.Fatalf("Progress.Contact = %s, want %s", session.Progress.Contact, statex.ContactProvided)
	}
	if action.Kind != contractx.ActionAgent || action.Name != string(contractx.AgentDesign) {
		t.Fatalf("Decide() = %s/%s, want agent/%s", action.Kind, action.Name, contractx.AgentDesign)
	}
	if model.calls != 0 {
		t.Fatalf("model called %d times, want 0", model.calls)
	}
}

func TestDecideEmailOutsideDesignFallsThrough(t *testing.T) {
	t.Parallel()

	sup := newSupervisor(nil)
	session := newTestSession(t)

	action := sup.Decide(context.Background(), "Erreichbar unter anna@example.org", session)

	if session.Customer.Email != "anna@example.org" {
		t.Fatalf("Customer.Email = %q, want captured address", session.Customer.Email)
	}
	// Capture is a side effect only; routing still follows the fallback.
	if action.Kind != contractx.ActionAgent || action.Name != string(contractx.AgentNeedsAssessment) {
		t.Fatalf("Decide() = %s/%s, want agent/%s", action.Kind, action.Name, contractx.AgentNeedsAssessment)
	}
}

func TestDecideFabricFeedbackReissuesSearch(t *testing.T) {
	t.Parallel()

	sup := newSupervisor(nil)
	session := newTestSession(t)
	session.Fabric.Search = statex.FabricSearchShown
	session.Fabric.RecordShown(statex.Fabric{Code: "NAVY_WOOL"})

	action := sup.Decide(context.Background(), "Die sind mir alle zu hell", session)

	if action.Kind != contractx.ActionTool || action.Name != contractx.ToolFabricSearch {
		t.Fatalf("Decide() = %s/%s, want tool/%s", action.Kind, action.Name, contractx.ToolFabricSearch)
	}
	if session.Fabric.Search != statex.FabricSearchFeedbackPending {
		t.Fatalf("Search = %s, want %s", session.Fabric.Search, statex.FabricSearchFeedbackPending)
	}
	if got := action.Params["feedback"]; got != "zu hell" {
		t.Fatalf("Params[feedback] = %v, want matched keyword", got)
	}
}

func TestDecideMoodApproval(t *testing.T) {
	t.Parallel()

	sup := newSupervisor(nil)
	session := newTestSession(t)
	completeNeeds(session)
	session.Image.RecordGenerated("https://img.example/mood-1.png", "mood_board", testNow())

	action := sup.Decide(context.Background(), "Das gefällt mir sehr gut!", session)

	if action.Kind != contractx.ActionAgent || action.Name != string(contractx.AgentDesign) {
		t.Fatalf("Decide() = %s/%s, want agent/%s", action.Kind, action.Name, contractx.AgentDesign)
	}
	if session.Image.Status != statex.MoodBoardApproved {
		t.Fatalf("Image.Status = %s, want %s", session.Image.Status, statex.MoodBoardApproved)
	}
}

func TestDecideMoodRevision(t *testing.T) {
	t.Parallel()

	sup := newSupervisor(nil)
	session := newTestSession(t)
	completeNeeds(session)
	session.Image.RecordGenerated("https://img.example/mood-1.png", "mood_board", testNow())

	action := sup.Decide(context.Background(), "Bitte etwas dunkler und schlichter", session)

	if action.Kind != contractx.ActionAgent || action.Name != string(contractx.AgentDesign) {
		t.Fatalf("Decide() = %s/%s, want agent/%s", action.Kind, action.Name, contractx.AgentDesign)
	}
	if !action.ShouldContinue {
		t.Fatal("ShouldContinue = false, want true")
	}
	if session.Image.Feedback != "Bitte etwas dunkler und schlichter" {
		t.Fatalf("Image.Feedback = %q, want the raw message", session.Image.Feedback)
	}
	if session.Image.Status != statex.MoodBoardPending {
		t.Fatalf("Image.Status = %s, want still pending", session.Image.Status)
	}
}

func TestDecideMoodRevisionCapReached(t *testing.T) {
	t.Parallel()

	sup := newSupervisor(nil)
	session := newTestSession(t)
	completeNeeds(session)
	for i := 0; i < statex.MoodBoardMaxIterations; i++ {
		session.Image.RecordGenerated("https://img.example/mood.png", "mood_board", testNow())
	}

	action := sup.Decide(context.Background(), "Nochmal anders bitte", session)

	if action.Kind != contractx.ActionAgent || action.Name != string(contractx.AgentDesign) {
		t.Fatalf("Decide() = %s/%s, want agent/%s after cap", action.Kind, action.Name, contractx.AgentDesign)
	}
}

func TestDecideAppointmentCollectsMissingParts(t *testing.T) {
	t.Parallel()

	sup := newSupervisor(nil)
	session := newTestSession(t)

	action := sup.Decide(context.Background(), "Können wir einen Termin am 12.02. machen?", session)

	if action.Kind != contractx.ActionClarification {
		t.Fatalf("Decide() kind = %s, want clarification", action.Kind)
	}
	if !strings.Contains(action.UserMessage, "Ort") || !strings.Contains(action.UserMessage, "Uhrzeit") {
		t.Fatalf("UserMessage = %q, want missing Ort and Uhrzeit", action.UserMessage)
	}
	if strings.Contains(action.UserMessage, "Datum") {
		t.Fatalf("UserMessage = %q, must not list Datum", action.UserMessage)
	}
	appt := session.Customer.Appointment
	if appt.Status != statex.AppointmentCollecting || appt.Date != "12.02.2026" {
		t.Fatalf("appointment = %+v, want collecting with date 12.02.2026", appt)
	}
}

func TestDecideAppointmentBooksWhenComplete(t *testing.T) {
	t.Parallel()

	sup := newSupervisor(nil)
	session := newTestSession(t)
	session.Customer.Appointment = statex.Appointment{
		Status: statex.AppointmentCollecting,
		Date:   "12.02.2026",
	}

	action := sup.Decide(context.Background(), "Um 15:00 im Showroom bitte", session)

	if action.Kind != contractx.ActionTool || action.Name != contractx.ToolAppointment {
		t.Fatalf("Decide() = %s/%s, want tool/%s", action.Kind, action.Name, contractx.ToolAppointment)
	}
	if action.Params["location"] != "Showroom" || action.Params["time"] != "15:00" {
		t.Fatalf("Params = %v, want parsed location and time", action.Params)
	}
	if action.ShouldContinue {
		t.Fatalf("booking outside the measurement phase must suspend, got continue")
	}
}

func TestDecideAppointmentBookingContinuesMeasurement(t *testing.T) {
	t.Parallel()

	sup := newSupervisor(nil)
	session := newTestSession(t)
	session.CurrentAgent = string(contractx.AgentMeasurement)
	session.Customer.Appointment = statex.Appointment{
		Status: statex.AppointmentCollecting,
		Date:   "12.02.2026",
	}

	action := sup.Decide(context.Background(), "Um 15:00 im Showroom bitte", session)

	if action.Kind != contractx.ActionTool || action.Name != contractx.ToolAppointment {
		t.Fatalf("Decide() = %s/%s, want tool/%s", action.Kind, action.Name, contractx.ToolAppointment)
	}
	if !action.ShouldContinue || action.ReturnToAgent != contractx.AgentMeasurement {
		t.Fatalf("continuation = %v/%q, want true/%s", action.ShouldContinue, action.ReturnToAgent, contractx.AgentMeasurement)
	}
}

func TestDecideAppointmentBookedEndsWithSummary(t *testing.T) {
	t.Parallel()

	sup := newSupervisor(nil)
	session := newTestSession(t)
	session.Customer.Appointment = statex.Appointment{
		Status:   statex.AppointmentBooked,
		Location: "Showroom",
		Date:     "12.02.2026",
		Time:     "15:00",
	}

	action := sup.Decide(context.Background(), "Danke dir!", session)

	if action.Kind != contractx.ActionEnd {
		t.Fatalf("Decide() kind = %s, want end", action.Kind)
	}
	if !strings.Contains(action.UserMessage, "Konfiguration") {
		t.Fatalf("UserMessage = %q, want configuration summary", action.UserMessage)
	}
}

func TestDecideOfflineFallback(t *testing.T) {
	t.Parallel()

	sup := newSupervisor(nil)
	session := newTestSession(t)

	action := sup.Decide(context.Background(), "Hallo, ich brauche Hilfe", session)

	if action.Kind != contractx.ActionAgent || action.Name != string(contractx.AgentNeedsAssessment) {
		t.Fatalf("Decide() = %s/%s, want agent/%s", action.Kind, action.Name, contractx.AgentNeedsAssessment)
	}
	if action.Confidence != fallbackConfidence {
		t.Fatalf("Confidence = %v, want %v", action.Confidence, fallbackConfidence)
	}
	if !action.ShouldContinue {
		t.Fatal("fallback agent route should continue automatically")
	}
}

func TestDecideModelRouteGated(t *testing.T) {
	t.Parallel()

	model := &fakeDecisionModel{dec: contractx.RouteDecision{
		NextDestination: string(contractx.AgentDesign),
		Reasoning:       "user asks about style",
		Confidence:      0.8,
	}}
	sup := newSupervisor(model)
	session := newTestSession(t)

	action := sup.Decide(context.Background(), "Hallo zusammen", session)

	if action.Name != string(contractx.AgentNeedsAssessment) {
		t.Fatalf("gated route = %s, want %s", action.Name, contractx.AgentNeedsAssessment)
	}
	if !strings.Contains(action.Reasoning, "completeness gate") {
		t.Fatalf("Reasoning = %q, want gate note", action.Reasoning)
	}
	if model.lastReq.SystemPrompt == "" || model.lastReq.UserMessage != "Hallo zusammen" {
		t.Fatalf("model request = %+v, want populated prompt and message", model.lastReq)
	}
}

func TestDecideModelMeasurementNotGated(t *testing.T) {
	t.Parallel()

	model := &fakeDecisionModel{dec: contractx.RouteDecision{
		NextDestination: string(contractx.AgentMeasurement),
		Confidence:      0.7,
	}}
	sup := newSupervisor(model)
	session := newTestSession(t)

	action := sup.Decide(context.Background(), "Wie läuft das ab bei euch?", session)

	if action.Kind != contractx.ActionAgent || action.Name != string(contractx.AgentMeasurement) {
		t.Fatalf("Decide() = %s/%s, want ungated agent/%s", action.Kind, action.Name, contractx.AgentMeasurement)
	}
}

func TestDecideModelToolNeverAutoContinues(t *testing.T) {
	t.Parallel()

	model := &fakeDecisionModel{dec: contractx.RouteDecision{
		NextDestination: contractx.ToolCRMLead,
		ActionParams:    map[string]any{"note": "vip"},
		Confidence:      0.9,
	}}
	sup := newSupervisor(model)
	session := newTestSession(t)

	action := sup.Decide(context.Background(), "Bitte leg mich an", session)

	if action.Kind != contractx.ActionTool || action.Name != contractx.ToolCRMLead {
		t.Fatalf("Decide() = %s/%s, want tool/%s", action.Kind, action.Name, contractx.ToolCRMLead)
	}
	if action.ShouldContinue {
		t.Fatal("router tool action must not auto-continue")
	}
	if action.Params["note"] != "vip" {
		t.Fatalf("Params = %v, want forwarded action params", action.Params)
	}
}

func TestDecideModelFailureFallsBack(t *testing.T) {
	t.Parallel()

	model := &fakeDecisionModel{err: errors.New("upstream timeout")}
	sup := newSupervisor(model)
	session := newTestSession(t)
	completeNeeds(session)

	action := sup.Decide(context.Background(), "Wie geht es weiter?", session)

	if action.Kind != contractx.ActionAgent || action.Name != string(contractx.AgentDesign) {
		t.Fatalf("Decide() = %s/%s, want recommended-phase agent/%s", action.Kind, action.Name, contractx.AgentDesign)
	}
	if action.Confidence != fallbackConfidence {
		t.Fatalf("Confidence = %v, want %v", action.Confidence, fallbackConfidence)
	}
}

func TestDecideModelUnknownDestinationFallsBack(t *testing.T) {
	t.Parallel()

	model := &fakeDecisionModel{dec: contractx.RouteDecision{
		NextDestination: "warehouse",
		Confidence:      0.9,
	}}
	sup := newSupervisor(model)
	session := newTestSession(t)

	action := sup.Decide(context.Background(), "Irgendwas", session)

	if action.Kind != contractx.ActionAgent || action.Name != string(contractx.AgentNeedsAssessment) {
		t.Fatalf("Decide() = %s/%s, want fallback agent", action.Kind, action.Name)
	}
}

func TestDecideModelClarificationDefaultText(t *testing.T) {
	t.Parallel()

	model := &fakeDecisionModel{dec: contractx.RouteDecision{
		NextDestination: contractx.DestinationClarification,
		Confidence:      0.5,
	}}
	sup := newSupervisor(model)
	session := newTestSession(t)

	action := sup.Decide(context.Background(), "???", session)

	if action.Kind != contractx.ActionClarification {
		t.Fatalf("Decide() kind = %s, want clarification", action.Kind)
	}
	if action.UserMessage != clarificationDefault {
		t.Fatalf("UserMessage = %q, want default clarification", action.UserMessage)
	}
}

func TestDecideHistoryWindow(t *testing.T) {
	t.Parallel()

	model := &fakeDecisionModel{dec: contractx.RouteDecision{
		NextDestination: string(contractx.AgentNeedsAssessment),
		Confidence:      0.6,
	}}
	sup := newSupervisor(model)
	session := newTestSession(t)
	for i := 0; i < 30; i++ {
		session.AppendUser("Nachricht")
		session.AppendAssistant("Antwort", "needs_assessment", nil)
	}

	sup.Decide(context.Background(), "Weiter bitte", session)

	if len(model.lastReq.History) != historyWindow {
		t.Fatalf("history length = %d, want %d", len(model.lastReq.History), historyWindow)
	}
}

func TestBuildSystemPromptContext(t *testing.T) {
	t.Parallel()

	session := newTestSession(t)
	session.Customer.Name = "Max"
	session.Customer.Occasion = "hochzeit"

	sup := newSupervisor(nil)
	prompt := buildSystemPrompt(sup.basePrompt, session, sup.assess(session))

	for _, want := range []string{
		"## Aktueller Kontext",
		"Empfohlene Phase: needs_assessment",
		"Fehlende Felder:",
		"Name: Max",
		"Anlass: hochzeit",
		"Datenvollständigkeit:",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
