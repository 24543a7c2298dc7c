package supervisor

import (
	"fmt"
	"regexp"
	"strings"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

// Structural short-circuits: business rules where session state plus a
// surface check decide the route outright. They run after keyword pre-routing
// and before any model call, and they are the only routing stage allowed to
// mutate the session.

const shortcutConfidence = 0.95

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

func (s *Supervisor) shortcut(message, lower string, session *statex.SessionState) (contractx.Action, bool) {
	if action, ok := captureEmail(message, session); ok {
		return action, true
	}
	if session.Image.Status == statex.MoodBoardPending {
		if action, ok := moodFeedbackStep(message, lower, session); ok {
			return action, true
		}
	}
	if action, ok := fabricFeedbackStep(message, lower, session); ok {
		return action, true
	}
	appt := session.Customer.Appointment
	if appt.Started() || strings.Contains(lower, "termin") {
		return s.appointmentStep(message, session), true
	}
	return contractx.Action{}, false
}

// captureEmail stores a literal address the moment it appears. Only the
// design flow gets re-entered directly; elsewhere the capture is a side
// effect and routing continues through the later stages.
func captureEmail(message string, session *statex.SessionState) (contractx.Action, bool) {
	if session.Customer.Email != "" {
		return contractx.Action{}, false
	}
	addr := emailRe.FindString(message)
	if addr == "" {
		return contractx.Action{}, false
	}
	session.Customer.Email = addr
	session.Progress.Contact = statex.ContactProvided
	if session.CurrentAgent != string(contractx.AgentDesign) {
		return contractx.Action{}, false
	}
	return contractx.Action{
		Kind:           contractx.ActionAgent,
		Name:           string(contractx.AgentDesign),
		ShouldContinue: true,
		Reasoning:      "captured email address, resuming design flow",
		Confidence:     shortcutConfidence,
	}, true
}

// moodFeedbackStep classifies the verdict on a pending mood board. Both
// outcomes route the design agent: it owns the patch application, the
// regeneration and the iteration cap.
func moodFeedbackStep(message, lower string, session *statex.SessionState) (contractx.Action, bool) {
	switch classifyMoodFeedback(lower) {
	case moodApproved:
		session.Image.Approve()
		return contractx.Action{
			Kind:           contractx.ActionAgent,
			Name:           string(contractx.AgentDesign),
			ShouldContinue: true,
			Reasoning:      "mood board approved, design flow continues",
			Confidence:     shortcutConfidence,
		}, true
	case moodRevision:
		session.Image.Feedback = message
		return contractx.Action{
			Kind:           contractx.ActionAgent,
			Name:           string(contractx.AgentDesign),
			ShouldContinue: true,
			Reasoning:      "mood board revision requested",
			Confidence:     shortcutConfidence,
		}, true
	}
	return contractx.Action{}, false
}

// fabricFeedbackStep re-opens the fabric search when shown fabrics were
// rejected before a favorite was picked.
func fabricFeedbackStep(message, lower string, session *statex.SessionState) (contractx.Action, bool) {
	if !session.Fabric.Search.Shown() || session.Fabric.Favorite != nil {
		return contractx.Action{}, false
	}
	kw, ok := isFabricFeedback(lower)
	if !ok {
		return contractx.Action{}, false
	}
	session.Fabric.Search = statex.FabricSearchFeedbackPending
	return contractx.Action{
		Kind:       contractx.ActionTool,
		Name:       contractx.ToolFabricSearch,
		Params:     map[string]any{"query": message, "feedback": kw},
		Reasoning:  fmt.Sprintf("fabric feedback (%q), searching again", kw),
		Confidence: shortcutConfidence,
	}, true
}

// appointmentStep collects location, date and time across turns, asks only
// for what is still missing, books exactly once and closes with the full
// configuration summary afterwards.
func (s *Supervisor) appointmentStep(message string, session *statex.SessionState) contractx.Action {
	appt := &session.Customer.Appointment
	parsed := ParseAppointment(message, s.now())
	if appt.Location == "" {
		appt.Location = parsed.Location
	}
	if appt.Date == "" {
		appt.Date = parsed.Date
	}
	if appt.Time == "" {
		appt.Time = parsed.Time
	}

	if appt.Booked() {
		return contractx.Action{
			Kind:        contractx.ActionEnd,
			UserMessage: session.ConfigurationSummary(),
			Reasoning:   "appointment already booked, closing with the configuration summary",
			Confidence:  shortcutConfidence,
		}
	}
	if !appt.Complete() {
		appt.Status = statex.AppointmentCollecting
		return contractx.Action{
			Kind:        contractx.ActionClarification,
			UserMessage: fmt.Sprintf("Damit ich den Termin eintragen kann, fehlt mir noch: %s.", strings.Join(appt.MissingParts(), ", ")),
			Reasoning:   "appointment details incomplete",
			Confidence:  shortcutConfidence,
		}
	}
	action := contractx.Action{
		Kind: contractx.ActionTool,
		Name: contractx.ToolAppointment,
		Params: map[string]any{
			"location": appt.Location,
			"date":     appt.Date,
			"time":     appt.Time,
		},
		Reasoning:  "appointment details complete, booking",
		Confidence: shortcutConfidence,
	}
	// In the measurement phase the agent wraps up right after the booking
	// and hands the job to the atelier team.
	if session.CurrentAgent == string(contractx.AgentMeasurement) {
		action.ShouldContinue = true
		action.ReturnToAgent = contractx.AgentMeasurement
	}
	return action
}
