// Package measure implements the measurement agent. It offers the two ways
// to the body data (SAIA 3D self-scan or in-person appointment), accepts
// dictated values, keeps existing customers out of the scan loop and finally
// hands the whole job to the atelier team as a validated package.
package measure

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	"github.com/laserhenk/henk-agent/agent/llm"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

// measureLLMOutput is the JSON shape the conversational model must return.
// Measurements carries only values the customer actually stated, in cm.
type measureLLMOutput struct {
	Message            string             `json:"message"`
	RequestScan        bool               `json:"request_scan,omitempty"`
	RequestAppointment bool               `json:"request_appointment,omitempty"`
	Measurements       map[string]float64 `json:"measurements,omitempty"`
}

type Agent struct {
	runner compose.Runnable[map[string]any, measureLLMOutput]
	system string
}

// New builds the measurement agent. A nil chat model is valid: the agent
// then runs purely on scripted replies and keyword extraction.
func New(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*Agent, error) {
	a := &Agent{system: systemPrompt}
	if chatModel == nil {
		return a, nil
	}
	runner, err := llm.CompileStructuredGraph[measureLLMOutput](ctx, chatModel, "measure_agent")
	if err != nil {
		return nil, fmt.Errorf("measure agent: %w", err)
	}
	a.runner = runner
	return a, nil
}

func (a *Agent) Name() contractx.AgentName { return contractx.AgentMeasurement }

const offlineMeasureOpener = "Jetzt geht es an deine Maße! Du hast zwei Wege: " +
	"Mit unserem SAIA 3D-Scan misst du dich in ein paar Minuten selbst - du brauchst nur dein Smartphone. " +
	"Oder du kommst zum Maßnehmen zu uns in den Showroom. Was passt dir besser?"

const cancelMessage = "Alles klar, ich stoppe den Prozess hier. " +
	"Deine Angaben bleiben gespeichert - wenn du zurückkommst, machen wir genau da weiter."

// processDescription briefs the atelier team on where the customer stands in
// the bespoke process.
const processDescription = "Maßkonfektion bei LASERHENK: Moodbild und Schnittdetails sind fixiert, " +
	"die Maße kommen per SAIA-Scan oder beim Termin im Showroom. " +
	"Danach folgen Stoffzuschnitt, Fertigung und die erste Anprobe nach rund vier Wochen."

// Process handles one step. Dictated values are folded in before any branch
// so a message can both deliver numbers and pick a path.
func (a *Agent) Process(ctx context.Context, session *statex.SessionState) (contractx.Decision, error) {
	input := strings.TrimSpace(session.UserInput)
	lower := strings.ToLower(input)

	// The job is already with the team.
	if session.Handoffs.HITL != nil {
		return stay("Bei uns ist alles vorbereitet - unser Team meldet sich bei dir. Wenn du vorab noch etwas ändern möchtest, sag einfach Bescheid."), nil
	}

	// The customer backs out: the team gets the cancellation when a brief
	// exists, otherwise the stop is only noted here.
	if cancelIntent(lower) {
		if dec, ok := tryHandoff(session, "cancelled"); ok {
			return dec, nil
		}
		return stay(cancelMessage), nil
	}

	var out measureLLMOutput
	if input != "" {
		if existingCustomerIntent(lower) {
			session.Customer.HasMeasurements = true
			session.Customer.Type = statex.CustomerExisting
		}
		applyMeasurements(session, parseMeasurements(lower))
		out = a.converse(ctx, session, input)
		applyMeasurements(session, out.Measurements)
	}

	// Data is in, or the tailor measures in person at the booked fitting:
	// wrap the phase up.
	if measurementsReady(session) || session.Customer.Appointment.Booked() {
		if !session.Customer.Appointment.Booked() {
			return stay(readyPrefix(session) + appointmentAsk(session)), nil
		}
		if dec, ok := tryHandoff(session, commitmentFor(session)); ok {
			return dec, nil
		}
		// No mood image or design summary yet: the brief waits for the
		// design phase, the fitting is locked in regardless.
		return stay("Dein Termin steht! Die Maße nehmen wir direkt vor Ort. Bis dahin können wir dein Design noch fertig machen - sag einfach Bescheid."), nil
	}

	if out.RequestScan || scanIntent(lower) {
		startScan(session)
		return stay(saiaInstructions(session)), nil
	}

	if out.RequestAppointment || appointmentIntent(lower) {
		return stay(appointmentAsk(session)), nil
	}

	// Scan or dictation underway.
	if session.Measurements != nil {
		return stay(progressMessage(session)), nil
	}

	msg := out.Message
	if msg == "" {
		msg = offlineMeasureOpener
	}
	return stay(msg), nil
}

// converse is total: without a model or on failure the zero output comes
// back and the keyword pass stays the only extraction.
func (a *Agent) converse(ctx context.Context, session *statex.SessionState, input string) measureLLMOutput {
	if a.runner == nil {
		return measureLLMOutput{}
	}
	out, err := a.runner.Invoke(ctx, map[string]any{
		"system":  a.system,
		"history": llm.HistoryMessages(historyForModel(session, input)),
		"input":   input,
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", session.SessionID).Msg("measure model failed, using scripted reply")
		return measureLLMOutput{}
	}
	return out
}

func historyForModel(session *statex.SessionState, input string) []statex.Turn {
	turns := session.RecentHistory(10)
	if n := len(turns); n > 0 && turns[n-1].Role == statex.RoleUser && turns[n-1].Content == input {
		turns = turns[:n-1]
	}
	return turns
}

/* --------------------------------- staging --------------------------------- */

// measurementsReady holds when the session carries a complete set or the
// atelier has the customer on file from an earlier order.
func measurementsReady(session *statex.SessionState) bool {
	return session.Customer.HasMeasurements || session.Measurements.Complete()
}

func startScan(session *statex.SessionState) {
	if session.Measurements == nil {
		session.Measurements = &statex.Measurements{Source: statex.MeasureSourceSAIA, TakenAt: time.Now().UTC()}
		return
	}
	if session.Measurements.Source == "" {
		session.Measurements.Source = statex.MeasureSourceSAIA
	}
}

func saiaInstructions(session *statex.SessionState) string {
	base := "Super Wahl! Der SAIA 3D-Scan geht ganz einfach: Link öffnen, Smartphone aufstellen, " +
		"zweimal im Stehen fotografieren lassen - fertig. Die Maße landen automatisch bei mir."
	if session.Customer.Email == "" {
		return base + " Wohin darf ich dir den Link schicken - wie lautet deine E-Mail-Adresse?"
	}
	return base + fmt.Sprintf(" Ich habe dir den Link gerade an %s geschickt. Sag Bescheid, sobald du durch bist!", session.Customer.Email)
}

func progressMessage(session *statex.SessionState) string {
	missing := session.Measurements.MissingCount()
	if session.Measurements.Source == statex.MeasureSourceSAIA {
		return fmt.Sprintf("Dein Scan läuft - es fehlen noch %d von 7 Maßen. Du kannst mir Werte auch einfach hier durchgeben, zum Beispiel: Brustumfang 102.", missing)
	}
	return fmt.Sprintf("Notiert! Es fehlen noch %d von 7 Maßen. Gib mir die restlichen Werte einfach so durch: Brustumfang 102, Taille 88.", missing)
}

func readyPrefix(session *statex.SessionState) string {
	if session.Customer.HasMeasurements && !session.Measurements.Complete() {
		return "Deine Maße haben wir noch von deinem letzten Besuch im System. "
	}
	return "Alle sieben Maße sind da - sauber! "
}

// appointmentAsk opens the booking and lists only what is still missing. The
// collecting status lets the routing shortcut parse the following replies.
func appointmentAsk(session *statex.SessionState) string {
	appt := &session.Customer.Appointment
	if !appt.Started() {
		appt.Status = statex.AppointmentCollecting
	}
	missing := appt.MissingParts()
	switch len(missing) {
	case 3:
		return "Dann lass uns deinen Termin festmachen! Sag mir einfach Ort, Datum und Uhrzeit - zum Beispiel: im Showroom, am 12.04. um 15 Uhr."
	case 0:
		// Details complete but the booking call has not gone through yet.
		return "Deine Termindaten sind komplett notiert. Ich trage den Termin ein, sobald unser Kalender wieder erreichbar ist - du bekommst dann sofort Bescheid."
	}
	return fmt.Sprintf("Fast geschafft! Für den Termin fehlt mir noch: %s.", strings.Join(missing, ", "))
}

/* --------------------------------- handoff --------------------------------- */

func commitmentFor(session *statex.SessionState) string {
	if session.Customer.CRMLeadID != "" {
		return "committed"
	}
	return "pending"
}

// tryHandoff assembles the atelier brief. Without an approved mood image or
// any design data there is nothing to brief yet and the caller keeps going.
func tryHandoff(session *statex.SessionState, commitment string) (contractx.Decision, bool) {
	img := moodImage(session)
	summary := designSummary(session)
	if img == "" || len(summary) == 0 {
		return contractx.Decision{}, false
	}
	if commitment == "committed" && session.Customer.CRMLeadID == "" {
		commitment = "pending"
	}

	payload := map[string]any{
		"customer_commitment": commitment,
		"mood_image_url":      img,
		"process_description": processDescription,
		"design_summary":      summary,
	}
	if id := session.Customer.CRMLeadID; id != "" {
		payload["crm_lead_id"] = id
	}
	if appt := session.Customer.Appointment; appt.Booked() {
		payload["appointment_date"] = strings.TrimSpace(appt.Date + " " + appt.Time)
		payload["appointment_location"] = appt.Location
	}
	if ms := session.Measurements.Summary(); ms != nil {
		payload["measurement_summary"] = ms
	}

	return contractx.Decision{
		Message: wrapMessage(commitment),
		Action:  contractx.ActionHandoff,
		ActionParams: map[string]any{
			"target_agent": statex.HandoffHITL,
			"payload":      payload,
		},
	}, true
}

func wrapMessage(commitment string) string {
	switch commitment {
	case "committed":
		return "Perfekt, damit ist alles beisammen! Ich habe dein Design, deine Maße und deinen Termin an unser Atelier übergeben. Du bekommst eine Bestätigung per E-Mail - bis bald!"
	case "cancelled":
		return "Schade, aber völlig okay! Ich habe unser Team informiert und alles auf Pause gesetzt. Du bist jederzeit wieder willkommen."
	default:
		return "Ich habe alles für unser Atelier zusammengestellt. Sobald deine Daten bestätigt sind, geht es los - du hörst von uns!"
	}
}

func moodImage(session *statex.SessionState) string {
	if h := session.Handoffs.Measurement; h != nil && h.MoodImageURL != "" {
		return h.MoodImageURL
	}
	if url := session.DesignPreferences.ApprovedImageURL; url != "" {
		return url
	}
	return session.Image.CurrentURL
}

// designSummary prefers the validated construction payload over the raw
// preferences; direct entries without a design phase yield whatever exists.
func designSummary(session *statex.SessionState) map[string]string {
	out := make(map[string]string)
	if h := session.Handoffs.Measurement; h != nil {
		out["garment_type"] = h.GarmentType
		out["jacket_form"] = h.JacketForm
		out["shoulder_processing"] = h.ShoulderProcessing
		out["lapel_style"] = h.LapelStyle
		out["inner_lining"] = h.InnerLining
		if h.LiningColor != "" {
			out["lining_color"] = h.LiningColor
		}
		if h.ButtonStyle != "" {
			out["button_style"] = h.ButtonStyle
		}
		if h.PocketStyle != "" {
			out["pocket_style"] = h.PocketStyle
		}
	} else {
		prefs := session.DesignPreferences
		setIf(out, "lapel_style", prefs.LapelStyle)
		setIf(out, "shoulder_padding", prefs.ShoulderPadding)
		setIf(out, "inner_lining", prefs.InnerLining)
		setIf(out, "lining_color", prefs.LiningColor)
	}
	if fav := session.Fabric.Favorite; fav != nil {
		setIf(out, "fabric", strings.TrimSpace(fav.Code+" "+fav.Name))
	}
	return out
}

func setIf(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func stay(message string) contractx.Decision {
	return contractx.Decision{
		NextDestination: string(contractx.AgentMeasurement),
		Message:         message,
	}
}
