package tool

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

// Appointment books the fitting once location, date and time are collected.
// Booking happens at most once; the booked flag is only set after the
// backend call succeeded, a failed call leaves the collecting state intact.
type Appointment struct {
	crm CRM
}

func NewAppointment(crm CRM) *Appointment {
	return &Appointment{crm: crm}
}

func (t *Appointment) Name() string { return contractx.ToolAppointment }

func (t *Appointment) Run(ctx context.Context, params map[string]any, session *statex.SessionState) (contractx.ToolOutput, error) {
	appt := &session.Customer.Appointment

	if v := stringParam(params, "location"); v != "" && appt.Location == "" {
		appt.Location = v
	}
	if v := stringParam(params, "date"); v != "" && appt.Date == "" {
		appt.Date = v
	}
	if v := stringParam(params, "time"); v != "" && appt.Time == "" {
		appt.Time = v
	}

	if appt.Booked() {
		return contractx.ToolOutput{
			Text: fmt.Sprintf("Dein Termin steht schon: %s um %s (%s).", appt.Date, appt.Time, appt.Location),
		}, nil
	}
	if !appt.Complete() {
		appt.Status = statex.AppointmentCollecting
		return contractx.ToolOutput{
			Text: fmt.Sprintf("Damit ich den Termin eintragen kann, fehlt mir noch: %s.", strings.Join(appt.MissingParts(), ", ")),
		}, nil
	}

	confirmation := fmt.Sprintf("Perfekt, dein Termin ist gebucht: %s um %s (%s). Wir freuen uns auf dich!", appt.Date, appt.Time, appt.Location)

	if t.crm == nil {
		appt.Status = statex.AppointmentBooked
		return contractx.ToolOutput{Text: confirmation}, nil
	}

	var personID int64
	if session.Customer.Email != "" {
		id, err := t.crm.EnsurePerson(ctx, session.Customer.Name, session.Customer.Email, session.Customer.Phone)
		if err != nil {
			return contractx.ToolOutput{}, fmt.Errorf("appointment person: %w", err)
		}
		personID = id
	}

	activityID, err := t.crm.CreateAppointment(ctx, "Maßtermin LASERHENK", isoDate(appt.Date), appt.Time, appt.Location, personID)
	if err != nil {
		return contractx.ToolOutput{}, fmt.Errorf("appointment create: %w", err)
	}

	appt.Status = statex.AppointmentBooked
	return contractx.ToolOutput{
		Text:     confirmation,
		Metadata: map[string]any{"appointment_id": activityID},
	}, nil
}

// isoDate converts the display form DD.MM.YYYY to YYYY-MM-DD for the CRM.
func isoDate(display string) string {
	parts := strings.Split(display, ".")
	if len(parts) != 3 {
		return display
	}
	return parts[2] + "-" + parts[1] + "-" + parts[0]
}
