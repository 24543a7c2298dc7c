package tool

import (
	"context"
	"fmt"
	"strconv"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

// suitLeadValueEUR is the deal value reported to the CRM before a concrete
// quote exists.
const suitLeadValueEUR = 1800

// CRMLead creates the sales lead once an email is on file. Creation happens
// exactly once per session; reruns confirm the existing lead. A failed
// backend call leaves the session untouched so the next turn can retry.
type CRMLead struct {
	crm CRM
}

func NewCRMLead(crm CRM) *CRMLead {
	return &CRMLead{crm: crm}
}

func (t *CRMLead) Name() string { return contractx.ToolCRMLead }

func (t *CRMLead) Run(ctx context.Context, params map[string]any, session *statex.SessionState) (contractx.ToolOutput, error) {
	if id := session.Customer.CRMLeadID; id != "" {
		return contractx.ToolOutput{
			Text:     "Du bist bei uns schon angelegt, alles gut.",
			Metadata: map[string]any{"crm_lead_id": id},
		}, nil
	}

	email := session.Customer.Email
	if email == "" {
		email = stringParam(params, "email")
		session.Customer.Email = email
	}
	if email == "" {
		return contractx.ToolOutput{
			Text: "Magst du mir noch deine E-Mail geben? Dann lege ich dich bei uns an und du bekommst alle Infos direkt.",
		}, nil
	}

	name := session.Customer.Name
	if name == "" {
		name = stringParam(params, "name")
	}

	if t.crm == nil {
		id := "local-" + session.SessionID
		session.Customer.SetCRMLeadID(id)
		if session.Progress.Contact != statex.ContactDeclined {
			session.Progress.Contact = statex.ContactProvided
		}
		return contractx.ToolOutput{
			Text:     "Top, ich habe deine Daten notiert!",
			Metadata: map[string]any{"crm_lead_id": id},
		}, nil
	}

	personID, err := t.crm.EnsurePerson(ctx, name, email, session.Customer.Phone)
	if err != nil {
		return contractx.ToolOutput{}, fmt.Errorf("crm person: %w", err)
	}

	title := "Maßanzug - " + email
	if name != "" {
		title = "Maßanzug - " + name
	}
	leadID, err := t.crm.CreateLead(ctx, title, personID, suitLeadValueEUR)
	if err != nil {
		return contractx.ToolOutput{}, fmt.Errorf("crm lead: %w", err)
	}

	id := strconv.FormatInt(leadID, 10)
	session.Customer.SetCRMLeadID(id)
	if session.Progress.Contact != statex.ContactDeclined {
		session.Progress.Contact = statex.ContactProvided
	}

	return contractx.ToolOutput{
		Text:     "Top, ich habe dich bei uns angelegt. Du bekommst gleich eine Bestätigung per E-Mail!",
		Metadata: map[string]any{"crm_lead_id": id},
	}, nil
}
