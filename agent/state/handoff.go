package state

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Handoff targets. Each phase hands a validated payload to the next one;
// there is no open-ended target map.
const (
	HandoffDesign      = "design"
	HandoffMeasurement = "measurement"
	HandoffHITL        = "hitl"
)

var ErrInvalidHandoff = errors.New("invalid handoff payload")

// HandoffSet is the closed set of phase-to-phase payloads. Writes go through
// the SessionState setters so an invalid payload is never stored.
type HandoffSet struct {
	Design      *DesignHandoff      `json:"design,omitempty"`
	Measurement *MeasurementHandoff `json:"measurement,omitempty"`
	HITL        *HITLHandoff        `json:"hitl,omitempty"`
}

/* ------------------------- needs-assessment -> design ------------------------- */

// DesignHandoff is what the needs-assessment phase must know before the
// design phase may start.
type DesignHandoff struct {
	BudgetMin        float64  `json:"budget_min"`
	BudgetMax        float64  `json:"budget_max"`
	Style            string   `json:"style"`
	Occasion         string   `json:"occasion"`
	Patterns         []string `json:"patterns"`
	Colors           []string `json:"colors"`
	Season           string   `json:"season,omitempty"`
	CustomerNotes    string   `json:"customer_notes,omitempty"`
	Setting          string   `json:"setting,omitempty"`
	FabricReferences []string `json:"fabric_references,omitempty"`
	PreferredTier    string   `json:"preferred_fabric_tier,omitempty"` // mid | luxury
}

var (
	designStyles = map[string]bool{
		"business": true, "casual": true, "formal": true, "smart_casual": true, "creative": true,
	}
	designOccasions = map[string]bool{
		"business_meeting": true, "wedding": true, "gala": true, "everyday": true, "party": true, "other": true,
	}
)

func (p DesignHandoff) Validate() error {
	if p.BudgetMin <= 0 || p.BudgetMax <= 0 {
		return fmt.Errorf("%w: budget must be positive", ErrInvalidHandoff)
	}
	if p.BudgetMax < p.BudgetMin {
		return fmt.Errorf("%w: budget_max below budget_min", ErrInvalidHandoff)
	}
	if !designStyles[p.Style] {
		return fmt.Errorf("%w: style %q", ErrInvalidHandoff, p.Style)
	}
	if !designOccasions[p.Occasion] {
		return fmt.Errorf("%w: occasion %q", ErrInvalidHandoff, p.Occasion)
	}
	if len(p.Patterns) == 0 {
		return fmt.Errorf("%w: at least one pattern required", ErrInvalidHandoff)
	}
	if len(p.Colors) == 0 {
		return fmt.Errorf("%w: at least one color required", ErrInvalidHandoff)
	}
	if len(p.FabricReferences) > 2 {
		return fmt.Errorf("%w: at most two fabric references", ErrInvalidHandoff)
	}
	if p.PreferredTier != "" && p.PreferredTier != "mid" && p.PreferredTier != "luxury" {
		return fmt.Errorf("%w: preferred_fabric_tier %q", ErrInvalidHandoff, p.PreferredTier)
	}
	return nil
}

/* --------------------------- design -> measurement --------------------------- */

type MeasurementHandoff struct {
	GarmentType        string  `json:"garment_type"`        // anzug | kombination
	JacketForm         string  `json:"jacket_form"`         // slim_fit | regular_fit | comfort_fit | classic_fit
	ShoulderProcessing string  `json:"shoulder_processing"` // soft | medium | strong | natural
	LapelStyle         string  `json:"lapel_style"`         // spitzrevers | steigendes_revers | schalkragen
	InnerLining        string  `json:"inner_lining"`        // full_lining | half_lining | quarter_lining | bemberg | silk
	LapelWidthCM       float64 `json:"lapel_width_cm,omitempty"`
	LiningColor        string  `json:"lining_color,omitempty"`
	ButtonStyle        string  `json:"button_style,omitempty"`
	PocketStyle        string  `json:"pocket_style,omitempty"`
	MoodImageURL       string  `json:"mood_image_url,omitempty"`
}

var (
	garmentTypes        = map[string]bool{"anzug": true, "kombination": true}
	jacketForms         = map[string]bool{"slim_fit": true, "regular_fit": true, "comfort_fit": true, "classic_fit": true}
	shoulderProcessings = map[string]bool{"soft": true, "medium": true, "strong": true, "natural": true}
	lapelStyles         = map[string]bool{"spitzrevers": true, "steigendes_revers": true, "schalkragen": true}
	innerLinings        = map[string]bool{"full_lining": true, "half_lining": true, "quarter_lining": true, "bemberg": true, "silk": true}
)

func (p MeasurementHandoff) Validate() error {
	if !garmentTypes[p.GarmentType] {
		return fmt.Errorf("%w: garment_type %q", ErrInvalidHandoff, p.GarmentType)
	}
	if !jacketForms[p.JacketForm] {
		return fmt.Errorf("%w: jacket_form %q", ErrInvalidHandoff, p.JacketForm)
	}
	if !shoulderProcessings[p.ShoulderProcessing] {
		return fmt.Errorf("%w: shoulder_processing %q", ErrInvalidHandoff, p.ShoulderProcessing)
	}
	if !lapelStyles[p.LapelStyle] {
		return fmt.Errorf("%w: lapel_style %q", ErrInvalidHandoff, p.LapelStyle)
	}
	if !innerLinings[p.InnerLining] {
		return fmt.Errorf("%w: inner_lining %q", ErrInvalidHandoff, p.InnerLining)
	}
	if p.LapelWidthCM < 0 {
		return fmt.Errorf("%w: lapel_width_cm must be positive", ErrInvalidHandoff)
	}
	return nil
}

/* ------------------------- measurement -> human review ------------------------ */

type HITLHandoff struct {
	Commitment          string             `json:"customer_commitment"` // committed | pending | cancelled
	MoodImageURL        string             `json:"mood_image_url"`
	ProcessDescription  string             `json:"process_description"`
	InvoiceSent         bool               `json:"invoice_sent,omitempty"`
	CRMLeadID           string             `json:"crm_lead_id"`
	AppointmentDate     string             `json:"appointment_date,omitempty"`
	AppointmentLocation string             `json:"appointment_location,omitempty"`
	DesignSummary       map[string]string  `json:"design_summary"`
	MeasurementSummary  map[string]float64 `json:"measurement_summary,omitempty"`
}

var commitments = map[string]bool{"committed": true, "pending": true, "cancelled": true}

func (p HITLHandoff) Validate() error {
	if !commitments[p.Commitment] {
		return fmt.Errorf("%w: customer_commitment %q", ErrInvalidHandoff, p.Commitment)
	}
	if p.MoodImageURL == "" {
		return fmt.Errorf("%w: mood_image_url required", ErrInvalidHandoff)
	}
	if p.ProcessDescription == "" {
		return fmt.Errorf("%w: process_description required", ErrInvalidHandoff)
	}
	if len(p.DesignSummary) == 0 {
		return fmt.Errorf("%w: design_summary required", ErrInvalidHandoff)
	}
	if p.Commitment == "committed" && p.CRMLeadID == "" {
		return fmt.Errorf("%w: crm_lead_id required for committed customers", ErrInvalidHandoff)
	}
	return nil
}

/* --------------------------------- setters -------------------------------- */

func (s *SessionState) SetDesignHandoff(p DesignHandoff) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.Handoffs.Design = &p
	return nil
}

func (s *SessionState) SetMeasurementHandoff(p MeasurementHandoff) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.Handoffs.Measurement = &p
	return nil
}

func (s *SessionState) SetHITLHandoff(p HITLHandoff) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.Handoffs.HITL = &p
	return nil
}

// ApplyHandoff decodes loosely-typed action params into the payload type for
// the named target, validates it, and stores it. Unknown targets and invalid
// payloads leave the set untouched.
func (s *SessionState) ApplyHandoff(target string, params map[string]any) error {
	switch target {
	case HandoffDesign:
		var p DesignHandoff
		if err := decodeParams(params, &p); err != nil {
			return err
		}
		return s.SetDesignHandoff(p)
	case HandoffMeasurement:
		var p MeasurementHandoff
		if err := decodeParams(params, &p); err != nil {
			return err
		}
		return s.SetMeasurementHandoff(p)
	case HandoffHITL:
		var p HITLHandoff
		if err := decodeParams(params, &p); err != nil {
			return err
		}
		return s.SetHITLHandoff(p)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownHandoff, target)
	}
}

func decodeParams(params map[string]any, dst any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHandoff, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHandoff, err)
	}
	return nil
}
