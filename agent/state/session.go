package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SessionState is the persistent source-of-truth for one tailoring conversation.
// It is mutated in place by whichever agent or tool owns the current step and
// persisted as a whole by the Store after every turn.
type SessionState struct {
	// Identity
	SessionID string `json:"session_id"`

	Customer          Customer          `json:"customer"`
	DesignPreferences DesignPreferences `json:"design_preferences"`
	Measurements      *Measurements     `json:"measurements,omitempty"`
	Fabric            FabricState       `json:"fabric_state"`
	Image             ImageState        `json:"image_state"`
	Progress          Progress          `json:"progress"`

	// History is append-only within a turn; order is conversation order.
	History []Turn `json:"conversation_history,omitempty"`

	// Routing pointers, informational only. The router may override both.
	CurrentAgent string `json:"current_agent,omitempty"`
	NextAction   string `json:"next_action,omitempty"`

	// UserInput is the message driving the current turn. Tool steps consume
	// it: after any tool run it is empty for the rest of the turn.
	UserInput string `json:"user_input,omitempty"`

	Handoffs HandoffSet `json:"handoffs"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

/* ------------------------------- Customer -------------------------------- */

type CustomerType string

const (
	CustomerNew      CustomerType = "new"
	CustomerExisting CustomerType = "existing"
)

type Customer struct {
	Name            string       `json:"name,omitempty"`
	Email           string       `json:"email,omitempty"`
	Phone           string       `json:"phone,omitempty"`
	Occasion        string       `json:"occasion,omitempty"`
	EventDate       string       `json:"event_date,omitempty"`
	TimingHint      string       `json:"timing_hint,omitempty"`
	Type            CustomerType `json:"customer_type,omitempty"`
	CRMLeadID       string       `json:"crm_lead_id,omitempty"`
	HasMeasurements bool         `json:"has_measurements,omitempty"`
	Appointment     Appointment  `json:"appointment,omitempty"`
}

// SetCRMLeadID records the CRM lead once. A lead id is never cleared or
// replaced afterwards.
func (c *Customer) SetCRMLeadID(id string) {
	if c == nil || id == "" || c.CRMLeadID != "" {
		return
	}
	c.CRMLeadID = id
}

type AppointmentStatus string

const (
	AppointmentNotStarted AppointmentStatus = "not_started"
	AppointmentCollecting AppointmentStatus = "collecting"
	AppointmentBooked     AppointmentStatus = "booked"
)

// Appointment accumulates the scheduling data across turns: the user may give
// the date in one message and the location in the next.
type Appointment struct {
	Status   AppointmentStatus `json:"status,omitempty"`
	Location string            `json:"location,omitempty"`
	Date     string            `json:"date,omitempty"` // DD.MM.YYYY
	Time     string            `json:"time,omitempty"` // HH:MM
}

func (a Appointment) Complete() bool {
	return a.Location != "" && a.Date != "" && a.Time != ""
}

func (a Appointment) Booked() bool {
	return a.Status == AppointmentBooked
}

// Started reports whether collecting has begun or the booking already went
// through. The zero value and AppointmentNotStarted both read as not started.
func (a Appointment) Started() bool {
	return a.Status == AppointmentCollecting || a.Status == AppointmentBooked
}

// MissingParts lists the still-unknown pieces using the wording shown to the
// user: "Ort", "Datum", "Uhrzeit".
func (a Appointment) MissingParts() []string {
	var missing []string
	if a.Location == "" {
		missing = append(missing, "Ort")
	}
	if a.Date == "" {
		missing = append(missing, "Datum")
	}
	if a.Time == "" {
		missing = append(missing, "Uhrzeit")
	}
	return missing
}

/* --------------------------- Design preferences -------------------------- */

// Unknown is the sentinel an extraction model may emit for a field the user
// explicitly left undecided. Applying it never overwrites a known value.
const Unknown = "unknown"

type DesignPreferences struct {
	LapelStyle          string   `json:"lapel_style,omitempty"`      // notch | peak | shawl
	LapelRoll           string   `json:"lapel_roll,omitempty"`       // rolling | flat
	ShoulderPadding     string   `json:"shoulder_padding,omitempty"` // none | light | medium | structured
	JacketFront         string   `json:"jacket_front,omitempty"`     // single_breasted | double_breasted
	TrouserFront        string   `json:"trouser_front,omitempty"`    // pleats | flat_front
	Neckwear            string   `json:"neckwear,omitempty"`         // tie | bow_tie | none
	InnerLining         string   `json:"inner_lining,omitempty"`
	LiningColor         string   `json:"lining_color,omitempty"`
	PocketStyle         string   `json:"pocket_style,omitempty"`
	ButtonStyle         string   `json:"button_style,omitempty"`
	ButtonCount         int      `json:"button_count,omitempty"` // 1..3
	WantsVest           *bool    `json:"wants_vest,omitempty"`
	PreferredColors     []string `json:"preferred_colors,omitempty"`
	RequestedFabricCode string   `json:"requested_fabric_code,omitempty"`
	Notes               string   `json:"notes,omitempty"`
	ApprovedImageURL    string   `json:"approved_image_url,omitempty"`
}

// DesignPatch carries the per-field updates extracted from a single user
// message. Empty fields mean "not mentioned"; Unknown means "explicitly
// undecided" and is skipped on apply.
type DesignPatch struct {
	LapelStyle          string   `json:"lapel_style,omitempty"`
	LapelRoll           string   `json:"lapel_roll,omitempty"`
	ShoulderPadding     string   `json:"shoulder_padding,omitempty"`
	JacketFront         string   `json:"jacket_front,omitempty"`
	TrouserFront        string   `json:"trouser_front,omitempty"`
	Neckwear            string   `json:"neckwear,omitempty"`
	InnerLining         string   `json:"inner_lining,omitempty"`
	LiningColor         string   `json:"lining_color,omitempty"`
	PocketStyle         string   `json:"pocket_style,omitempty"`
	ButtonStyle         string   `json:"button_style,omitempty"`
	ButtonCount         int      `json:"button_count,omitempty"`
	WantsVest           *bool    `json:"wants_vest,omitempty"`
	PreferredColors     []string `json:"preferred_colors,omitempty"`
	RequestedFabricCode string   `json:"requested_fabric_code,omitempty"`
	Notes               string   `json:"notes,omitempty"`
}

const maxNotesLen = 120

// Apply merges the patch into the preferences and returns the names of the
// fields that changed. Empty and Unknown values never touch existing data.
func (d *DesignPreferences) Apply(p DesignPatch) []string {
	if d == nil {
		return nil
	}
	var changed []string
	set := func(dst *string, val, field string) {
		if val == "" || val == Unknown || *dst == val {
			return
		}
		*dst = val
		changed = append(changed, field)
	}
	set(&d.LapelStyle, p.LapelStyle, "lapel_style")
	set(&d.LapelRoll, p.LapelRoll, "lapel_roll")
	set(&d.ShoulderPadding, p.ShoulderPadding, "shoulder_padding")
	set(&d.JacketFront, p.JacketFront, "jacket_front")
	set(&d.TrouserFront, p.TrouserFront, "trouser_front")
	set(&d.Neckwear, p.Neckwear, "neckwear")
	set(&d.InnerLining, p.InnerLining, "inner_lining")
	set(&d.LiningColor, p.LiningColor, "lining_color")
	set(&d.PocketStyle, p.PocketStyle, "pocket_style")
	set(&d.ButtonStyle, p.ButtonStyle, "button_style")
	set(&d.RequestedFabricCode, truncate(p.RequestedFabricCode, 20), "requested_fabric_code")
	set(&d.Notes, truncate(p.Notes, maxNotesLen), "notes")
	if p.ButtonCount >= 1 && p.ButtonCount <= 3 && d.ButtonCount != p.ButtonCount {
		d.ButtonCount = p.ButtonCount
		changed = append(changed, "button_count")
	}
	if p.WantsVest != nil && (d.WantsVest == nil || *d.WantsVest != *p.WantsVest) {
		v := *p.WantsVest
		d.WantsVest = &v
		changed = append(changed, "wants_vest")
	}
	colorsAdded := false
	for _, c := range p.PreferredColors {
		if c == "" || c == Unknown || containsFold(d.PreferredColors, c) {
			continue
		}
		d.PreferredColors = append(d.PreferredColors, c)
		colorsAdded = true
	}
	if colorsAdded {
		changed = append(changed, "preferred_colors")
	}
	return changed
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

/* ------------------------------ Measurements ------------------------------ */

const (
	MeasureSourceSAIA   = "saia"
	MeasureSourceManual = "manual"
)

type Measurements struct {
	Source        string    `json:"source,omitempty"` // saia | manual
	ShoulderWidth *float64  `json:"shoulder_width,omitempty"`
	Chest         *float64  `json:"chest,omitempty"`
	Waist         *float64  `json:"waist,omitempty"`
	Hip           *float64  `json:"hip,omitempty"`
	SleeveLength  *float64  `json:"sleeve_length,omitempty"`
	BodyLength    *float64  `json:"body_length,omitempty"`
	Inseam        *float64  `json:"inseam,omitempty"`
	TakenAt       time.Time `json:"taken_at,omitempty"`
}

func (m *Measurements) values() map[string]*float64 {
	return map[string]*float64{
		"shoulder_width": m.ShoulderWidth,
		"chest":          m.Chest,
		"waist":          m.Waist,
		"hip":            m.Hip,
		"sleeve_length":  m.SleeveLength,
		"body_length":    m.BodyLength,
		"inseam":         m.Inseam,
	}
}

// Complete reports whether all seven body measurements are recorded. A nil
// record is maximally incomplete, not an error.
func (m *Measurements) Complete() bool {
	return m != nil && m.MissingCount() == 0
}

// MissingCount counts the body measurements still absent.
func (m *Measurements) MissingCount() int {
	if m == nil {
		return 7
	}
	missing := 0
	for _, v := range m.values() {
		if v == nil {
			missing++
		}
	}
	return missing
}

// Summary returns the recorded values keyed by field name, nil while nothing
// is recorded yet.
func (m *Measurements) Summary() map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64)
	for k, v := range m.values() {
		if v != nil {
			out[k] = *v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

/* -------------------------------- Fabrics --------------------------------- */

type FabricSearchStatus string

const (
	FabricSearchNotStarted      FabricSearchStatus = "not_started"
	FabricSearchShown           FabricSearchStatus = "shown"
	FabricSearchFeedbackPending FabricSearchStatus = "feedback_pending"
)

func (s FabricSearchStatus) Shown() bool {
	return s == FabricSearchShown || s == FabricSearchFeedbackPending
}

type Fabric struct {
	Code        string `json:"fabric_code"`
	Name        string `json:"name,omitempty"`
	Composition string `json:"composition,omitempty"`
	WeightGSM   int    `json:"weight_gsm,omitempty"`
	Color       string `json:"color,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	PriceTier   string `json:"price_tier,omitempty"` // mid | luxury
	ImageURL    string `json:"image_url,omitempty"`
}

// FabricPair records one curated two-fabric presentation round.
type FabricPair struct {
	MidCode    string    `json:"mid_code,omitempty"`
	LuxuryCode string    `json:"luxury_code,omitempty"`
	ShownAt    time.Time `json:"shown_at"`
}

type FabricState struct {
	Search      FabricSearchStatus `json:"search_status,omitempty"`
	RAGContext  []Fabric           `json:"rag_context,omitempty"`
	Shown       []Fabric           `json:"shown,omitempty"`
	Favorite    *Fabric            `json:"favorite,omitempty"`
	PairHistory []FabricPair       `json:"pair_history,omitempty"`
}

func (f *FabricState) RecordShown(fabrics ...Fabric) {
	if f == nil {
		return
	}
	for _, fb := range fabrics {
		if fb.Code == "" {
			continue
		}
		f.Shown = append(f.Shown, fb)
	}
}

// ShownByCode finds a previously shown fabric by its code.
func (f *FabricState) ShownByCode(code string) (Fabric, bool) {
	if f == nil || code == "" {
		return Fabric{}, false
	}
	for _, fb := range f.Shown {
		if fb.Code == code {
			return fb, true
		}
	}
	return Fabric{}, false
}

/* --------------------------------- Images --------------------------------- */

type MoodBoardStatus string

const (
	MoodBoardNotStarted MoodBoardStatus = "not_started"
	MoodBoardPending    MoodBoardStatus = "pending"
	MoodBoardApproved   MoodBoardStatus = "approved"
)

// MoodBoardMaxIterations is the soft cap on revision rounds before the design
// agent locks in the latest image.
const MoodBoardMaxIterations = 7

type GeneratedImage struct {
	URL       string    `json:"url"`
	Kind      string    `json:"kind,omitempty"` // mood_board | outfit
	CreatedAt time.Time `json:"created_at"`
	Approved  bool      `json:"approved,omitempty"`
}

type ImageState struct {
	Status     MoodBoardStatus  `json:"status,omitempty"`
	CurrentURL string           `json:"current_url,omitempty"`
	Uploads    []string         `json:"uploads,omitempty"`
	History    []GeneratedImage `json:"history,omitempty"`
	Iterations int              `json:"iterations,omitempty"`
	Feedback   string           `json:"feedback,omitempty"`
}

// RecordGenerated appends a generation and moves the mood board to pending.
// The stored feedback is consumed: a new image answers the revision request.
func (i *ImageState) RecordGenerated(url, kind string, now time.Time) {
	if i == nil || url == "" {
		return
	}
	i.CurrentURL = url
	i.Status = MoodBoardPending
	i.Iterations++
	i.Feedback = ""
	i.History = append(i.History, GeneratedImage{URL: url, Kind: kind, CreatedAt: now.UTC()})
}

// Approve marks the current image as accepted.
func (i *ImageState) Approve() {
	if i == nil || i.CurrentURL == "" {
		return
	}
	i.Status = MoodBoardApproved
	for idx := range i.History {
		if i.History[idx].URL == i.CurrentURL {
			i.History[idx].Approved = true
		}
	}
}

/* -------------------------------- Progress -------------------------------- */

type ContactStatus string

const (
	ContactNotAsked  ContactStatus = "not_asked"
	ContactRequested ContactStatus = "requested"
	ContactProvided  ContactStatus = "provided"
	ContactDeclined  ContactStatus = "declined"
)

type Progress struct {
	Contact      ContactStatus `json:"contact,omitempty"`
	SuitPieces   string        `json:"suit_pieces,omitempty"` // two_piece | three_piece
	CutConfirmed bool          `json:"cut_confirmed,omitempty"`
}

/* --------------------------------- Turns ---------------------------------- */

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type Turn struct {
	Role     string         `json:"role"`
	Content  string         `json:"content"`
	Sender   string         `json:"sender,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

/* -------------------------- SessionState helpers -------------------------- */

var ErrUnknownHandoff = errors.New("unknown handoff target")

func NewSessionState(sessionID string, now time.Time) *SessionState {
	return &SessionState{
		SessionID: sessionID,
		Customer:  Customer{Type: CustomerNew},
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (s *SessionState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *SessionState) AppendUser(content string) {
	s.AppendTurn(Turn{Role: RoleUser, Content: content})
}

func (s *SessionState) AppendAssistant(content, sender string, metadata map[string]any) {
	s.AppendTurn(Turn{Role: RoleAssistant, Content: content, Sender: sender, Metadata: metadata})
}

func (s *SessionState) AppendTurn(t Turn) {
	if s == nil || t.Content == "" {
		return
	}
	s.History = append(s.History, t)
}

// RecentHistory returns the last n user/assistant turns in order. System
// turns are skipped; they never reach the router prompt.
func (s *SessionState) RecentHistory(n int) []Turn {
	if s == nil || n <= 0 {
		return nil
	}
	filtered := make([]Turn, 0, len(s.History))
	for _, t := range s.History {
		if t.Role == RoleUser || t.Role == RoleAssistant {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) > n {
		filtered = filtered[len(filtered)-n:]
	}
	return filtered
}

// LastAssistantReply returns the newest assistant message, or "".
func (s *SessionState) LastAssistantReply() string {
	if s == nil {
		return ""
	}
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == RoleAssistant {
			return s.History[i].Content
		}
	}
	return ""
}

// LastUserMessage returns the newest user message, or "".
func (s *SessionState) LastUserMessage() string {
	if s == nil {
		return ""
	}
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == RoleUser {
			return s.History[i].Content
		}
	}
	return ""
}

// ConfigurationSummary renders the collected choices as the human-readable
// closing message shown once the appointment is booked.
func (s *SessionState) ConfigurationSummary() string {
	if s == nil {
		return ""
	}
	out := "Hier ist deine Konfiguration im Überblick:\n"
	if fav := s.Fabric.Favorite; fav != nil {
		out += fmt.Sprintf("- Stoff: %s (%s)\n", fav.Name, fav.Code)
	}
	d := s.DesignPreferences
	if s.Progress.SuitPieces != "" {
		label := "Zweiteiler"
		if s.Progress.SuitPieces == "three_piece" {
			label = "Dreiteiler"
		}
		out += "- Schnitt: " + label + "\n"
	}
	if d.LapelStyle != "" {
		out += "- Revers: " + d.LapelStyle + "\n"
	}
	if d.ShoulderPadding != "" {
		out += "- Schulterpolster: " + d.ShoulderPadding + "\n"
	}
	if d.InnerLining != "" {
		out += "- Innenfutter: " + d.InnerLining + "\n"
	}
	if d.PocketStyle != "" {
		out += "- Taschen: " + d.PocketStyle + "\n"
	}
	if d.ButtonStyle != "" {
		out += "- Knöpfe: " + d.ButtonStyle + "\n"
	}
	a := s.Customer.Appointment
	if a.Complete() {
		out += fmt.Sprintf("- Termin: %s um %s in %s\n", a.Date, a.Time, a.Location)
	}
	out += "Wir melden uns mit allen Details. Vielen Dank für dein Vertrauen!"
	return out
}
