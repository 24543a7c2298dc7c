package contract

type AgentName string

const (
	AgentNeedsAssessment AgentName = "needs_assessment"
	AgentDesign          AgentName = "design"
	AgentMeasurement     AgentName = "measurement"
)

// Non-agent destinations a router decision may name.
const (
	DestinationClarification = "clarification"
	DestinationEnd           = "end"
)

// Tool names. The registry resolves them; unknown names are ErrUnknownTool.
const (
	ToolFabricSearch = "fabric_search"
	ToolShowFabrics  = "show_fabrics"
	ToolMoodBoard    = "mood_board"
	ToolCRMLead      = "crm_lead"
	ToolAppointment  = "appointment"
	ToolMarkFavorite = "mark_favorite"
	ToolPricing      = "pricing"
	ToolComparison   = "comparison"
)

type Phase string

const (
	PhaseNeedsAssessment Phase = "needs_assessment"
	PhaseDesign          Phase = "design"
	PhaseMeasurement     Phase = "measurement"
	PhaseEnd             Phase = "end"
)

// PhaseAssessment is recomputed on every route step and never cached across
// turns. Completeness is strictly ordered: design complete implies
// needs-assessment complete, measurements complete implies design complete.
type PhaseAssessment struct {
	MissingFields           []string `json:"missing_fields,omitempty"`
	RecommendedPhase        Phase    `json:"recommended_phase"`
	NeedsAssessmentComplete bool     `json:"is_needs_assessment_complete"`
	DesignComplete          bool     `json:"is_design_complete"`
	MeasurementsComplete    bool     `json:"is_measurements_complete"`
}

type ActionKind string

const (
	ActionAgent         ActionKind = "agent"
	ActionTool          ActionKind = "tool"
	ActionEnd           ActionKind = "end"
	ActionClarification ActionKind = "clarification"
)

// Action is what the router hands the step interpreter for one step.
// Confidence and Reasoning are diagnostic only; no control flow compares them.
type Action struct {
	Kind           ActionKind     `json:"kind"`
	Name           string         `json:"name,omitempty"`
	Params         map[string]any `json:"params,omitempty"`
	UserMessage    string         `json:"user_message,omitempty"`
	ShouldContinue bool           `json:"should_continue"`
	ReturnToAgent  AgentName      `json:"return_to_agent,omitempty"`
	Reasoning      string         `json:"reasoning,omitempty"`
	Confidence     float64        `json:"confidence"`
}

// ActionHandoff in Decision.Action requests a validated phase handoff instead
// of a tool run.
const ActionHandoff = "handoff"

// Decision is the single result shape every specialist agent returns. No
// agent produces an ad hoc variant.
type Decision struct {
	NextDestination string         `json:"next_destination,omitempty"`
	Message         string         `json:"message,omitempty"`
	Action          string         `json:"action,omitempty"`
	ActionParams    map[string]any `json:"action_params,omitempty"`
	ShouldContinue  bool           `json:"should_continue"`
}

// ToolOutput is the user-facing text plus open metadata a tool run produces.
// Common metadata keys: image_url, fabric_images, crm_lead_id, error.
type ToolOutput struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// HistoryMessage is one conversation turn normalized for the router model.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RouteRequest is the fully assembled input for one router model call.
type RouteRequest struct {
	SystemPrompt string
	History      []HistoryMessage
	UserMessage  string
}

// RouteDecision is the structured shape the router model must return.
type RouteDecision struct {
	NextDestination string         `json:"next_destination"`
	Reasoning       string         `json:"reasoning"`
	ActionParams    map[string]any `json:"action_params,omitempty"`
	UserMessage     string         `json:"user_message,omitempty"`
	Confidence      float64        `json:"confidence"`
}
