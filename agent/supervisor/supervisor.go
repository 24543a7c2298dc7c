// Package supervisor is the routing brain: given the latest user message and
// the session, it picks the next destination (agent, tool, clarification or
// end). Routing runs in fixed stages: keyword pre-route, structural
// short-circuits, model decision, deterministic fallback. The completeness
// gate applies to every exit path, so no stage can skip ahead of missing
// needs-assessment data.
package supervisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	assessx "github.com/laserhenk/henk-agent/agent/assess"
	contractx "github.com/laserhenk/henk-agent/agent/contract"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

const fallbackConfidence = 0.3

// clarificationDefault is shown when the model asks for clarification
// without supplying its own wording.
const clarificationDefault = "Kannst du deine Anfrage noch einmal formulieren?"

type Supervisor struct {
	model      contractx.DecisionModel
	basePrompt string

	assess func(*statex.SessionState) contractx.PhaseAssessment
	now    func() time.Time
}

// New builds a Supervisor. A nil model is valid: routing then always takes
// the deterministic fallback path.
func New(model contractx.DecisionModel, basePrompt string) *Supervisor {
	return &Supervisor{
		model:      model,
		basePrompt: basePrompt,
		assess:     assessx.Assess,
		now:        time.Now,
	}
}

// Decide never fails: any model or schema problem degrades into the
// deterministic fallback. It may mutate the session through the structural
// short-circuit stage.
func (s *Supervisor) Decide(ctx context.Context, userMessage string, session *statex.SessionState) contractx.Action {
	assessment := s.assess(session)
	lower := strings.ToLower(userMessage)

	if action, ok := preRoute(userMessage, lower, fabricChosen(session)); ok {
		return ApplyGate(action, assessment)
	}
	if action, ok := s.shortcut(userMessage, lower, session); ok {
		return ApplyGate(action, assessment)
	}
	return ApplyGate(s.modelDecision(ctx, userMessage, session, assessment), assessment)
}

func fabricChosen(session *statex.SessionState) bool {
	return session.Fabric.Favorite != nil || session.DesignPreferences.RequestedFabricCode != ""
}

// ApplyGate enforces phase ordering on a routing decision: the design agent
// is reachable only once the needs assessment is complete. Other
// destinations pass through untouched, including the measurement agent,
// which customers may enter early on purpose.
func ApplyGate(action contractx.Action, assessment contractx.PhaseAssessment) contractx.Action {
	if action.Kind != contractx.ActionAgent || action.Name != string(contractx.AgentDesign) {
		return action
	}
	if assessment.NeedsAssessmentComplete {
		return action
	}
	action.Name = string(contractx.AgentNeedsAssessment)
	action.Reasoning = fmt.Sprintf(
		"completeness gate: needs assessment incomplete (missing: %s); wanted: %s",
		strings.Join(assessment.MissingFields, ", "), action.Reasoning,
	)
	return action
}

func (s *Supervisor) modelDecision(ctx context.Context, userMessage string, session *statex.SessionState, assessment contractx.PhaseAssessment) contractx.Action {
	if s.model == nil {
		return fallbackAction(assessment, "offline routing: no model configured, following recommended phase")
	}
	req := contractx.RouteRequest{
		SystemPrompt: buildSystemPrompt(s.basePrompt, session, assessment),
		History:      normalizeHistory(session),
		UserMessage:  userMessage,
	}
	dec, err := s.model.Decide(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("session_id", session.SessionID).Msg("routing model failed, using recommended phase")
		return fallbackAction(assessment, "fallback routing: model call failed, following recommended phase")
	}
	action, err := buildAction(dec)
	if err != nil {
		log.Warn().Err(err).Str("session_id", session.SessionID).Msg("routing decision rejected, using recommended phase")
		return fallbackAction(assessment, "fallback routing: model decision invalid, following recommended phase")
	}
	return action
}

// fallbackAction maps the recommended phase straight to a destination. It is
// pure and total: no network, no failure modes.
func fallbackAction(assessment contractx.PhaseAssessment, reason string) contractx.Action {
	if assessment.RecommendedPhase == contractx.PhaseEnd {
		return contractx.Action{
			Kind:       contractx.ActionEnd,
			Reasoning:  reason,
			Confidence: fallbackConfidence,
		}
	}
	return contractx.Action{
		Kind:           contractx.ActionAgent,
		Name:           string(phaseAgent(assessment.RecommendedPhase)),
		ShouldContinue: true,
		Reasoning:      reason,
		Confidence:     fallbackConfidence,
	}
}

func phaseAgent(phase contractx.Phase) contractx.AgentName {
	switch phase {
	case contractx.PhaseDesign:
		return contractx.AgentDesign
	case contractx.PhaseMeasurement:
		return contractx.AgentMeasurement
	default:
		return contractx.AgentNeedsAssessment
	}
}

var routableAgents = map[string]bool{
	string(contractx.AgentNeedsAssessment): true,
	string(contractx.AgentDesign):          true,
	string(contractx.AgentMeasurement):     true,
}

var routableTools = map[string]bool{
	contractx.ToolFabricSearch: true,
	contractx.ToolShowFabrics:  true,
	contractx.ToolMoodBoard:    true,
	contractx.ToolCRMLead:      true,
	contractx.ToolAppointment:  true,
	contractx.ToolMarkFavorite: true,
	contractx.ToolPricing:      true,
	contractx.ToolComparison:   true,
}

// buildAction validates a model decision and converts it into an Action.
// Tool actions coming from the router never auto-continue.
func buildAction(dec contractx.RouteDecision) (contractx.Action, error) {
	if dec.Confidence < 0 || dec.Confidence > 1 {
		return contractx.Action{}, fmt.Errorf("%w: confidence %v out of range", contractx.ErrSchemaViolation, dec.Confidence)
	}
	dest := strings.TrimSpace(dec.NextDestination)
	switch {
	case routableAgents[dest]:
		return contractx.Action{
			Kind:           contractx.ActionAgent,
			Name:           dest,
			ShouldContinue: true,
			Reasoning:      dec.Reasoning,
			Confidence:     dec.Confidence,
		}, nil
	case routableTools[dest]:
		return contractx.Action{
			Kind:           contractx.ActionTool,
			Name:           dest,
			Params:         dec.ActionParams,
			ShouldContinue: false,
			Reasoning:      dec.Reasoning,
			Confidence:     dec.Confidence,
		}, nil
	case dest == contractx.DestinationClarification:
		msg := strings.TrimSpace(dec.UserMessage)
		if msg == "" {
			msg = clarificationDefault
		}
		return contractx.Action{
			Kind:        contractx.ActionClarification,
			UserMessage: msg,
			Reasoning:   dec.Reasoning,
			Confidence:  dec.Confidence,
		}, nil
	case dest == contractx.DestinationEnd:
		return contractx.Action{
			Kind:        contractx.ActionEnd,
			UserMessage: strings.TrimSpace(dec.UserMessage),
			Reasoning:   dec.Reasoning,
			Confidence:  dec.Confidence,
		}, nil
	}
	return contractx.Action{}, fmt.Errorf("%w: unknown destination %q", contractx.ErrSchemaViolation, dec.NextDestination)
}
