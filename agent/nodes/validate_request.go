package orchestratornode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

var ErrInvalidSession = errors.New("session id is empty")

// Senders tagged onto assistant turns produced by the loop itself rather
// than by a specialist agent or tool.
const (
	senderSupervisor = "supervisor"
	senderValidator  = "validator"
	senderSystem     = "system"
)

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	SessionID string
	Reply     string
	Messages  []statex.Turn
	Stage     string
}

// GraphState is the mutable carrier threaded through the turn loop. The
// graph executes one node at a time, so exactly one node owns it at any
// point.
type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time

	Session    *statex.SessionState
	Assessment contractx.PhaseAssessment

	// Pending is the next step to execute. Nil with Awaiting unset means
	// the routing stage has not produced a step yet.
	Pending *contractx.Action

	Reply    string
	Stage    string
	Awaiting bool
}

// ValidateRequest checks the request shape. The three rune input floor is
// not enforced here: the short message must still reach the session
// history, so it is checked after the session is loaded.
func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      strings.TrimSpace(in.Text),
		Now:       nowFn().UTC(),
	}, nil
}

// appendReply records an assistant turn and keeps the latest reply for the
// turn result. Empty content is dropped.
func appendReply(in *GraphState, content, sender string, metadata map[string]any) {
	msg := strings.TrimSpace(content)
	if msg == "" {
		return
	}
	in.Session.AppendAssistant(msg, sender, metadata)
	in.Reply = msg
}
