package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

// LoadOrCreateSession pulls the session from the store, starting a fresh one
// for an unknown id. Any other store failure aborts the turn.
func LoadOrCreateSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: session store is nil", contractx.ErrValidation)
	}

	session, err := store.Load(ctx, in.SessionID)
	if err != nil {
		if !errors.Is(err, statex.ErrStateNotFound) {
			return nil, fmt.Errorf("load session %s: %w", in.SessionID, err)
		}
		session = statex.NewSessionState(in.SessionID, in.Now)
	}

	in.Session = session
	return in, nil
}
