package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

// SaveSession persists the session once the loop has settled. Failures abort
// the turn: replying without durable state would desynchronize the next one.
func SaveSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Session == nil {
		return nil, fmt.Errorf("%w: session is not loaded", contractx.ErrValidation)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: session store is nil", contractx.ErrValidation)
	}

	in.Session.Touch(in.Now)
	if err := store.Save(ctx, in.Session); err != nil {
		return nil, fmt.Errorf("save session %s: %w", in.SessionID, err)
	}
	return in, nil
}
