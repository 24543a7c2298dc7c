package orchestratornode

import (
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
)

const shortInputReply = "Bitte gib mir kurz Bescheid, wie ich helfen kann."

// RecordUserInput appends the incoming message to the history and arms the
// turn with it. Messages under three runes suspend immediately with a nudge;
// they still land in the history so the transcript stays complete.
func RecordUserInput(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Session == nil {
		return nil, fmt.Errorf("%w: session is not loaded", contractx.ErrValidation)
	}

	in.Session.AppendUser(in.Text)
	in.Session.UserInput = in.Text

	if utf8.RuneCountInString(in.Text) < 3 {
		log.Warn().Str("session_id", in.SessionID).Msg("user input below the three rune floor")
		appendReply(in, shortInputReply, senderValidator, nil)
		in.Awaiting = true
	}
	return in, nil
}
