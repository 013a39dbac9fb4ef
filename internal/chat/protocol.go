// Package chat implements the message relay: per-connection session state,
// the command/response protocol, and history replay.
package chat

// Reserved command literals. Matching is exact.
const (
	CommandClear   = "/clear"
	CommandConfirm = "/yes"
)

// Fixed replies.
const (
	ConfirmClearPrompt = "Are you sure you want to clear all messages? Type /yes to confirm."
	ClearedReply       = "All messages have been cleared."
	FallbackReply      = "Sorry, I'm having trouble understanding you right now."
)

// State is the confirmation state of one session.
type State int

const (
	// StateIdle is the initial state.
	StateIdle State = iota
	// StateAwaitingClearConfirmation follows a /clear from Idle.
	StateAwaitingClearConfirmation
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingClearConfirmation:
		return "awaiting_clear_confirmation"
	default:
		return "unknown"
	}
}

// action is what a turn does with its input.
type action int

const (
	actionChat action = iota
	actionPromptClear
	actionConfirmClear
)

// decide maps (state, input) to an action. Anything that is not a command
// valid in the current state is chat, including /yes from Idle and a
// repeated /clear while awaiting confirmation.
func decide(state State, message string) action {
	switch {
	case state == StateIdle && message == CommandClear:
		return actionPromptClear
	case state == StateAwaitingClearConfirmation && message == CommandConfirm:
		return actionConfirmClear
	default:
		return actionChat
	}
}

// Session is the transient state of one connection. It is never persisted
// and never shared between connections.
type Session struct {
	ID string

	awaitingClearConfirmation bool
}

// NewSession returns a session in StateIdle.
func NewSession(id string) *Session {
	return &Session{ID: id}
}

// State reports the current confirmation state.
func (s *Session) State() State {
	if s.awaitingClearConfirmation {
		return StateAwaitingClearConfirmation
	}
	return StateIdle
}
