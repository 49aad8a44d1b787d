package state

import tele "gopkg.in/telebot.v4"

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Session stores the conversation state and a typed data payload for a user.
// The payload type is fixed per Manager so handlers never deal with untyped
// key/value lookups.
type Session[T any] struct {
	State State
	Data  T
	// HasData reports whether Data was explicitly set for the current flow.
	HasData bool
}

// Manager orchestrates user sessions and FSM state transitions.
type Manager[T any] interface {
	Get(userID int64) Session[T]
	SetState(userID int64, st State)
	GetState(userID int64) State
	HasState(userID int64) bool
	ClearState(userID int64)

	SetData(userID int64, data T)
	Data(userID int64) (T, bool)
	Clear(userID int64)

	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}
