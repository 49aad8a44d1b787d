package state

import (
	"sync"

	"github.com/m3rciful/subbot/core/logger"
	tghelpers "github.com/m3rciful/subbot/core/telegram/helpers"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

type memoryManager[T any] struct {
	mu       sync.RWMutex
	sessions map[int64]*Session[T]
}

// NewMemoryManager constructs an in-memory Manager implementation.
// State is not expected to survive a process restart.
func NewMemoryManager[T any]() Manager[T] {
	return &memoryManager[T]{
		sessions: make(map[int64]*Session[T]),
	}
}

// Get returns a snapshot of the session for a user, or an idle session if none exists.
func (m *memoryManager[T]) Get(userID int64) Session[T] {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if session, ok := m.sessions[userID]; ok {
		return *session
	}
	return Session[T]{State: StateIdle}
}

// SetState sets the FSM state for the given user, creating a session if necessary.
func (m *memoryManager[T]) SetState(userID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		sess = &Session[T]{}
		m.sessions[userID] = sess
	}
	sess.State = st
}

// GetState returns the current FSM state of a user, or StateIdle if none exists.
func (m *memoryManager[T]) GetState(userID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[userID]; ok {
		return sess.State
	}
	return StateIdle
}

// ClearState resets the FSM state to idle for a user without removing session data.
func (m *memoryManager[T]) ClearState(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[userID]; ok {
		sess.State = StateIdle
	}
}

// HasState checks if a user has an active state other than idle.
func (m *memoryManager[T]) HasState(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[userID]
	return ok && sess.State != StateIdle
}

// SetData stores the typed payload for the given user session.
func (m *memoryManager[T]) SetData(userID int64, data T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		sess = &Session[T]{State: StateIdle}
		m.sessions[userID] = sess
	}
	sess.Data = data
	sess.HasData = true
}

// Data retrieves the typed payload for the given user session.
func (m *memoryManager[T]) Data(userID int64) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var zero T
	sess, ok := m.sessions[userID]
	if !ok || !sess.HasData {
		return zero, false
	}
	return sess.Data, true
}

// Clear removes the entire session for a user.
func (m *memoryManager[T]) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
}

// InProgress reports whether the user currently has an active FSM state.
func (m *memoryManager[T]) InProgress(userID int64) bool {
	return m.HasState(userID)
}

// ManagerHandler executes the handler function registered for the user's current state, if any.
func (m *memoryManager[T]) ManagerHandler(c tele.Context) error {
	userID := c.Sender().ID
	current := m.GetState(userID)
	ctx := tghelpers.BuildContext(c)
	logger.Debug(ctx, "tg", "fsm.manager",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("state", string(current)),
	)

	if handler, ok := fsmHandlers[current]; ok {
		return handler(c)
	}
	return nil
}
