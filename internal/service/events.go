package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taekwondodev/go-BaaS-Client/internal/models"
)

// AuthListener receives every auth-state transition. session is nil after
// sign-out.
type AuthListener func(event models.AuthEvent, session *models.Session)

// Events fans auth-state transitions out to the registered listeners.
type Events struct {
	mu        sync.RWMutex
	listeners map[uuid.UUID]AuthListener
	order     []uuid.UUID
}

func NewEvents() *Events {
	return &Events{listeners: make(map[uuid.UUID]AuthListener)}
}

// Subscribe registers l and returns the function that removes it.
func (e *Events) Subscribe(l AuthListener) (unsubscribe func()) {
	id := uuid.New()

	e.mu.Lock()
	e.listeners[id] = l
	e.order = append(e.order, id)
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.listeners, id)
			for i, other := range e.order {
				if other == id {
					e.order = append(e.order[:i], e.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Emit calls listeners synchronously in registration order.
func (e *Events) Emit(event models.AuthEvent, session *models.Session) {
	e.mu.RLock()
	listeners := make([]AuthListener, 0, len(e.order))
	for _, id := range e.order {
		listeners = append(listeners, e.listeners[id])
	}
	e.mu.RUnlock()

	for _, l := range listeners {
		l(event, session)
	}
}

// LogAuthEvents is the debug-mode listener.
func LogAuthEvents(log *slog.Logger) AuthListener {
	return func(event models.AuthEvent, session *models.Session) {
		attrs := []any{"event", string(event), "timestamp", time.Now().UTC().Format(time.RFC3339)}
		if session != nil && session.User != nil {
			attrs = append(attrs,
				"user_id", session.User.ID.String(),
				"email", session.User.Email,
				"role", session.User.Role,
			)
		}
		log.Debug("auth state changed", attrs...)
	}
}
