package session

import (
	"github.com/dokzlo13/luxord/internal/eventbus"
	"github.com/dokzlo13/luxord/internal/reconcile"
)

type namedEntity interface {
	reconcile.Entity
	Name() string
}

// eventHost announces entity churn on the event bus.
type eventHost[E namedEntity] struct {
	s *Session
}

func newEventHost[E namedEntity](s *Session) *eventHost[E] {
	return &eventHost[E]{s: s}
}

func (h *eventHost[E]) AddEntities(kind reconcile.Kind, entities []E) {
	for _, e := range entities {
		h.s.publish(eventbus.EventTypeEntityAdded, map[string]interface{}{
			"kind":   string(kind),
			"entity": e.UniqueID(),
			"name":   e.Name(),
		})
	}
}

func (h *eventHost[E]) RemoveEntity(kind reconcile.Kind, e E) error {
	h.s.publish(eventbus.EventTypeEntityRemoved, map[string]interface{}{
		"kind":   string(kind),
		"entity": e.UniqueID(),
	})
	return nil
}
