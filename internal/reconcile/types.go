// Package reconcile keeps a set of materialized entities in step with the
// latest snapshot of their source records.
package reconcile

// Kind identifies the collection an entity belongs to.
type Kind string

// Entity kinds
const (
	KindLight Kind = "light"
	KindScene Kind = "scene"
)

// Entity is anything the reconciler can materialize.
type Entity interface {
	// UniqueID is stable for the lifetime of the source record.
	UniqueID() string
}

// Host receives entity lifecycle hooks.
type Host[E Entity] interface {
	// AddEntities registers newly materialized entities.
	AddEntities(kind Kind, entities []E)

	// RemoveEntity force-removes an entity whose record disappeared.
	RemoveEntity(kind Kind, entity E) error
}

// Factory builds an entity for a newly seen record.
type Factory[K comparable, V any, E Entity] func(key K, record V) E
