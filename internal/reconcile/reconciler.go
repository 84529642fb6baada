package reconcile

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/luxord/internal/coordinator"
)

// Reconciler diffs a snapshot against its tracked entities: records with a
// new key get an entity, entities whose key vanished are removed.
// Existing entities are never recreated; they read through to the snapshot.
type Reconciler[K comparable, V any, E Entity] struct {
	kind     Kind
	snapshot *coordinator.Snapshot[K, V]
	create   Factory[K, V, E]
	host     Host[E]

	cycle    sync.Mutex // one reconciliation cycle at a time
	mu       sync.Mutex
	tracked  map[K]E
	removals sync.WaitGroup
}

// New creates a reconciler reading from snapshot.
func New[K comparable, V any, E Entity](kind Kind, snapshot *coordinator.Snapshot[K, V], create Factory[K, V, E], host Host[E]) *Reconciler[K, V, E] {
	return &Reconciler[K, V, E]{
		kind:     kind,
		snapshot: snapshot,
		create:   create,
		host:     host,
		tracked:  make(map[K]E),
	}
}

// Reconcile runs one cycle. The add pass completes before returning; the
// removal pass runs in the background and is awaited by the next cycle.
func (r *Reconciler[K, V, E]) Reconcile() {
	r.cycle.Lock()
	defer r.cycle.Unlock()

	r.removals.Wait()

	current := r.snapshot.All()

	r.mu.Lock()
	var added []E
	for key, record := range current {
		if _, ok := r.tracked[key]; ok {
			continue
		}
		e := r.create(key, record)
		r.tracked[key] = e
		added = append(added, e)
	}
	r.mu.Unlock()

	r.removals.Add(1)
	go r.removeStale(current)

	if len(added) > 0 {
		log.Info().
			Str("kind", string(r.kind)).
			Int("count", len(added)).
			Msg("Adding entities")
		r.host.AddEntities(r.kind, added)
	}
}

func (r *Reconciler[K, V, E]) removeStale(current map[K]V) {
	defer r.removals.Done()

	r.mu.Lock()
	stale := make(map[K]E)
	for key, e := range r.tracked {
		if _, ok := current[key]; !ok {
			stale[key] = e
		}
	}
	r.mu.Unlock()

	for key, e := range stale {
		r.remove(key, e)
	}
}

func (r *Reconciler[K, V, E]) remove(key K, e E) {
	if err := r.host.RemoveEntity(r.kind, e); err != nil {
		log.Warn().
			Err(err).
			Str("kind", string(r.kind)).
			Str("entity", e.UniqueID()).
			Msg("Host failed to remove entity")
	} else {
		log.Info().
			Str("kind", string(r.kind)).
			Str("entity", e.UniqueID()).
			Msg("Removed entity")
	}

	r.mu.Lock()
	delete(r.tracked, key)
	r.mu.Unlock()
}

// Wait blocks until the last removal pass has finished.
func (r *Reconciler[K, V, E]) Wait() {
	r.cycle.Lock()
	defer r.cycle.Unlock()
	r.removals.Wait()
}

// Clear removes every tracked entity through the host.
func (r *Reconciler[K, V, E]) Clear() {
	r.cycle.Lock()
	defer r.cycle.Unlock()
	r.removals.Wait()

	r.mu.Lock()
	all := make(map[K]E, len(r.tracked))
	for key, e := range r.tracked {
		all[key] = e
	}
	r.mu.Unlock()

	for key, e := range all {
		r.remove(key, e)
	}
}

// Get returns the tracked entity for key.
func (r *Reconciler[K, V, E]) Get(key K) (E, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tracked[key]
	return e, ok
}

// Entities returns a copy of the tracked entities.
func (r *Reconciler[K, V, E]) Entities() map[K]E {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[K]E, len(r.tracked))
	for key, e := range r.tracked {
		out[key] = e
	}
	return out
}

// Len returns the number of tracked entities.
func (r *Reconciler[K, V, E]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tracked)
}
