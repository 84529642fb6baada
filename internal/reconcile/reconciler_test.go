package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dokzlo13/luxord/internal/coordinator"
)

type testEntity struct {
	key int
}

func (e *testEntity) UniqueID() string { return fmt.Sprintf("test_%d", e.key) }

type recordingHost struct {
	mu        sync.Mutex
	added     []*testEntity
	removed   []*testEntity
	removeErr error
}

func (h *recordingHost) AddEntities(kind Kind, entities []*testEntity) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.added = append(h.added, entities...)
}

func (h *recordingHost) RemoveEntity(kind Kind, e *testEntity) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removed = append(h.removed, e)
	return h.removeErr
}

func (h *recordingHost) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.added), len(h.removed)
}

// fixture drives a real snapshot through a coordinator so tests exercise
// the same replace path production uses.
type fixture struct {
	records map[int]string
	coord   *coordinator.Coordinator[int, string]
	rec     *Reconciler[int, string, *testEntity]
	host    *recordingHost
	created int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{host: &recordingHost{}}
	snap := coordinator.NewSnapshot[int, string]()
	f.coord = coordinator.New(snap, func(ctx context.Context) (map[int]string, error) {
		out := make(map[int]string, len(f.records))
		for k, v := range f.records {
			out[k] = v
		}
		return out, nil
	}, coordinator.Options{Name: "test", Interval: time.Hour})
	f.rec = New(KindLight, snap, func(key int, _ string) *testEntity {
		f.created++
		return &testEntity{key: key}
	}, f.host)
	return f
}

func (f *fixture) load(t *testing.T, records map[int]string) {
	t.Helper()
	f.records = records
	if err := f.coord.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	f.rec.Reconcile()
	f.rec.Wait()
}

func TestReconcileCreatesEntities(t *testing.T) {
	f := newFixture(t)
	f.load(t, map[int]string{1: "A", 2: "B"})

	if f.rec.Len() != 2 {
		t.Fatalf("tracked = %d, want 2", f.rec.Len())
	}
	added, removed := f.host.counts()
	if added != 2 || removed != 0 {
		t.Errorf("host saw %d adds, %d removes; want 2, 0", added, removed)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.load(t, map[int]string{1: "A", 2: "B"})

	f.rec.Reconcile()
	f.rec.Wait()
	f.rec.Reconcile()
	f.rec.Wait()

	if f.created != 2 {
		t.Errorf("factory called %d times, want 2", f.created)
	}
	added, removed := f.host.counts()
	if added != 2 || removed != 0 {
		t.Errorf("host saw %d adds, %d removes; want 2, 0", added, removed)
	}
}

func TestReconcileAddsAndRemoves(t *testing.T) {
	f := newFixture(t)
	f.load(t, map[int]string{1: "A", 2: "B"})
	two, _ := f.rec.Get(2)

	f.load(t, map[int]string{2: "B", 3: "C"})

	if _, ok := f.rec.Get(1); ok {
		t.Error("entity 1 still tracked")
	}
	if _, ok := f.rec.Get(3); !ok {
		t.Error("entity 3 not created")
	}
	if got, _ := f.rec.Get(2); got != two {
		t.Error("entity 2 was recreated")
	}

	f.host.mu.Lock()
	defer f.host.mu.Unlock()
	if len(f.host.removed) != 1 || f.host.removed[0].key != 1 {
		t.Errorf("removed = %v, want [1]", f.host.removed)
	}
	if len(f.host.added) != 3 || f.host.added[2].key != 3 {
		t.Errorf("added = %v, want 1,2 then 3", f.host.added)
	}
}

func TestFieldChangeDoesNotRecreate(t *testing.T) {
	f := newFixture(t)
	f.load(t, map[int]string{1: "A"})
	f.load(t, map[int]string{1: "renamed"})

	if f.created != 1 {
		t.Errorf("factory called %d times, want 1", f.created)
	}
}

func TestRemoveErrorStillUntracks(t *testing.T) {
	f := newFixture(t)
	f.host.removeErr = errors.New("host busy")
	f.load(t, map[int]string{1: "A"})
	f.load(t, map[int]string{})

	if f.rec.Len() != 0 {
		t.Errorf("tracked = %d, want 0", f.rec.Len())
	}
}

func TestClearRemovesEverything(t *testing.T) {
	f := newFixture(t)
	f.load(t, map[int]string{1: "A", 2: "B", 3: "C"})

	f.rec.Clear()

	if f.rec.Len() != 0 {
		t.Errorf("tracked = %d, want 0", f.rec.Len())
	}
	if _, removed := f.host.counts(); removed != 3 {
		t.Errorf("host saw %d removes, want 3", removed)
	}
}

func TestReconcileAsListener(t *testing.T) {
	f := newFixture(t)
	f.coord.AddListener(f.rec.Reconcile)
	f.records = map[int]string{5: "E"}

	if err := f.coord.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer f.coord.Stop()

	if _, ok := f.rec.Get(5); !ok {
		t.Error("listener did not reconcile")
	}
}
