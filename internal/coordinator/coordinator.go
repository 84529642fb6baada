// Package coordinator polls a remote collection on an interval, coalesces
// on-demand refresh requests, and notifies listeners after each successful fetch.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/luxord/internal/debounce"
)

// DefaultCooldown is how long requested refreshes are batched, so that
// commanding several lights at once results in a single fetch.
const DefaultCooldown = 300 * time.Millisecond

// ErrNotReady is returned by Start when the first refresh fails.
var ErrNotReady = errors.New("coordinator not ready")

// FetchFunc loads the full collection. Returning a nil map with a nil error
// means "no update": the previous snapshot is kept.
type FetchFunc[K comparable, V any] func(ctx context.Context) (map[K]V, error)

// Listener is called after every successful refresh.
type Listener func()

// Options configures a Coordinator.
type Options struct {
	Name     string
	Interval time.Duration
	Cooldown time.Duration // default DefaultCooldown

	// OnFailure is called after each failed refresh.
	OnFailure func(error)
}

type listenerEntry struct {
	id int
	fn Listener
}

// Coordinator owns the refresh cycle for one collection.
// Refreshes never overlap; a refresh requested while one is running is
// folded into exactly one follow-up run.
type Coordinator[K comparable, V any] struct {
	name      string
	interval  time.Duration
	fetch     FetchFunc[K, V]
	snapshot  *Snapshot[K, V]
	onFailure func(error)
	debouncer *debounce.Debouncer

	mu           sync.Mutex
	ctx          context.Context
	cancel       context.CancelFunc
	listeners    []listenerEntry
	nextListener int
	running      bool
	pending      bool
	lastSuccess  bool
	lastErr      error
	lastRefresh  time.Time

	wg sync.WaitGroup
}

// New creates a coordinator that writes into snapshot.
func New[K comparable, V any](snapshot *Snapshot[K, V], fetch FetchFunc[K, V], opts Options) *Coordinator[K, V] {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}

	c := &Coordinator[K, V]{
		name:      opts.Name,
		interval:  opts.Interval,
		fetch:     fetch,
		snapshot:  snapshot,
		onFailure: opts.OnFailure,
	}
	c.debouncer = debounce.New(opts.Cooldown, c.debouncedRefresh)
	return c
}

// Name returns the coordinator name.
func (c *Coordinator[K, V]) Name() string {
	return c.name
}

// Snapshot returns the snapshot this coordinator maintains.
func (c *Coordinator[K, V]) Snapshot() *Snapshot[K, V] {
	return c.snapshot
}

// Start performs the first refresh and, if it succeeds, begins periodic polling.
// A failed first refresh returns an error wrapping ErrNotReady.
func (c *Coordinator[K, V]) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.ctx, c.cancel = runCtx, cancel
	c.mu.Unlock()

	if err := c.Refresh(runCtx); err != nil {
		cancel()
		return fmt.Errorf("%w: %s: %w", ErrNotReady, c.name, err)
	}

	c.wg.Add(1)
	go c.run(runCtx)

	log.Info().
		Str("coordinator", c.name).
		Dur("interval", c.interval).
		Msg("Coordinator started")
	return nil
}

// Stop cancels periodic polling and any pending debounced refresh.
func (c *Coordinator[K, V]) Stop() {
	c.debouncer.Close()

	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	c.wg.Wait()
	log.Debug().Str("coordinator", c.name).Msg("Coordinator stopped")
}

func (c *Coordinator[K, V]) run(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Refresh(ctx)
		}
	}
}

// RequestRefresh asks for a debounced refresh. The first request after an
// idle period refreshes immediately and blocks until it completes; requests
// inside the cooldown collapse into one trailing refresh.
func (c *Coordinator[K, V]) RequestRefresh() {
	c.debouncer.Call()
}

func (c *Coordinator[K, V]) debouncedRefresh() {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	_ = c.Refresh(ctx)
}

// Refresh fetches now. If a refresh is already running, it marks one
// follow-up refresh and returns nil without waiting.
func (c *Coordinator[K, V]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.pending = true
		c.mu.Unlock()
		log.Debug().Str("coordinator", c.name).Msg("Refresh in progress, queued follow-up")
		return nil
	}
	c.running = true
	c.mu.Unlock()

	for {
		err := c.refreshOnce(ctx)

		c.mu.Lock()
		if !c.pending || ctx.Err() != nil {
			c.running = false
			c.pending = false
			c.mu.Unlock()
			return err
		}
		c.pending = false
		c.mu.Unlock()
	}
}

func (c *Coordinator[K, V]) refreshOnce(ctx context.Context) error {
	items, err := c.fetch(ctx)
	if err != nil {
		c.mu.Lock()
		wasOK := c.lastErr == nil
		c.lastSuccess = false
		c.lastErr = err
		c.mu.Unlock()

		if wasOK {
			log.Warn().Err(err).Str("coordinator", c.name).Msg("Refresh failed, keeping last known state")
		} else {
			log.Debug().Err(err).Str("coordinator", c.name).Msg("Refresh still failing")
		}
		if c.onFailure != nil {
			c.onFailure(err)
		}
		return err
	}

	if items != nil {
		c.snapshot.replace(items)
	} else {
		log.Debug().Str("coordinator", c.name).Msg("Response carried no list, snapshot unchanged")
	}

	c.mu.Lock()
	recovered := !c.lastSuccess && c.lastErr != nil
	c.lastSuccess = true
	c.lastErr = nil
	c.lastRefresh = time.Now()
	listeners := make([]listenerEntry, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	if recovered {
		log.Info().Str("coordinator", c.name).Msg("Refresh recovered")
	}

	for _, l := range listeners {
		l.fn()
	}
	return nil
}

// AddListener registers fn and returns a function that unregisters it.
// Listeners run synchronously, in registration order, after each successful refresh.
func (c *Coordinator[K, V]) AddListener(fn Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextListener
	c.nextListener++
	c.listeners = append(c.listeners, listenerEntry{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// LastUpdateSuccess reports whether the most recent refresh succeeded.
func (c *Coordinator[K, V]) LastUpdateSuccess() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSuccess
}

// LastError returns the error of the most recent refresh, if it failed.
func (c *Coordinator[K, V]) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// LastRefresh returns when the last successful refresh completed.
func (c *Coordinator[K, V]) LastRefresh() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRefresh
}
