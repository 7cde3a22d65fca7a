package browser

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/web_agent/internal/events"
	"github.com/dgnsrekt/web_agent/internal/fault"
)

// Handle wraps one live engine instance owned by the pool. Tool handlers
// borrow it for a single session and must not retain it past the call.
type Handle struct {
	Key       Key
	CreatedAt time.Time

	instance Instance
	inflight atomic.Int64
}

// NewSession opens an isolated per-call session and tracks it against the
// handle's in-flight count until the session is closed.
func (h *Handle) NewSession(ctx context.Context) (Session, error) {
	sess, err := h.instance.NewSession(ctx)
	if err != nil {
		return nil, fault.New(fault.KindResourceUnavailable, "open browser session", err)
	}
	h.inflight.Add(1)
	return &countedSession{Session: sess, handle: h}, nil
}

// Inflight reports the number of sessions currently open against this handle.
func (h *Handle) Inflight() int64 { return h.inflight.Load() }

type countedSession struct {
	Session
	handle *Handle
	once   sync.Once
}

func (s *countedSession) Close(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		err = s.Session.Close(ctx)
		s.handle.inflight.Add(-1)
	})
	return err
}

// Pool provides one shared, lazily-created engine instance per Key. Creation
// is serialized per key; different keys launch fully in parallel.
type Pool struct {
	launcher Launcher
	broker   *events.Broker

	mu      sync.Mutex
	entries map[Key]*poolEntry

	launches atomic.Int64
}

type poolEntry struct {
	mu     sync.Mutex
	handle *Handle
}

// NewPool creates an empty pool backed by the given launcher. The broker
// may be nil when no event feed is wanted.
func NewPool(launcher Launcher, broker *events.Broker) *Pool {
	return &Pool{
		launcher: launcher,
		broker:   broker,
		entries:  make(map[Key]*poolEntry),
	}
}

func (p *Pool) publish(feed string, key Key) {
	if p.broker != nil {
		p.broker.Publish(feed, map[string]any{
			"engine":   string(key.Engine),
			"headless": key.Headless,
		})
	}
}

// Acquire returns the live handle for key, launching the engine on first use.
// Concurrent first-callers for the same key block on one launch and all
// receive the same handle. A handle whose instance has disconnected is
// discarded and transparently replaced.
func (p *Pool) Acquire(ctx context.Context, key Key) (*Handle, error) {
	p.mu.Lock()
	entry, ok := p.entries[key]
	if !ok {
		entry = &poolEntry{}
		p.entries[key] = entry
	}
	p.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.handle != nil {
		if entry.handle.instance.IsConnected() {
			return entry.handle, nil
		}
		slog.Warn("pooled browser disconnected, relaunching", "key", key.String())
		entry.handle = nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fault.New(fault.KindResourceUnavailable, "acquire cancelled", err)
	}

	instance, err := p.launcher.Launch(ctx, key)
	if err != nil {
		return nil, fault.Newf(fault.KindResourceUnavailable,
			"launch %s engine: %v", key.String(), err)
	}
	p.launches.Add(1)

	entry.handle = &Handle{
		Key:       key,
		CreatedAt: time.Now(),
		instance:  instance,
	}
	slog.Info("browser engine launched", "key", key.String())
	p.publish(events.FeedBrowserLaunched, key)
	return entry.handle, nil
}

// LaunchCount reports how many engine launches have occurred.
func (p *Pool) LaunchCount() int64 { return p.launches.Load() }

// Keys returns the keys with a live handle, for status reporting.
func (p *Pool) Keys() []Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	var keys []Key
	for k, e := range p.entries {
		e.mu.Lock()
		if e.handle != nil {
			keys = append(keys, k)
		}
		e.mu.Unlock()
	}
	return keys
}

// ReleaseAll closes every live handle. Best-effort: a failed close is
// recorded and teardown continues with the remaining handles.
func (p *Pool) ReleaseAll(ctx context.Context) error {
	p.mu.Lock()
	entries := make(map[Key]*poolEntry, len(p.entries))
	for k, e := range p.entries {
		entries[k] = e
	}
	p.entries = make(map[Key]*poolEntry)
	p.mu.Unlock()

	var errs []error
	for key, entry := range entries {
		entry.mu.Lock()
		handle := entry.handle
		entry.handle = nil
		entry.mu.Unlock()

		if handle == nil {
			continue
		}
		if n := handle.Inflight(); n > 0 {
			slog.Warn("releasing browser with sessions in flight", "key", key.String(), "inflight", n)
		}
		if err := handle.instance.Close(ctx); err != nil {
			slog.Error("browser close failed", "key", key.String(), "error", err)
			errs = append(errs, err)
			continue
		}
		slog.Info("browser engine released", "key", key.String())
		p.publish(events.FeedBrowserReleased, key)
	}
	return errors.Join(errs...)
}
