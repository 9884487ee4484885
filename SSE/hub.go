package SSE

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"TeleCare/Metrics"
	"TeleCare/Models"
	"TeleCare/Store"
)

// Transform turns the raw value at a subscribed path into what one client may
// see. A nil raw value means the path is empty.
type Transform func(raw json.RawMessage) (any, error)

// Snapshot is one event on a subscription: the full current value at Path.
type Snapshot struct {
	Path string `json:"path"`
	Data any    `json:"data"`
}

// Subscription receives a snapshot of its path after every change.
type Subscription struct {
	path      string
	transform Transform
	events    chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	last []byte
}

func (s *Subscription) Path() string { return s.path }
func (s *Subscription) Events() <-chan []byte { return s.events }
func (s *Subscription) Done() <-chan struct{} { return s.done }
func (s *Subscription) close() { s.closeOnce.Do(func() { close(s.done) }) }

// Hub fans out document snapshots to subscribers keyed by path. Writers call
// Changed; Resync picks up writes made outside this process.
type Hub struct {
	store       Store.Store
	metrics     *Metrics.Collector
	logger      *zap.Logger
	sendTimeout time.Duration

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func NewHub(store Store.Store, metrics *Metrics.Collector, logger *zap.Logger) *Hub {
	return &Hub{
		store:       store,
		metrics:     metrics,
		logger:      logger,
		sendTimeout: time.Second,
		subs:        make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a subscription and queues the current snapshot. The
// subscription is registered before the first read, so a change landing during
// that read is delivered as a follow-up snapshot.
func (h *Hub) Subscribe(ctx context.Context, path string, transform Transform) (*Subscription, error) {
	if transform == nil {
		transform = Identity
	}
	sub := &Subscription{
		path:      Models.CleanPath(path),
		transform: transform,
		events:    make(chan []byte, 4),
		done:      make(chan struct{}),
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	h.metrics.Subscribers.Inc()

	payload, err := h.snapshot(ctx, sub)
	if err != nil {
		h.Unsubscribe(sub)
		return nil, err
	}
	sub.last = payload
	sub.events <- payload
	h.metrics.SnapshotsSent.Inc()
	return sub, nil
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	_, ok := h.subs[sub]
	delete(h.subs, sub)
	h.mu.Unlock()
	if ok {
		h.metrics.Subscribers.Dec()
	}
	sub.close()
}

// Changed refreshes every subscription whose path overlaps path.
func (h *Hub) Changed(path string) {
	matching := h.matching(func(sub *Subscription) bool { return Models.PathsOverlap(sub.path, path) })
	if len(matching) == 0 {
		return
	}
	go h.refresh(context.Background(), matching)
}

// Resync re-reads every subscribed path and sends the ones whose view changed.
func (h *Hub) Resync(ctx context.Context) {
	h.refresh(ctx, h.matching(func(*Subscription) bool { return true }))
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) matching(keep func(*Subscription) bool) []*Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Subscription, 0, len(h.subs))
	for sub := range h.subs {
		if keep(sub) {
			out = append(out, sub)
		}
	}
	return out
}

func (h *Hub) refresh(ctx context.Context, subs []*Subscription) {
	for _, sub := range subs {
		if ctx.Err() != nil {
			return
		}
		h.refreshOne(ctx, sub)
	}
}

// refreshOne reads and sends under the subscription's lock so that the last
// event a client receives always reflects the latest read.
func (h *Hub) refreshOne(ctx context.Context, sub *Subscription) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	payload, err := h.snapshot(ctx, sub)
	if err != nil {
		h.logger.Warn("snapshot read failed", zap.String("path", sub.path), zap.Error(err))
		return
	}
	if bytes.Equal(payload, sub.last) {
		return
	}

	select {
	case sub.events <- payload:
		sub.last = payload
		h.metrics.SnapshotsSent.Inc()
	case <-sub.done:
	case <-time.After(h.sendTimeout):
		h.logger.Info("dropping unresponsive subscriber", zap.String("path", sub.path))
		h.Unsubscribe(sub)
	}
}

func (h *Hub) snapshot(ctx context.Context, sub *Subscription) ([]byte, error) {
	var raw json.RawMessage
	if err := h.store.Get(ctx, sub.path, &raw); err != nil {
		if !errors.Is(err, Store.ErrNotFound) {
			return nil, err
		}
		raw = nil
	}
	data, err := sub.transform(raw)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(Snapshot{Path: sub.path, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return payload, nil
}

// Identity passes the stored value through unchanged.
func Identity(raw json.RawMessage) (any, error) {
	if raw == nil {
		return nil, nil
	}
	return raw, nil
}
