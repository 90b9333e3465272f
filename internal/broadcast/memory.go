package broadcast

import (
	"context"
	"log/slog"
	"sync"

	"gatehouse/internal/platform/metrics"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/requestcontext"
)

// connBuffer is how many events a connection may lag before drops start.
const connBuffer = 32

// Memory is the in-process broadcaster for single-instance deployments.
//
// The room lock is held across the whole fan-out so two publishes to the
// same room are delivered to every member in the same order. Sends are
// non-blocking: a full connection buffer drops the event for that
// connection only.
type Memory struct {
	mu     sync.RWMutex
	rooms  map[id.SiteID]map[string]chan Event
	closed bool

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// MemoryOption configures the Memory broadcaster.
type MemoryOption func(*Memory)

func WithLogger(logger *slog.Logger) MemoryOption {
	return func(m *Memory) { m.logger = logger }
}

func WithMetrics(mx *metrics.Metrics) MemoryOption {
	return func(m *Memory) { m.metrics = mx }
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		rooms:  make(map[id.SiteID]map[string]chan Event),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Join(ctx context.Context, connID string, siteID id.SiteID) (<-chan Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	room, ok := m.rooms[siteID]
	if !ok {
		room = make(map[string]chan Event)
		m.rooms[siteID] = room
	}
	if old, ok := room[connID]; ok {
		close(old)
	}
	ch := make(chan Event, connBuffer)
	room[connID] = ch

	m.logger.DebugContext(ctx, "connection joined room",
		"conn_id", connID,
		"site_id", siteID,
		"room_size", len(room),
	)
	return ch, nil
}

func (m *Memory) Leave(connID string, siteID id.SiteID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[siteID]
	if !ok {
		return
	}
	if ch, ok := room[connID]; ok {
		close(ch)
		delete(room, connID)
	}
	if len(room) == 0 {
		delete(m.rooms, siteID)
	}
}

func (m *Memory) Publish(ctx context.Context, siteID id.SiteID, name string, payload any) error {
	ev, err := newEvent(siteID, name, payload, requestcontext.Now(ctx))
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.deliver(ctx, m.rooms[siteID], ev)
	m.countPublished(name)
	return nil
}

func (m *Memory) PublishGlobal(ctx context.Context, name string, payload any) error {
	ev, err := newEvent(id.SiteID{}, name, payload, requestcontext.Now(ctx))
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, room := range m.rooms {
		m.deliver(ctx, room, ev)
	}
	m.countPublished(name)
	return nil
}

// dispatch hands an already-built event to one site room. Used by the Redis
// broadcaster to fan subscribed messages out to local connections.
func (m *Memory) dispatch(ctx context.Context, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if ev.SiteID.IsNil() {
		for _, room := range m.rooms {
			m.deliver(ctx, room, ev)
		}
		return
	}
	m.deliver(ctx, m.rooms[ev.SiteID], ev)
}

// deliver runs with the broadcaster lock held, which is what keeps per-room
// ordering: publishes to the same room serialize before any sends happen.
func (m *Memory) deliver(ctx context.Context, room map[string]chan Event, ev Event) {
	for connID, ch := range room {
		select {
		case ch <- ev:
		default:
			if m.metrics != nil {
				m.metrics.EventsDropped.Inc()
			}
			m.logger.WarnContext(ctx, "dropping event for slow connection",
				"conn_id", connID,
				"event", ev.Name,
			)
		}
	}
}

func (m *Memory) countPublished(name string) {
	if m.metrics != nil {
		m.metrics.EventsPublished.WithLabelValues(name).Inc()
	}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	for _, room := range m.rooms {
		for _, ch := range room {
			close(ch)
		}
	}
	m.rooms = map[id.SiteID]map[string]chan Event{}
	return nil
}
