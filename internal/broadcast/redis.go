package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"gatehouse/internal/platform/metrics"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/requestcontext"
)

const globalChannel = "gatehouse:events:global"

func siteChannel(siteID id.SiteID) string {
	return "gatehouse:events:site:" + siteID.String()
}

// Redis is the multi-instance broadcaster. Events go through Redis pub/sub
// (one channel per site plus a global channel) so every server instance
// delivers them to its own connections; local fan-out reuses Memory rooms.
//
// Publish order within a channel is whatever Redis delivered, which keeps
// all instances consistent with each other.
type Redis struct {
	client  *redis.Client
	local   *Memory
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu   sync.Mutex
	subs map[id.SiteID]*siteSub

	globalSub *redis.PubSub
	closed    bool
}

type siteSub struct {
	pubsub *redis.PubSub
	refs   int
}

// RedisOption configures the Redis broadcaster.
type RedisOption func(*Redis)

func WithRedisLogger(logger *slog.Logger) RedisOption {
	return func(r *Redis) { r.logger = logger }
}

func WithRedisMetrics(mx *metrics.Metrics) RedisOption {
	return func(r *Redis) { r.local.metrics = mx; r.metrics = mx }
}

func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		local:  NewMemory(),
		logger: slog.Default(),
		subs:   make(map[id.SiteID]*siteSub),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.local.logger = r.logger

	r.globalSub = client.Subscribe(context.Background(), globalChannel)
	go r.pump(r.globalSub)
	return r
}

func (r *Redis) Join(ctx context.Context, connID string, siteID id.SiteID) (<-chan Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	ch, err := r.local.Join(ctx, connID, siteID)
	if err != nil {
		return nil, err
	}
	sub, ok := r.subs[siteID]
	if !ok {
		sub = &siteSub{pubsub: r.client.Subscribe(context.Background(), siteChannel(siteID))}
		r.subs[siteID] = sub
		go r.pump(sub.pubsub)
	}
	sub.refs++
	return ch, nil
}

func (r *Redis) Leave(connID string, siteID id.SiteID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.local.Leave(connID, siteID)
	sub, ok := r.subs[siteID]
	if !ok {
		return
	}
	sub.refs--
	if sub.refs <= 0 {
		_ = sub.pubsub.Close()
		delete(r.subs, siteID)
	}
}

func (r *Redis) Publish(ctx context.Context, siteID id.SiteID, name string, payload any) error {
	ev, err := newEvent(siteID, name, payload, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	return r.publish(ctx, siteChannel(siteID), ev)
}

func (r *Redis) PublishGlobal(ctx context.Context, name string, payload any) error {
	ev, err := newEvent(id.SiteID{}, name, payload, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	return r.publish(ctx, globalChannel, ev)
}

func (r *Redis) publish(ctx context.Context, channel string, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, channel, raw).Err(); err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.EventsPublished.WithLabelValues(ev.Name).Inc()
	}
	return nil
}

// pump moves messages from one Redis subscription into the local rooms.
// Exits when the subscription closes.
func (r *Redis) pump(pubsub *redis.PubSub) {
	ctx := context.Background()
	for msg := range pubsub.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			r.logger.Warn("discarding malformed broadcast message",
				"channel", msg.Channel,
				"error", err,
			)
			continue
		}
		r.local.dispatch(ctx, ev)
	}
}

func (r *Redis) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	_ = r.globalSub.Close()
	for _, sub := range r.subs {
		_ = sub.pubsub.Close()
	}
	r.subs = map[id.SiteID]*siteSub{}
	return r.local.Close()
}
