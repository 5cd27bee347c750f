package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/randalmurphal/gangway/pkg/gangway/observability"
)

// Op is the kind of mutation behind an invalidation tick.
type Op string

// Mutation kinds carried in change snapshots.
const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is an optional typed snapshot published with a tick, for
// fine-grained reconciliation on the frontend.
type Change struct {
	Op    Op              `json:"op"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Token is the per-resource invalidation state: a monotonic sequence number
// and the snapshot of the change that produced it, if any.
type Token struct {
	Resource string  `json:"resource"`
	Seq      uint64  `json:"seq"`
	Change   *Change `json:"change,omitempty"`
}

// Bus is a per-resource latest-value broadcast. One successful write fans
// out to all current watchers; a watcher joining later only sees the latest
// state, never historical ticks.
//
// Each service instance owns (or is handed) its own Bus, so independent
// instances (e.g. under test) never share state. When two commands
// affecting the same resource race, the last to commit wins the token;
// the bus takes no resource-level locks.
type Bus struct {
	logger  *slog.Logger
	metrics observability.MetricsRecorder

	mu        sync.Mutex
	resources map[string]*resourceState
	nextID    uint64
}

type resourceState struct {
	token    Token
	watchers map[uint64]chan Token
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithBusLogger sets the bus logger.
func WithBusLogger(logger *slog.Logger) BusOption {
	return func(b *Bus) {
		b.logger = logger
	}
}

// WithBusMetrics sets the metrics recorder for ticks.
func WithBusMetrics(metrics observability.MetricsRecorder) BusOption {
	return func(b *Bus) {
		b.metrics = metrics
	}
}

// NewBus creates an empty invalidation bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		metrics:   observability.NoopMetrics{},
		resources: make(map[string]*resourceState),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Token returns the current invalidation token for a resource. An untouched
// resource has Seq 0.
func (b *Bus) Token(resource string) Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rs, ok := b.resources[resource]; ok {
		return rs.token
	}
	return Token{Resource: resource}
}

// Advance moves the resource's token forward and fans the tick out to all
// current watchers. Change may be nil when no snapshot accompanies the
// tick. Returns the new token.
func (b *Bus) Advance(resource string, change *Change) Token {
	b.mu.Lock()
	rs := b.state(resource)
	rs.token = Token{
		Resource: resource,
		Seq:      rs.token.Seq + 1,
		Change:   change,
	}
	token := rs.token
	// Latest-value semantics: displace a stale undelivered tick rather than
	// blocking behind a slow watcher. The fan-out stays under the lock so a
	// racing Advance cannot drain this token and re-deliver an older one;
	// every send here is non-blocking.
	for _, ch := range rs.watchers {
		select {
		case ch <- token:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- token:
			default:
			}
		}
	}
	b.mu.Unlock()

	observability.LogInvalidation(b.logger, resource, token.Seq)
	b.metrics.RecordInvalidation(context.Background(), resource)
	return token
}

// Watch attaches to the resource's broadcast. The returned channel holds at
// most the latest undelivered tick. The stop function detaches the watcher;
// calling it more than once is harmless.
func (b *Bus) Watch(resource string) (<-chan Token, func()) {
	b.mu.Lock()
	rs := b.state(resource)
	b.nextID++
	id := b.nextID
	ch := make(chan Token, 1)
	rs.watchers[id] = ch
	b.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if rs, ok := b.resources[resource]; ok {
				delete(rs.watchers, id)
			}
		})
	}
	return ch, stop
}

// state returns the resource entry, creating it if needed.
// Callers must hold b.mu.
func (b *Bus) state(resource string) *resourceState {
	rs, ok := b.resources[resource]
	if !ok {
		rs = &resourceState{
			token:    Token{Resource: resource},
			watchers: make(map[uint64]chan Token),
		}
		b.resources[resource] = rs
	}
	return rs
}
