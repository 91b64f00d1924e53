package discovery

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/larch-cluster/larch/internal/address"
	"github.com/larch-cluster/larch/transport"
)

// conn is a connection the tracker ensured for a probe. opened marks
// connections established for this round, as opposed to reused ones owned
// by the membership layer.
type conn struct {
	addr   address.Address
	opened bool
}

// tracker ensures connectivity to probe targets and maintains the
// per-address establishment counters. Counters live for the engine's
// lifetime, across rounds.
type tracker struct {
	transport transport.Dialer
	metrics   *metrics
	logger    *zap.Logger

	mu     sync.Mutex
	counts map[address.Address]uint64
}

func newTracker(t transport.Dialer, m *metrics, logger *zap.Logger) *tracker {
	return &tracker{
		transport: t,
		metrics:   m,
		logger:    logger,
		counts:    make(map[address.Address]uint64),
	}
}

// ensure opens or reuses a connection to addr. The address's counter
// increments once per connection-establishment event: a probe over an
// already live connection leaves it untouched.
func (t *tracker) ensure(ctx context.Context, addr address.Address) (conn, error) {
	opened, err := t.transport.Dial(ctx, addr)
	if err != nil {
		return conn{}, err
	}
	if opened {
		t.mu.Lock()
		t.counts[addr]++
		t.mu.Unlock()
		t.metrics.connects.Inc()
	}
	return conn{addr: addr, opened: opened}, nil
}

// release drops a connection the tracker opened for a round. Connections
// that were merely reused stay with their owner.
func (t *tracker) release(c conn) {
	if !c.opened {
		return
	}
	if err := t.transport.Drop(c.addr); err != nil {
		t.logger.Warn("failed to release probe connection",
			zap.Stringer("target", c.addr),
			zap.Error(err),
		)
	}
}

// counters returns a snapshot of the per-address establishment counts.
func (t *tracker) counters() map[address.Address]uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := make(map[address.Address]uint64, len(t.counts))
	for addr, count := range t.counts {
		snap[addr] = count
	}
	return snap
}
