// Package discovery implements unicast peer discovery: a node probes a
// statically configured list of candidate hosts, exchanges identity under a
// channel handshake, filters foreign clusters and incompatible protocol
// versions, and aggregates the live compatible peers it heard back from
// within a bounded round.
package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/larch-cluster/larch/internal/address"
	"github.com/larch-cluster/larch/internal/election"
	"github.com/larch-cluster/larch/transport"
)

// Discovery is a unicast discovery engine. It serves inbound probes from
// peers and runs outbound rounds on demand.
type Discovery struct {
	Config
	metrics   *metrics
	tracker   *tracker
	stopped   chan struct{}
	closeOnce sync.Once
}

// New validates cfg and returns an engine bound to its transport. The
// engine starts answering inbound probes immediately.
func New(cfg Config) (*Discovery, error) {
	cfg = cfg.Merge(DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Discovery{
		Config:  cfg,
		metrics: newMetrics(cfg.Registerer),
		stopped: make(chan struct{}),
	}
	d.tracker = newTracker(cfg.Transport, d.metrics, cfg.Logger)
	cfg.Transport.Handle(d.respond)
	return d, nil
}

// Ping runs one discovery round and returns the deduplicated responses
// collected before the deadline. The call blocks for the full timeout even
// if every known target has answered: the true population of responders is
// unknowable, so the round is deadline-driven rather than
// completion-driven. A zero timeout applies Config.PingTimeout.
//
// Unreachable targets, foreign clusters and incompatible peers reduce the
// result set, never fail the round; a round with zero responses is a valid
// outcome. Cancelling ctx ends the round early with the responses collected
// so far and ctx's error. A closed engine returns ErrClosed.
func (d *Discovery) Ping(ctx context.Context, timeout time.Duration) ([]Response, error) {
	if d.closed() {
		return nil, ErrClosed
	}
	if timeout <= 0 {
		timeout = d.PingTimeout
	}
	d.metrics.rounds.Inc()
	return newSession(d).run(ctx, timeout)
}

// Counters returns a snapshot of the per-address connection establishment
// counts, for diagnostics and tests.
func (d *Discovery) Counters() map[address.Address]uint64 {
	return d.tracker.counters()
}

// Close shuts the engine down: in-flight rounds drain and return their
// partial results, and subsequent rounds fail with ErrClosed. Close is
// idempotent.
func (d *Discovery) Close() error {
	d.closeOnce.Do(func() { close(d.stopped) })
	return nil
}

func (d *Discovery) closed() bool {
	select {
	case <-d.stopped:
		return true
	default:
		return false
	}
}

// respond serves one inbound probe. Probes from a foreign cluster or an
// incompatible peer are declined without a response payload; the prober
// observes silence, not an error value. respond is stateless and safe for
// concurrent invocation.
func (d *Discovery) respond(ctx context.Context, hs transport.Handshake, _ Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if d.closed() {
		return Response{}, ErrClosed
	}
	if hs.Cluster != d.Cluster {
		d.metrics.inbound.WithLabelValues(inboundOutcomeDeclined).Inc()
		d.Logger.Debug("declining probe from foreign cluster",
			zap.Stringer("from", hs.From),
			zap.String("cluster", string(hs.Cluster)),
		)
		return Response{}, errClusterMismatch
	}
	if !d.Version.Compatible(hs.Version) {
		d.metrics.inbound.WithLabelValues(inboundOutcomeDeclined).Inc()
		d.Logger.Debug("declining probe from incompatible peer",
			zap.Stringer("from", hs.From),
			zap.Stringer("peerVersion", hs.Version),
			zap.Stringer("localVersion", d.Version),
		)
		return Response{}, errVersionIncompatible
	}
	nodes, localID := d.Provider.Nodes()
	local, ok := nodes[localID]
	if !ok {
		return Response{}, errors.Newf("local node %s missing from topology view", localID)
	}
	candidates := nodes.WhereMasterEligible().Nodes()
	election.SortByMasterLikelihood(candidates)
	d.metrics.inbound.WithLabelValues(inboundOutcomeAnswered).Inc()
	return Response{
		Node:                local,
		ClusterStateVersion: d.Provider.ClusterState().WireVersion(),
		MasterCandidates:    candidates,
	}, nil
}
