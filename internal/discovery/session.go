package discovery

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/larch-cluster/larch/internal/address"
	"github.com/larch-cluster/larch/internal/node"
)

// session is the state of a single discovery round: the responses collected
// so far and the connections the round opened and must release when it
// ends. Sessions are single-use.
type session struct {
	*Discovery
	localID   node.ID
	mu        sync.Mutex
	responses map[node.ID]Response
	conns     []conn
}

func newSession(d *Discovery) *session {
	_, localID := d.Provider.Nodes()
	return &session{
		Discovery: d,
		localID:   localID,
		responses: make(map[node.ID]Response),
	}
}

// run executes the round: resolve targets, probe them concurrently, wait
// out the deadline, then freeze and aggregate. The returned slice is
// ordered by node id.
func (s *session) run(ctx context.Context, timeout time.Duration) ([]Response, error) {
	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	targets := s.Resolve(probeCtx)
	s.Logger.Debug("discovery round started",
		zap.Int("targets", len(targets)),
		zap.Duration("timeout", timeout),
	)

	g := errgroup.Group{}
	for _, target := range targets {
		target := target
		g.Go(func() error {
			s.probe(probeCtx, target)
			return nil
		})
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var err error
	select {
	case <-timer.C:
	case <-ctx.Done():
		err = ctx.Err()
	case <-s.stopped:
	}

	// Cut off in-flight probes, wait for them to drain, then release the
	// connections this round opened.
	cancel()
	_ = g.Wait()
	s.releaseAll()

	responses := s.aggregate()
	s.Logger.Debug("discovery round finished", zap.Int("responses", len(responses)))
	return responses, err
}

// probe pings a single target. Failures are counted and logged, never
// propagated: one unreachable target must not disturb the rest of the
// round.
func (s *session) probe(ctx context.Context, target address.Address) {
	c, err := s.tracker.ensure(ctx, target)
	if err != nil {
		s.metrics.probeFailures.WithLabelValues(failureReasonDial).Inc()
		s.Logger.Debug("target unreachable", zap.Stringer("target", target), zap.Error(err))
		return
	}
	s.track(c)
	res, err := s.Transport.Send(ctx, target, Request{})
	if err != nil {
		s.metrics.probeFailures.WithLabelValues(failureReasonSend).Inc()
		s.Logger.Debug("no response from target", zap.Stringer("target", target), zap.Error(err))
		return
	}
	s.insert(res)
}

func (s *session) track(c conn) {
	if !c.opened {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns = append(s.conns, c)
}

// insert records a response. The first response for a node id wins and
// later duplicates are dropped without comparison. The local node never
// records itself: a configured host list that includes the node's own
// address must not produce a self-response.
func (s *session) insert(res Response) {
	if res.Node.ID == s.localID {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.responses[res.Node.ID]; ok {
		s.metrics.duplicates.Inc()
		s.Logger.Debug("dropping duplicate response", zap.String("node", string(res.Node.ID)))
		return
	}
	s.responses[res.Node.ID] = res
	s.metrics.responses.Inc()
}

// releaseAll drops the connections this round opened. Connections that
// already existed before the round are left untouched.
func (s *session) releaseAll() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, c := range conns {
		s.tracker.release(c)
	}
}

func (s *session) aggregate() []Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	responses := maps.Values(s.responses)
	slices.SortFunc(responses, func(a, b Response) int {
		return strings.Compare(string(a.Node.ID), string(b.Node.ID))
	})
	return responses
}
