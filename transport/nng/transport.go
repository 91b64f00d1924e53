// Package nng provides a discovery transport over nanomsg REQ/REP sockets.
// Probes travel as JSON envelopes that carry the channel handshake inline,
// since the protocol has no metadata channel of its own.
package nng

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/rep"
	"go.nanomsg.org/mangos/v3/protocol/req"
	"go.uber.org/zap"

	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/larch-cluster/larch/internal/address"
	"github.com/larch-cluster/larch/internal/discovery"
	"github.com/larch-cluster/larch/transport"
)

// |||||| WIRE ||||||

// envelope frames a probe with the handshake that a richer transport would
// carry out of band.
type envelope struct {
	Handshake transport.Handshake `json:"handshake"`
	Request   discovery.Request   `json:"request"`
}

// reply frames a response, or the decline that replaced it.
type reply struct {
	Response discovery.Response `json:"response"`
	Error    string             `json:"error,omitempty"`
}

// |||||| POOL ||||||

// conn is a REQ socket bound to a single target. The protocol allows one
// in-flight exchange per socket, so round trips serialize on the mutex.
type conn struct {
	mu   sync.Mutex
	sock mangos.Socket
}

func (c *conn) roundTrip(ctx context.Context, data []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sendDeadline, recvDeadline := time.Duration(0), time.Duration(0)
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		sendDeadline, recvDeadline = remaining, remaining
	}
	if err := c.sock.SetOption(mangos.OptionSendDeadline, sendDeadline); err != nil {
		return nil, err
	}
	if err := c.sock.SetOption(mangos.OptionRecvDeadline, recvDeadline); err != nil {
		return nil, err
	}
	// The socket has no context support: a watcher unblocks Send and Recv
	// when the round is cancelled.
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.sock.Close()
		case <-finished:
		}
	}()
	if err := c.sock.Send(data); err != nil {
		return nil, ctxOr(ctx, err)
	}
	res, err := c.sock.Recv()
	if err != nil {
		return nil, ctxOr(ctx, err)
	}
	return res, nil
}

func ctxOr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

type pool struct {
	mu    sync.Mutex
	conns map[address.Address]*conn
}

func newPool() *pool { return &pool{conns: make(map[address.Address]*conn)} }

// acquire returns the connection to target, establishing one if none
// exists. opened reports establishment to exactly one caller, so concurrent
// acquires of the same target never double-count the event.
func (p *pool) acquire(ctx context.Context, target address.Address) (*conn, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	p.mu.Lock()
	if c, ok := p.conns[target]; ok {
		p.mu.Unlock()
		return c, false, nil
	}
	p.mu.Unlock()
	sock, err := req.NewSocket()
	if err != nil {
		return nil, false, err
	}
	if err := sock.Dial("tcp://" + string(target)); err != nil {
		_ = sock.Close()
		return nil, false, errors.Wrapf(err, "failed to dial %s", target)
	}
	c := &conn{sock: sock}
	p.mu.Lock()
	if existing, ok := p.conns[target]; ok {
		// Lost a dial race: keep the connection already in the pool.
		p.mu.Unlock()
		_ = sock.Close()
		return existing, false, nil
	}
	p.conns[target] = c
	p.mu.Unlock()
	return c, true, nil
}

func (p *pool) drop(target address.Address) error {
	p.mu.Lock()
	c, ok := p.conns[target]
	delete(p.conns, target)
	p.mu.Unlock()
	if !ok {
		return nil
	}
	return c.sock.Close()
}

func (p *pool) connected(target address.Address) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.conns[target]
	return ok
}

// |||||| DISCOVERY ||||||

type discoveryTransport struct {
	*pool
	handshake transport.Handshake
	handler   transport.Handler[discovery.Request, discovery.Response]
}

func (t *discoveryTransport) Send(ctx context.Context, target address.Address, request discovery.Request) (discovery.Response, error) {
	c, _, err := t.acquire(ctx, target)
	if err != nil {
		return discovery.Response{}, err
	}
	data, err := json.Marshal(envelope{Handshake: t.handshake, Request: request})
	if err != nil {
		return discovery.Response{}, err
	}
	out, err := c.roundTrip(ctx, data)
	if err != nil {
		// A failed exchange leaves the socket in an unknown state: drop it
		// so the next probe re-establishes.
		_ = t.pool.drop(target)
		return discovery.Response{}, err
	}
	var res reply
	if err := json.Unmarshal(out, &res); err != nil {
		return discovery.Response{}, err
	}
	if res.Error != "" {
		return discovery.Response{}, errors.New(res.Error)
	}
	return res.Response, nil
}

func (t *discoveryTransport) Handle(handler transport.Handler[discovery.Request, discovery.Response]) {
	t.handler = handler
}

func (t *discoveryTransport) Dial(ctx context.Context, target address.Address) (bool, error) {
	_, opened, err := t.acquire(ctx, target)
	return opened, err
}

func (t *discoveryTransport) Drop(target address.Address) error { return t.pool.drop(target) }

func (t *discoveryTransport) Connected(target address.Address) bool {
	return t.pool.connected(target)
}

func (t *discoveryTransport) String() string { return "nng" }

func (t *discoveryTransport) respond(ctx context.Context, data []byte) []byte {
	out := reply{}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		out.Error = "malformed probe"
	} else if t.handler == nil {
		out.Error = "unavailable"
	} else if res, err := t.handler(ctx, env.Handshake, env.Request); err != nil {
		out.Error = err.Error()
	} else {
		out.Response = res
	}
	encoded, err := json.Marshal(out)
	if err != nil {
		return []byte(`{"error":"encoding failure"}`)
	}
	return encoded
}

// |||||| TRANSPORT ||||||

// New returns an unconfigured nanomsg transport. Configure must be called
// before the transport serves or sends probes.
func New() *Transport {
	p := newPool()
	return &Transport{
		Logger:    zap.NewNop(),
		pool:      p,
		discovery: &discoveryTransport{pool: p},
	}
}

// Transport bundles the nanomsg-backed discovery transport behind a single
// listener lifecycle.
type Transport struct {
	// Logger receives connection lifecycle events if set before Configure.
	Logger *zap.Logger

	pool      *pool
	discovery *discoveryTransport
}

// Discovery returns the discovery-facing side of the transport.
func (t *Transport) Discovery() discovery.Transport { return t.discovery }

// Configure stamps hs onto every outbound probe and starts serving inbound
// ones on addr's port. The listener closes when ctx is cancelled.
func (t *Transport) Configure(ctx context.Context, addr address.Address, hs transport.Handshake) error {
	t.discovery.handshake = hs
	sock, err := rep.NewSocket()
	if err != nil {
		return err
	}
	logger := t.Logger.With(zap.Stringer("address", addr))
	sock.SetPipeEventHook(func(event mangos.PipeEvent, pipe mangos.Pipe) {
		switch event {
		case mangos.PipeEventAttached:
			logger.Debug("peer attached", zap.String("peer", pipe.Address()))
		case mangos.PipeEventDetached:
			logger.Debug("peer detached", zap.String("peer", pipe.Address()))
		}
	})
	if err := sock.Listen("tcp://*" + addr.PortString()); err != nil {
		_ = sock.Close()
		return errors.Wrapf(err, "failed to listen on %s", addr)
	}
	go func() {
		<-ctx.Done()
		_ = sock.Close()
	}()
	go t.serve(ctx, sock)
	return nil
}

func (t *Transport) serve(ctx context.Context, sock mangos.Socket) {
	for {
		data, err := sock.Recv()
		if err != nil {
			return
		}
		if err := sock.Send(t.discovery.respond(ctx, data)); err != nil {
			return
		}
	}
}
