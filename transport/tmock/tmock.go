// Package tmock provides an in-memory transport network for tests. Every
// endpoint routed on a Network can reach every other synchronously, and the
// network records each request it carries.
package tmock

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/larch-cluster/larch/internal/address"
	"github.com/larch-cluster/larch/transport"
)

// Entry records a single request carried by the network.
type Entry[REQ any] struct {
	// From is the address of the sending endpoint.
	From address.Address
	// Address is the target the request was sent to.
	Address address.Address
	// Request is the payload that was carried.
	Request REQ
}

// Network is an in-memory network of Unary endpoints.
type Network[REQ, RES any] struct {
	// Entries are the requests carried so far, in send order.
	Entries []Entry[REQ]

	mu     sync.Mutex
	routes map[address.Address]*Unary[REQ, RES]
	port   int
}

// NewNetwork opens a new in-memory network.
func NewNetwork[REQ, RES any]() *Network[REQ, RES] {
	return &Network[REQ, RES]{routes: make(map[address.Address]*Unary[REQ, RES])}
}

// Route binds a new endpoint to the network at the given address. An empty
// target assigns the next free loopback address.
func (n *Network[REQ, RES]) Route(target address.Address) *Unary[REQ, RES] {
	n.mu.Lock()
	defer n.mu.Unlock()
	if target == "" {
		n.port++
		target = address.New("127.0.0.1", n.port)
	}
	u := &Unary[REQ, RES]{Address: target, net: n, conns: make(map[address.Address]bool)}
	n.routes[target] = u
	return u
}

// Sent returns the entries sent by the endpoint at from.
func (n *Network[REQ, RES]) Sent(from address.Address) (entries []Entry[REQ]) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.Entries {
		if e.From == from {
			entries = append(entries, e)
		}
	}
	return entries
}

func (n *Network[REQ, RES]) record(e Entry[REQ]) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Entries = append(n.Entries, e)
}

func (n *Network[REQ, RES]) route(target address.Address) (*Unary[REQ, RES], bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	u, ok := n.routes[target]
	return u, ok
}

// Unary is a single endpoint on a Network. It implements transport.Unary
// and transport.Dialer.
type Unary[REQ, RES any] struct {
	// Address is where this endpoint is routed on the network.
	Address address.Address
	// Handshake is stamped onto every outbound request.
	Handshake transport.Handshake

	net     *Network[REQ, RES]
	mu      sync.Mutex
	handler transport.Handler[REQ, RES]
	conns   map[address.Address]bool
}

// Send implements transport.Unary.
func (u *Unary[REQ, RES]) Send(ctx context.Context, target address.Address, req REQ) (res RES, err error) {
	if err := ctx.Err(); err != nil {
		return res, err
	}
	u.net.record(Entry[REQ]{From: u.Address, Address: target, Request: req})
	remote, ok := u.net.route(target)
	if !ok {
		return res, errors.Newf("no route to %s", target)
	}
	handler := remote.currentHandler()
	if handler == nil {
		return res, errors.Newf("no handler bound at %s", target)
	}
	return handler(ctx, u.Handshake, req)
}

// Handle implements transport.Unary.
func (u *Unary[REQ, RES]) Handle(handler transport.Handler[REQ, RES]) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.handler = handler
}

// Dial implements transport.Dialer.
func (u *Unary[REQ, RES]) Dial(ctx context.Context, target address.Address) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, ok := u.net.route(target); !ok {
		return false, errors.Newf("no route to %s", target)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conns[target] {
		return false, nil
	}
	u.conns[target] = true
	return true, nil
}

// Drop implements transport.Dialer.
func (u *Unary[REQ, RES]) Drop(target address.Address) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.conns, target)
	return nil
}

// Connected implements transport.Dialer.
func (u *Unary[REQ, RES]) Connected(target address.Address) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.conns[target]
}

func (u *Unary[REQ, RES]) currentHandler() transport.Handler[REQ, RES] {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.handler
}

func (u *Unary[REQ, RES]) String() string { return "mock" }
