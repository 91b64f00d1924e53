// Package transport defines the abstractions larch uses to exchange
// messages between nodes. Implementations live in the subpackages; the rest
// of the codebase depends only on the interfaces here.
package transport

import (
	"context"

	"github.com/larch-cluster/larch/internal/address"
	"github.com/larch-cluster/larch/internal/cluster"
	"github.com/larch-cluster/larch/internal/version"
)

// Handshake is the channel-level identity a transport presents when opening
// a request to a peer. It is stamped by the transport at configuration time,
// never by the caller, so a request cannot claim an identity its channel
// doesn't hold.
type Handshake struct {
	// From is the address the sending node is reachable at.
	From address.Address `json:"from"`
	// Cluster is the name of the cluster the sending node belongs to.
	Cluster cluster.Name `json:"cluster"`
	// Version is the protocol version span the sending node declares.
	Version version.Span `json:"version"`
}

// Handler receives an inbound request along with the sender's channel
// handshake. Returning an error declines the request; the transport conveys
// the failure and no response payload reaches the sender.
type Handler[REQ, RES any] func(ctx context.Context, hs Handshake, req REQ) (RES, error)

// Unary is a bidirectional request/response channel. Send issues a request
// to the peer listening at target; Handle binds the callback invoked for
// inbound requests. Implementations must be safe for concurrent Sends.
type Unary[REQ, RES any] interface {
	Send(ctx context.Context, target address.Address, req REQ) (RES, error)
	Handle(handler Handler[REQ, RES])
}

// Dialer manages the connections underneath a Unary channel. Dial is
// idempotent: it reuses a live connection when one exists and reports
// opened = true only when this call established a fresh one. Drop releases
// the connection to target if one is held.
type Dialer interface {
	Dial(ctx context.Context, target address.Address) (opened bool, err error)
	Drop(target address.Address) error
	Connected(target address.Address) bool
}
