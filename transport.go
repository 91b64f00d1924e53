package larch

import (
	"context"

	"github.com/larch-cluster/larch/internal/address"
	"github.com/larch-cluster/larch/internal/discovery"
	"github.com/larch-cluster/larch/transport"
)

// Handshake is the identity a transport stamps onto every outbound probe
// and extracts from every inbound one.
type Handshake = transport.Handshake

// Transport is the wire implementation a node runs on. An implementation
// serves inbound probes once configured and exposes the client side used
// to send them.
type Transport interface {
	// Configure binds the transport to addr, stamps hs onto outbound
	// probes, and serves inbound ones until ctx is cancelled.
	Configure(ctx context.Context, addr address.Address, hs Handshake) error
	// Discovery returns the probe transport consumed by the engine.
	Discovery() discovery.Transport
}
