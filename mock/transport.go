package mock

import (
	"context"

	"github.com/larch-cluster/larch"
	"github.com/larch-cluster/larch/internal/address"
	"github.com/larch-cluster/larch/internal/discovery"
	"github.com/larch-cluster/larch/transport"
	"github.com/larch-cluster/larch/transport/tmock"
)

// Network provides an in-memory network for exchanging probes between
// discovery nodes in the same process. Calls are synchronous and recorded,
// so tests can assert on traffic without opening real sockets.
type Network struct {
	// Discovery is the underlying probe network. Tests can inspect
	// Discovery.Entries to see every probe sent through the network.
	Discovery *tmock.Network[discovery.Request, discovery.Response]
}

// NewNetwork returns a new in-memory network.
func NewNetwork() *Network {
	return &Network{Discovery: tmock.NewNetwork[discovery.Request, discovery.Response]()}
}

// NewTransport returns a new, unconfigured transport on the network. Each
// node needs its own transport.
func (n *Network) NewTransport() larch.Transport { return &mockTransport{net: n} }

// mockTransport is an in-memory, synchronous implementation of
// larch.Transport. Its endpoint is routed lazily, as routing needs the
// listen address and handshake that only arrive with Configure.
type mockTransport struct {
	net   *Network
	unary *tmock.Unary[discovery.Request, discovery.Response]
}

// Configure implements larch.Transport.
func (t *mockTransport) Configure(_ context.Context, addr address.Address, hs transport.Handshake) error {
	t.unary = t.net.Discovery.Route(addr)
	t.unary.Handshake = hs
	return nil
}

// Discovery implements larch.Transport.
func (t *mockTransport) Discovery() discovery.Transport { return t.unary }
