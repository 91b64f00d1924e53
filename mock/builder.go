package mock

import (
	"strconv"

	"github.com/larch-cluster/larch"
	"github.com/larch-cluster/larch/internal/address"
)

// Builder opens discovery nodes on sequential loopback addresses. Each node
// receives the addresses of all previously opened nodes as its host list,
// so later nodes discover earlier ones.
type Builder struct {
	// PortRangeStart is the port assigned to the first node. Subsequent
	// nodes take the next port up.
	PortRangeStart int
	// DefaultOptions are applied to every node the builder opens, before
	// any per-node options.
	DefaultOptions []larch.Option
	// Network, when set, gives every node its own transport on the same
	// in-memory network. When nil, nodes run the default transport.
	Network *Network
	// Nodes holds every node the builder has opened, keyed by listen
	// address.
	Nodes         map[larch.Address]larch.Discovery
	peerAddresses []larch.Address
}

// New opens the next node in the range.
func (b *Builder) New(opts ...larch.Option) (larch.Discovery, error) {
	addr := address.Address("127.0.0.1:" + strconv.Itoa(b.PortRangeStart+len(b.peerAddresses)))
	hosts := make([]string, len(b.peerAddresses))
	for i, peer := range b.peerAddresses {
		hosts[i] = string(peer)
	}
	all := append([]larch.Option{}, b.DefaultOptions...)
	if b.Network != nil {
		all = append(all, larch.WithTransport(b.Network.NewTransport()))
	}
	all = append(all, opts...)
	d, err := larch.Open(addr, hosts, all...)
	if err != nil {
		return nil, err
	}
	if b.Nodes == nil {
		b.Nodes = make(map[larch.Address]larch.Discovery)
	}
	b.Nodes[addr] = d
	b.peerAddresses = append(b.peerAddresses, addr)
	return d, nil
}

// Close closes every node the builder has opened.
func (b *Builder) Close() error {
	for _, d := range b.Nodes {
		if err := d.Close(); err != nil {
			return err
		}
	}
	return nil
}
