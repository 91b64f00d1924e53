package mock

import (
	"sync"

	"github.com/larch-cluster/larch"
)

// Provider is a mutable larch.ContextProvider: the membership view a real
// cluster layer would supply, adjustable at will from tests.
type Provider struct {
	mu    sync.Mutex
	nodes larch.NodeGroup
	local larch.NodeID
	state larch.ClusterState
}

// NewProvider returns a provider whose topology contains host alone.
func NewProvider(host larch.Node, state larch.ClusterState) *Provider {
	return &Provider{
		nodes: larch.NodeGroup{host.ID: host},
		local: host.ID,
		state: state,
	}
}

// Nodes implements larch.ContextProvider.
func (p *Provider) Nodes() (larch.NodeGroup, larch.NodeID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nodes.Copy(), p.local
}

// ClusterState implements larch.ContextProvider.
func (p *Provider) ClusterState() larch.ClusterState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetState replaces the cluster state snapshot peers receive.
func (p *Provider) SetState(state larch.ClusterState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
}

// AddNode adds n to the topology view.
func (p *Provider) AddNode(n larch.Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nodes[n.ID] = n
}
