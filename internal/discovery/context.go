package discovery

import (
	"github.com/larch-cluster/larch/internal/cluster"
	"github.com/larch-cluster/larch/internal/node"
)

// ContextProvider supplies the engine's read-only view of the cluster. It is
// implemented by the owning membership layer; the engine never mutates what
// it reads through it. Implementations must be safe for concurrent use.
type ContextProvider interface {
	// Nodes returns the locally known topology and the local node's ID.
	// The local node must be present in the returned group.
	Nodes() (node.Group, node.ID)
	// ClusterState returns the current cluster-state snapshot, including
	// its recovery blocks.
	ClusterState() cluster.State
}

// Static returns a provider over a fixed local node and cluster state, for
// nodes that boot without a membership layer.
func Static(host node.Node, state cluster.State) ContextProvider {
	return static{host: host, state: state}
}

type static struct {
	host  node.Node
	state cluster.State
}

func (s static) Nodes() (node.Group, node.ID) {
	return node.Group{s.host.ID: s.host}, s.host.ID
}

func (s static) ClusterState() cluster.State { return s.state }
