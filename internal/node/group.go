package node

import (
	"github.com/larch-cluster/larch/internal/address"
)

// Group is a set of nodes keyed by ID.
type Group map[ID]Node

// WhereMasterEligible filters the group down to master-eligible nodes.
func (g Group) WhereMasterEligible() Group {
	return g.Where(func(_ ID, n Node) bool { return n.MasterEligible() })
}

// WhereNot filters out the nodes with the given IDs.
func (g Group) WhereNot(ids ...ID) Group {
	return g.Where(func(id ID, _ Node) bool {
		for _, exclude := range ids {
			if id == exclude {
				return false
			}
		}
		return true
	})
}

// Where filters the group down to the nodes matching cond.
func (g Group) Where(cond func(ID, Node) bool) Group {
	filtered := make(Group, len(g))
	for id, n := range g {
		if cond(id, n) {
			filtered[id] = n
		}
	}
	return filtered
}

// Addresses returns the addresses of the nodes in the group.
func (g Group) Addresses() (addresses []address.Address) {
	for _, n := range g {
		addresses = append(addresses, n.Address)
	}
	return addresses
}

// Nodes returns the members of the group as a slice.
func (g Group) Nodes() (nodes []Node) {
	for _, n := range g {
		nodes = append(nodes, n)
	}
	return nodes
}

// Copy returns a shallow copy of the group. Nodes are treated as immutable,
// so a shallow copy is enough to isolate the caller from later mutation of
// the group itself.
func (g Group) Copy() Group {
	return g.Where(func(ID, Node) bool { return true })
}
