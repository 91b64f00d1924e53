// Package election provides the eligibility and ordering rules discovery
// uses when reporting master candidates. The election decision procedure
// itself lives with the membership layer; only its comparison rules are
// needed here.
package election

import (
	"strings"

	"golang.org/x/exp/slices"

	"github.com/larch-cluster/larch/internal/cluster"
	"github.com/larch-cluster/larch/internal/node"
)

// Eligible returns true if the node may stand in master elections.
func Eligible(n node.Node) bool { return n.MasterEligible() }

// SortByMasterLikelihood orders nodes by how likely they are to win an
// election: master-eligible nodes first, ties broken by ID so the order is
// stable across nodes that hold the same view.
func SortByMasterLikelihood(nodes []node.Node) {
	slices.SortFunc(nodes, func(a, b node.Node) int {
		if Eligible(a) != Eligible(b) {
			if Eligible(a) {
				return -1
			}
			return 1
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
}

// Candidate pairs a master-eligible node with the cluster-state version it
// reported, as collected from a discovery round.
type Candidate struct {
	Node                node.Node
	ClusterStateVersion uint64
}

// Compare orders two candidates for election: the candidate with the more
// recent cluster state wins, and an unrecovered state loses to any real one.
// The unrecovered sentinel is numerically the largest value, so a plain
// comparison would wrongly rank it best. Ties break toward the lower ID.
func Compare(a, b Candidate) int {
	aUnrecovered := a.ClusterStateVersion == cluster.UnrecoveredVersion
	bUnrecovered := b.ClusterStateVersion == cluster.UnrecoveredVersion
	if aUnrecovered != bUnrecovered {
		if aUnrecovered {
			return 1
		}
		return -1
	}
	if !aUnrecovered && a.ClusterStateVersion != b.ClusterStateVersion {
		if a.ClusterStateVersion > b.ClusterStateVersion {
			return -1
		}
		return 1
	}
	return strings.Compare(string(a.Node.ID), string(b.Node.ID))
}

// Best returns the winning candidate under Compare, or false if there are
// no candidates.
func Best(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if Compare(c, best) < 0 {
			best = c
		}
	}
	return best, true
}
