package discovery

import (
	"github.com/larch-cluster/larch/internal/cluster"
	"github.com/larch-cluster/larch/internal/node"
)

// Request is a discovery probe. It carries no fields: the sender's identity
// and protocol version ride the channel handshake, not the payload.
type Request struct{}

// Response is a peer's answer to a probe.
type Response struct {
	// Node is the responder's identity.
	Node node.Node `json:"node"`
	// ClusterStateVersion is the version of the responder's cluster state,
	// or cluster.UnrecoveredVersion while that state is blocked from
	// recovery.
	ClusterStateVersion uint64 `json:"cluster_state_version"`
	// MasterCandidates are the master-eligible nodes the responder knows
	// of, in election-likelihood order.
	MasterCandidates []node.Node `json:"master_candidates,omitempty"`
}

// Unrecovered returns true if the responder withheld its state version
// pending recovery.
func (r Response) Unrecovered() bool {
	return r.ClusterStateVersion == cluster.UnrecoveredVersion
}
