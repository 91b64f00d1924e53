// Package larch implements unicast peer discovery for clusters that cannot
// rely on multicast: a node probes a configured list of candidate hosts,
// exchanges identity under a cluster-name and protocol-version handshake,
// and aggregates the live, compatible peers that answered within a bounded
// round.
package larch

import (
	"context"
	"time"

	"github.com/larch-cluster/larch/internal/address"
	"github.com/larch-cluster/larch/internal/cluster"
	"github.com/larch-cluster/larch/internal/discovery"
	"github.com/larch-cluster/larch/internal/node"
	"github.com/larch-cluster/larch/internal/version"
)

type (
	Address         = address.Address
	NodeID          = node.ID
	Node            = node.Node
	NodeGroup       = node.Group
	Role            = node.Role
	Roles           = node.Roles
	ClusterName     = cluster.Name
	ClusterState    = cluster.State
	ClusterBlocks   = cluster.Blocks
	Version         = version.V
	VersionSpan     = version.Span
	Request         = discovery.Request
	Response        = discovery.Response
	ContextProvider = discovery.ContextProvider
	Resolver        = discovery.Resolver
)

const (
	RoleData   = node.RoleData
	RoleMaster = node.RoleMaster
	RoleIngest = node.RoleIngest

	// BlockStateNotRecovered marks a cluster state that exists but is
	// withheld from peers pending recovery.
	BlockStateNotRecovered = cluster.BlockStateNotRecovered

	// UnrecoveredVersion is reported as a peer's cluster-state version while
	// that peer's state carries BlockStateNotRecovered.
	UnrecoveredVersion = cluster.UnrecoveredVersion

	// DefaultClusterName partitions nodes that were not configured with an
	// explicit cluster name.
	DefaultClusterName ClusterName = "larch"
)

// ErrClosed is returned by rounds invoked on a closed node.
var ErrClosed = discovery.ErrClosed

// The running release and the oldest release it still interoperates with.
var (
	CurrentVersion = version.MustParse("0.3.0")
	MinimumVersion = version.MustParse("0.1.0")
)

// DefaultVersionSpan is the protocol span a node declares unless
// WithVersionSpan overrides it.
func DefaultVersionSpan() VersionSpan {
	return VersionSpan{Current: CurrentVersion, Minimum: MinimumVersion}
}

// ParseVersion parses a "major.minor.patch" protocol version.
func ParseVersion(s string) (Version, error) { return version.Parse(s) }

// MustParseVersion parses s, panicking if it is malformed.
func MustParseVersion(s string) Version { return version.MustParse(s) }

// Discovery is a handle on a running discovery node.
type Discovery interface {
	// Ping runs one discovery round, blocking for the full timeout, and
	// returns the deduplicated responses collected before the deadline. A
	// zero timeout applies the configured default.
	Ping(ctx context.Context, timeout time.Duration) ([]Response, error)
	// Resolve returns the concrete addresses the next round would probe.
	Resolve(ctx context.Context) []Address
	// Counters returns the per-address connection establishment counts.
	Counters() map[Address]uint64
	// Close shuts the node down. In-flight rounds return their partial
	// results, and later rounds fail with ErrClosed.
	Close() error
}
