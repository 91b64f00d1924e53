package cluster

import "math"

// Name is the identity of a cluster. Discovery uses it as a coarse
// compatibility gate: nodes configured with different names never discover
// each other. Comparison is exact and case-sensitive.
type Name string

// Block marks a cluster-wide restriction carried by the state snapshot.
type Block uint8

const (
	// BlockStateNotRecovered is set while the cluster state exists but has
	// not yet been recovered. While it is set the state's version must not
	// be reported to peers.
	BlockStateNotRecovered Block = 1 << iota
)

// Blocks is the set of blocks carried by a state snapshot.
type Blocks uint8

// Has returns true if the set contains the given block.
func (b Blocks) Has(block Block) bool { return b&Blocks(block) != 0 }

// With returns the set extended with the given block.
func (b Blocks) With(block Block) Blocks { return b | Blocks(block) }

// Without returns the set with the given block removed.
func (b Blocks) Without(block Block) Blocks { return b &^ Blocks(block) }

// UnrecoveredVersion is the sentinel reported in place of a real state
// version while the state carries BlockStateNotRecovered. It is distinct
// from every real version number.
const UnrecoveredVersion uint64 = math.MaxUint64

// State is a read-only snapshot of cluster state as supplied by the
// membership layer. Discovery only ever reads it.
type State struct {
	Version uint64 `json:"version"`
	Blocks  Blocks `json:"blocks"`
}

// WireVersion is the state version as reported to peers: the real version,
// or UnrecoveredVersion while the snapshot is blocked from recovery.
func (s State) WireVersion() uint64 {
	if s.Blocks.Has(BlockStateNotRecovered) {
		return UnrecoveredVersion
	}
	return s.Version
}
