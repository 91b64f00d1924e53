package discovery

import "github.com/cockroachdb/errors"

var (
	// ErrClosed is returned by Ping after the engine has been closed.
	ErrClosed = errors.New("discovery engine closed")

	// errClusterMismatch and errVersionIncompatible decline an inbound
	// probe. They surface to the prober only as a failed request; the
	// prober records silence, not an error.
	errClusterMismatch     = errors.New("cluster name mismatch")
	errVersionIncompatible = errors.New("protocol version incompatible")
)
