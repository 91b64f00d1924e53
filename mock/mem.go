package mock

import (
	"time"

	"github.com/larch-cluster/larch"
)

// NewMemBuilder returns a Builder whose nodes share an in-memory network
// and probe with deadlines suited to fast, synchronous tests.
func NewMemBuilder(defaultOpts ...larch.Option) *Builder {
	return &Builder{
		PortRangeStart: 1,
		Network:        NewNetwork(),
		DefaultOptions: append([]larch.Option{
			larch.WithPingTimeout(50 * time.Millisecond),
			larch.WithResolveTimeout(50 * time.Millisecond),
		}, defaultOpts...),
	}
}
