package discovery

import "github.com/larch-cluster/larch/transport"

// Transport is the channel discovery probes travel over: a unary
// request/response channel plus management of the connections beneath it.
type Transport interface {
	transport.Unary[Request, Response]
	transport.Dialer
}
