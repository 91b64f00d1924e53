package address

import (
	"net"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Address is a host:port network address.
type Address string

// New composes an Address from a host and a port.
func New(host string, port int) Address {
	return Address(net.JoinHostPort(host, strconv.Itoa(port)))
}

// Host returns the host portion of the address.
func (a Address) Host() string {
	host, _, err := net.SplitHostPort(string(a))
	if err != nil {
		return string(a)
	}
	return host
}

// Port returns the port portion of the address.
func (a Address) Port() (int, error) {
	_, raw, err := net.SplitHostPort(string(a))
	if err != nil {
		return 0, errors.Wrapf(err, "address %s has no port", a)
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "address %s has a malformed port", a)
	}
	return port, nil
}

// PortString returns the port portion prefixed with a colon, suitable for
// handing to net.Listen.
func (a Address) PortString() string {
	_, raw, err := net.SplitHostPort(string(a))
	if err != nil {
		return ""
	}
	return ":" + raw
}

func (a Address) String() string { return string(a) }
