package discovery

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/larch-cluster/larch/internal/address"
)

// maxPortRange caps how many ports a single host specification may expand
// to.
const maxPortRange = 64

// Resolve assembles the targets for a round: the configured host
// specifications resolved to concrete addresses, followed by the addresses
// of the currently known members. Targets are deduplicated, so an address
// that is both configured and a member is probed once. Specifications that
// fail to parse or resolve are skipped with a warning; they never fail the
// round.
func (d *Discovery) Resolve(ctx context.Context) []address.Address {
	resolved := make([][]address.Address, len(d.Hosts))
	g := errgroup.Group{}
	g.SetLimit(d.ResolveConcurrency)
	for i, spec := range d.Hosts {
		i, spec := i, spec
		g.Go(func() error {
			addrs, err := d.resolveSpec(ctx, spec)
			if err != nil {
				d.Logger.Warn("skipping host specification",
					zap.String("host", spec),
					zap.Error(err),
				)
				d.metrics.probeFailures.WithLabelValues(failureReasonResolve).Inc()
				return nil
			}
			resolved[i] = addrs
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[address.Address]bool)
	var targets []address.Address
	add := func(addr address.Address) {
		if !seen[addr] {
			seen[addr] = true
			targets = append(targets, addr)
		}
	}
	for _, addrs := range resolved {
		for _, addr := range addrs {
			add(addr)
		}
	}

	// Known members are probed as well. Their addresses are sorted so the
	// target order is stable across rounds.
	nodes, localID := d.Provider.Nodes()
	members := nodes.WhereNot(localID).Addresses()
	slices.Sort(members)
	for _, addr := range members {
		add(addr)
	}
	return targets
}

// resolveSpec resolves one host specification to its probe addresses. The
// lookup of a hostname is bounded by ResolveTimeout; IP literals skip the
// lookup. A hostname resolving to several addresses contributes only the
// first.
func (d *Discovery) resolveSpec(ctx context.Context, spec string) ([]address.Address, error) {
	host, ports, err := parseSpec(spec, d.DefaultPort)
	if err != nil {
		return nil, err
	}
	if net.ParseIP(host) == nil {
		rctx, cancel := context.WithTimeout(ctx, d.ResolveTimeout)
		defer cancel()
		found, err := d.Resolver.LookupHost(rctx, host)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, errors.Newf("host %q resolved to no addresses", host)
		}
		host = found[0]
	}
	addrs := make([]address.Address, 0, len(ports))
	for _, port := range ports {
		addrs = append(addrs, address.New(host, port))
	}
	return addrs, nil
}

// parseSpec splits a configured host specification into a host and the
// ports to probe. Accepted forms: "host", "host:port" and
// "host:lowPort-highPort". A specification without a port portion gets
// defaultPort.
func parseSpec(spec string, defaultPort int) (string, []int, error) {
	if spec == "" {
		return "", nil, errors.New("empty host specification")
	}
	host, rawPort, err := net.SplitHostPort(spec)
	if err != nil {
		// No port portion. Bare IPv6 literals land here too.
		return spec, []int{defaultPort}, nil
	}
	if host == "" {
		return "", nil, errors.Newf("host specification %q has no host", spec)
	}
	low, high, ranged := strings.Cut(rawPort, "-")
	if !ranged {
		port, err := parsePort(rawPort)
		if err != nil {
			return "", nil, errors.Wrapf(err, "host specification %q", spec)
		}
		return host, []int{port}, nil
	}
	lo, err := parsePort(low)
	if err != nil {
		return "", nil, errors.Wrapf(err, "host specification %q", spec)
	}
	hi, err := parsePort(high)
	if err != nil {
		return "", nil, errors.Wrapf(err, "host specification %q", spec)
	}
	if lo > hi {
		return "", nil, errors.Newf("host specification %q has an inverted port range", spec)
	}
	if hi-lo+1 > maxPortRange {
		return "", nil, errors.Newf("host specification %q expands to more than %d ports", spec, maxPortRange)
	}
	ports := make([]int, 0, hi-lo+1)
	for port := lo; port <= hi; port++ {
		ports = append(ports, port)
	}
	return host, ports, nil
}

func parsePort(raw string) (int, error) {
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed port %q", raw)
	}
	if port < 1 || port > 65535 {
		return 0, errors.Newf("port %d out of range", port)
	}
	return port, nil
}
