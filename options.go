package larch

import (
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/larch-cluster/larch/internal/address"
	"github.com/larch-cluster/larch/internal/cluster"
	"github.com/larch-cluster/larch/internal/discovery"
	"github.com/larch-cluster/larch/internal/node"
	"github.com/larch-cluster/larch/internal/version"
	"github.com/larch-cluster/larch/transport/grpc"
)

type Option func(*options)

type options struct {
	// ctx is the base context for the transport's server lifecycle.
	ctx context.Context
	// addr sets the address the host node binds and advertises.
	addr address.Address
	// hosts are the host specifications probed each round.
	hosts []string
	// nodeID, nodeName, roles, and attributes identify the host node.
	nodeID     node.ID
	nodeName   string
	roles      node.Roles
	attributes map[string]string
	// cluster partitions discovery: only same-named clusters answer.
	cluster cluster.Name
	// span is the declared protocol compatibility span.
	span version.Span
	// state seeds the default provider's cluster-state snapshot.
	state cluster.State
	// provider supplies topology and cluster state. Defaults to a static
	// view of the host node alone.
	provider discovery.ContextProvider
	// discovery carries engine tuning (timeouts, ports, resolver).
	discovery discovery.Config
	// logger is shared by the engine and the transport.
	logger *zap.Logger
	// registerer receives the engine's metrics.
	registerer prometheus.Registerer
	// transport is the wire implementation for probes.
	// this setting overrides the transport in the discovery config.
	transport Transport
}

func newOptions(addr address.Address, hosts []string, opts ...Option) *options {
	o := &options{addr: addr, hosts: hosts}
	for _, opt := range opts {
		opt(o)
	}
	mergeDefaultOptions(o)
	return o
}

func mergeDefaultOptions(o *options) {
	// |||| CONTEXT ||||

	if o.ctx == nil {
		o.ctx = context.Background()
	}

	// |||| IDENTITY ||||

	if o.nodeID == "" {
		o.nodeID = node.NewID()
	}
	if o.nodeName == "" {
		if name, err := os.Hostname(); err == nil {
			o.nodeName = name
		} else {
			o.nodeName = string(o.nodeID)
		}
	}
	if o.roles == 0 {
		o.roles = node.DefaultRoles()
	}
	if o.cluster == "" {
		o.cluster = DefaultClusterName
	}
	if o.span.Zero() {
		o.span = DefaultVersionSpan()
	}

	// |||| LOGGING ||||

	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	// |||| TRANSPORT ||||

	if o.transport == nil {
		o.transport = grpc.New()
	}

	// |||| DISCOVERY ||||

	o.discovery.Cluster = o.cluster
	o.discovery.Version = o.span
	o.discovery.Hosts = o.hosts
	o.discovery.Logger = o.logger
	o.discovery.Registerer = o.registerer
}

// WithContext sets the base context for the node's transport lifecycle.
// Cancelling it stops the transport's server.
func WithContext(ctx context.Context) Option { return func(o *options) { o.ctx = ctx } }

// WithNodeID pins the host node's id instead of generating one.
func WithNodeID(id NodeID) Option { return func(o *options) { o.nodeID = id } }

// WithNodeName sets the host node's human-readable name.
func WithNodeName(name string) Option { return func(o *options) { o.nodeName = name } }

// WithRoles sets the host node's roles.
func WithRoles(roles Roles) Option { return func(o *options) { o.roles = roles } }

// WithAttributes sets the host node's attribute mapping.
func WithAttributes(attributes map[string]string) Option {
	return func(o *options) { o.attributes = attributes }
}

// WithClusterName sets the cluster the node discovers peers in.
func WithClusterName(name ClusterName) Option { return func(o *options) { o.cluster = name } }

// WithVersionSpan overrides the declared protocol span. Declaring a span
// other than the build's own lets tests stand up intentionally incompatible
// peers without running mismatched binaries.
func WithVersionSpan(span VersionSpan) Option { return func(o *options) { o.span = span } }

// WithClusterState seeds the cluster-state snapshot reported to peers.
// Ignored when WithProvider is set.
func WithClusterState(state ClusterState) Option { return func(o *options) { o.state = state } }

// WithProvider supplies the membership layer's topology and state view,
// replacing the default static self view.
func WithProvider(provider ContextProvider) Option {
	return func(o *options) { o.provider = provider }
}

// WithTransport sets the wire implementation for probes.
func WithTransport(t Transport) Option { return func(o *options) { o.transport = t } }

// WithLogger sets the logger shared by the engine and the transport.
func WithLogger(logger *zap.Logger) Option { return func(o *options) { o.logger = logger } }

// WithRegisterer registers the node's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithPingTimeout sets the default round timeout.
func WithPingTimeout(timeout time.Duration) Option {
	return func(o *options) { o.discovery.PingTimeout = timeout }
}

// WithResolveTimeout bounds host-name resolution per round.
func WithResolveTimeout(timeout time.Duration) Option {
	return func(o *options) { o.discovery.ResolveTimeout = timeout }
}

// WithDefaultPort sets the port assumed for host specifications that carry
// none.
func WithDefaultPort(port int) Option {
	return func(o *options) { o.discovery.DefaultPort = port }
}

// WithResolver sets the host-name resolver used to expand specifications.
func WithResolver(r Resolver) Option { return func(o *options) { o.discovery.Resolver = r } }
