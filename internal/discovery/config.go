package discovery

import (
	"context"
	"net"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/larch-cluster/larch/internal/cluster"
	"github.com/larch-cluster/larch/internal/version"
)

// Resolver looks hostnames up. net.DefaultResolver satisfies it; tests
// substitute their own.
type Resolver interface {
	LookupHost(ctx context.Context, host string) (addrs []string, err error)
}

// Config configures a discovery engine.
type Config struct {
	// Transport carries probes to peers. Required.
	Transport Transport
	// Provider supplies the local topology and cluster-state snapshot.
	// Required.
	Provider ContextProvider
	// Cluster is the local cluster name. Probes from peers configured
	// with a different name are silently declined. Required.
	Cluster cluster.Name
	// Version is the protocol version span the local node declares. The
	// span is configuration rather than a build constant so that the
	// compatibility gate can be exercised against arbitrary peers.
	// Required.
	Version version.Span
	// Hosts are the configured host specifications to probe each round,
	// of the form "host", "host:port" or "host:lowPort-highPort".
	Hosts []string
	// DefaultPort is assigned to host specifications that carry no port.
	DefaultPort int
	// PingTimeout is the round deadline applied when the caller passes a
	// zero timeout to Ping.
	PingTimeout time.Duration
	// ResolveTimeout bounds the resolution of a single host
	// specification. Specifications that don't resolve in time are
	// skipped for the round.
	ResolveTimeout time.Duration
	// ResolveConcurrency bounds how many host specifications resolve at
	// once.
	ResolveConcurrency int
	// Resolver performs hostname lookups.
	Resolver Resolver
	// Logger is the logger the engine writes to.
	Logger *zap.Logger
	// Registerer receives the engine's metrics. When nil the metrics are
	// created but not registered.
	Registerer prometheus.Registerer
}

func (cfg Config) Merge(def Config) Config {
	if cfg.DefaultPort == 0 {
		cfg.DefaultPort = def.DefaultPort
	}
	if cfg.PingTimeout == 0 {
		cfg.PingTimeout = def.PingTimeout
	}
	if cfg.ResolveTimeout == 0 {
		cfg.ResolveTimeout = def.ResolveTimeout
	}
	if cfg.ResolveConcurrency == 0 {
		cfg.ResolveConcurrency = def.ResolveConcurrency
	}
	if cfg.Resolver == nil {
		cfg.Resolver = def.Resolver
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	return cfg
}

func (cfg Config) Validate() error {
	if cfg.Transport == nil {
		return errors.New("discovery transport required")
	}
	if cfg.Provider == nil {
		return errors.New("discovery context provider required")
	}
	if cfg.Cluster == "" {
		return errors.New("cluster name required")
	}
	if cfg.Version.Zero() {
		return errors.New("protocol version required")
	}
	return nil
}

func DefaultConfig() Config {
	return Config{
		DefaultPort:        7240,
		PingTimeout:        3 * time.Second,
		ResolveTimeout:     5 * time.Second,
		ResolveConcurrency: 10,
		Resolver:           net.DefaultResolver,
		Logger:             zap.NewNop(),
	}
}
