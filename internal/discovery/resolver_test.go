package discovery_test

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/larch-cluster/larch/internal/address"
	"github.com/larch-cluster/larch/internal/cluster"
	"github.com/larch-cluster/larch/internal/discovery"
	"github.com/larch-cluster/larch/internal/node"
	"github.com/larch-cluster/larch/transport/tmock"
)

// mapResolver resolves host names from a fixed table.
type mapResolver map[string][]string

func (m mapResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	found, ok := m[host]
	if !ok {
		return nil, errors.Newf("no such host %s", host)
	}
	return found, nil
}

// stalledResolver blocks until the lookup context expires.
type stalledResolver struct{}

func (stalledResolver) LookupHost(ctx context.Context, _ string) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

var _ = Describe("Resolve", func() {
	var (
		ctx   context.Context
		local node.Node
		cfg   discovery.Config
	)
	BeforeEach(func() {
		ctx = context.Background()
		network := tmock.NewNetwork[discovery.Request, discovery.Response]()
		local = node.Node{ID: "local", Address: "127.0.0.1:7240", Roles: node.DefaultRoles()}
		cfg = discovery.Config{
			Transport:      network.Route(local.Address),
			Provider:       discovery.Static(local, cluster.State{}),
			Cluster:        "larch",
			Version:        span("1.0.0", "1.0.0"),
			ResolveTimeout: 25 * time.Millisecond,
			Resolver:       mapResolver{"peer.internal": {"10.0.1.5", "10.0.1.6"}},
		}
	})
	open := func() *discovery.Discovery {
		d, err := discovery.New(cfg)
		Expect(err).ToNot(HaveOccurred())
		return d
	}
	It("Should expand host specifications into concrete addresses", func() {
		cfg.Hosts = []string{"10.0.0.1", "10.0.0.2:9300", "10.0.0.3:9300-9302"}
		Expect(open().Resolve(ctx)).To(Equal([]address.Address{
			"10.0.0.1:7240",
			"10.0.0.2:9300",
			"10.0.0.3:9300",
			"10.0.0.3:9301",
			"10.0.0.3:9302",
		}))
	})
	It("Should resolve host names and take the first address found", func() {
		cfg.Hosts = []string{"peer.internal:9300"}
		Expect(open().Resolve(ctx)).To(Equal([]address.Address{"10.0.1.5:9300"}))
	})
	It("Should skip entries that fail to resolve", func() {
		cfg.Hosts = []string{"ghost.internal:9300", "10.0.0.1"}
		Expect(open().Resolve(ctx)).To(Equal([]address.Address{"10.0.0.1:7240"}))
	})
	It("Should skip entries whose resolution exceeds the timeout", func() {
		cfg.Resolver = stalledResolver{}
		cfg.Hosts = []string{"slow.internal:9300", "10.0.0.1"}
		Expect(open().Resolve(ctx)).To(Equal([]address.Address{"10.0.0.1:7240"}))
	})
	It("Should skip malformed specifications without aborting the rest", func() {
		cfg.Hosts = []string{
			"",
			"10.0.0.1:0",
			"10.0.0.1:70000",
			"10.0.0.1:port",
			"10.0.0.1:9302-9300",
			"10.0.0.1:9300-9999",
			"10.0.0.2",
		}
		Expect(open().Resolve(ctx)).To(Equal([]address.Address{"10.0.0.2:7240"}))
	})
	It("Should deduplicate repeated specifications", func() {
		cfg.Hosts = []string{"10.0.0.1:9300", "10.0.0.1:9300", "10.0.0.1:9300-9301"}
		Expect(open().Resolve(ctx)).To(Equal([]address.Address{
			"10.0.0.1:9300",
			"10.0.0.1:9301",
		}))
	})
	It("Should add known members and probe a member that is also a host once", func() {
		member := node.Node{ID: "member", Address: "10.0.0.9:9300", Roles: node.DefaultRoles()}
		overlap := node.Node{ID: "overlap", Address: "10.0.0.1:9300", Roles: node.DefaultRoles()}
		cfg.Provider = clusterView{
			nodes: node.Group{local.ID: local, member.ID: member, overlap.ID: overlap},
			local: local.ID,
		}
		cfg.Hosts = []string{"10.0.0.1:9300"}
		Expect(open().Resolve(ctx)).To(Equal([]address.Address{
			"10.0.0.1:9300",
			"10.0.0.9:9300",
		}))
	})
	It("Should never target the local node's own member entry", func() {
		cfg.Provider = clusterView{
			nodes: node.Group{local.ID: local},
			local: local.ID,
		}
		cfg.Hosts = nil
		Expect(open().Resolve(ctx)).To(BeEmpty())
	})
})
