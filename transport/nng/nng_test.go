package nng_test

import (
	"context"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/larch-cluster/larch/internal/address"
	"github.com/larch-cluster/larch/internal/discovery"
	"github.com/larch-cluster/larch/internal/node"
	"github.com/larch-cluster/larch/internal/version"
	"github.com/larch-cluster/larch/transport"
	"github.com/larch-cluster/larch/transport/nng"
)

var _ = Describe("Transport", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		addrA  = address.Address("127.0.0.1:26721")
		addrB  = address.Address("127.0.0.1:26722")
		hsA    transport.Handshake
		a, b   *nng.Transport
	)
	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		vs := version.Span{
			Current: version.MustParse("1.0.0"),
			Minimum: version.MustParse("1.0.0"),
		}
		hsA = transport.Handshake{From: addrA, Cluster: "larch", Version: vs}
		a, b = nng.New(), nng.New()
		Expect(a.Configure(ctx, addrA, hsA)).To(Succeed())
		Expect(b.Configure(ctx, addrB, transport.Handshake{From: addrB, Cluster: "larch", Version: vs})).To(Succeed())
	})
	AfterEach(func() { cancel() })

	It("Should carry a probe and its handshake between nodes", func() {
		handshakes := make(chan transport.Handshake, 1)
		b.Discovery().Handle(func(_ context.Context, hs transport.Handshake, _ discovery.Request) (discovery.Response, error) {
			handshakes <- hs
			return discovery.Response{
				Node:                node.Node{ID: "responder", Address: addrB, Roles: node.DefaultRoles()},
				ClusterStateVersion: 42,
			}, nil
		})
		res, err := a.Discovery().Send(ctx, addrB, discovery.Request{})
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Node.ID).To(Equal(node.ID("responder")))
		Expect(res.ClusterStateVersion).To(Equal(uint64(42)))
		Expect(handshakes).To(Receive(Equal(hsA)))
	})
	It("Should surface a handler decline as a send error", func() {
		b.Discovery().Handle(func(context.Context, transport.Handshake, discovery.Request) (discovery.Response, error) {
			return discovery.Response{}, errors.New("foreign cluster")
		})
		_, err := a.Discovery().Send(ctx, addrB, discovery.Request{})
		Expect(err).To(MatchError(ContainSubstring("foreign cluster")))
	})
	It("Should report connection establishment exactly once per connection", func() {
		opened, err := a.Discovery().Dial(ctx, addrB)
		Expect(err).ToNot(HaveOccurred())
		Expect(opened).To(BeTrue())

		opened, err = a.Discovery().Dial(ctx, addrB)
		Expect(err).ToNot(HaveOccurred())
		Expect(opened).To(BeFalse())
		Expect(a.Discovery().Connected(addrB)).To(BeTrue())

		Expect(a.Discovery().Drop(addrB)).To(Succeed())
		Expect(a.Discovery().Connected(addrB)).To(BeFalse())

		opened, err = a.Discovery().Dial(ctx, addrB)
		Expect(err).ToNot(HaveOccurred())
		Expect(opened).To(BeTrue())
	})
	It("Should fail to reach a node that is not listening", func() {
		_, err := a.Discovery().Dial(ctx, "127.0.0.1:26729")
		Expect(err).To(HaveOccurred())
	})
})
