package cluster_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/larch-cluster/larch/internal/cluster"
)

var _ = Describe("Cluster", func() {
	Describe("Blocks", func() {
		It("Should report a block that was added", func() {
			var b cluster.Blocks
			Expect(b.Has(cluster.BlockStateNotRecovered)).To(BeFalse())
			b = b.With(cluster.BlockStateNotRecovered)
			Expect(b.Has(cluster.BlockStateNotRecovered)).To(BeTrue())
		})
		It("Should remove a block", func() {
			b := cluster.Blocks(0).With(cluster.BlockStateNotRecovered)
			Expect(b.Without(cluster.BlockStateNotRecovered).Has(cluster.BlockStateNotRecovered)).To(BeFalse())
		})
	})
	Describe("State", func() {
		Describe("WireVersion", func() {
			It("Should report the real version for a recovered state", func() {
				s := cluster.State{Version: 167}
				Expect(s.WireVersion()).To(Equal(uint64(167)))
			})
			It("Should report the sentinel while the state is blocked from recovery", func() {
				s := cluster.State{
					Version: 167,
					Blocks:  cluster.Blocks(0).With(cluster.BlockStateNotRecovered),
				}
				Expect(s.WireVersion()).To(Equal(cluster.UnrecoveredVersion))
			})
			It("Should never report the sentinel as a real version", func() {
				s := cluster.State{Version: 167}
				Expect(s.WireVersion()).ToNot(Equal(cluster.UnrecoveredVersion))
			})
		})
	})
})
