package election_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/larch-cluster/larch/internal/cluster"
	"github.com/larch-cluster/larch/internal/election"
	"github.com/larch-cluster/larch/internal/node"
)

var _ = Describe("Election", func() {
	Describe("SortByMasterLikelihood", func() {
		It("Should order master-eligible nodes first, then by ID", func() {
			nodes := []node.Node{
				{ID: "d", Roles: node.Roles(0).With(node.RoleData)},
				{ID: "c", Roles: node.Roles(0).With(node.RoleMaster)},
				{ID: "b", Roles: node.Roles(0).With(node.RoleData)},
				{ID: "a", Roles: node.Roles(0).With(node.RoleMaster)},
			}
			election.SortByMasterLikelihood(nodes)
			ids := []node.ID{nodes[0].ID, nodes[1].ID, nodes[2].ID, nodes[3].ID}
			Expect(ids).To(Equal([]node.ID{"a", "c", "b", "d"}))
		})
	})
	Describe("Compare", func() {
		It("Should prefer the candidate with the more recent cluster state", func() {
			older := election.Candidate{Node: node.Node{ID: "a"}, ClusterStateVersion: 10}
			newer := election.Candidate{Node: node.Node{ID: "b"}, ClusterStateVersion: 20}
			Expect(election.Compare(newer, older)).To(BeNumerically("<", 0))
			Expect(election.Compare(older, newer)).To(BeNumerically(">", 0))
		})
		It("Should rank an unrecovered state below any real state", func() {
			unrecovered := election.Candidate{
				Node:                node.Node{ID: "a"},
				ClusterStateVersion: cluster.UnrecoveredVersion,
			}
			real := election.Candidate{Node: node.Node{ID: "b"}, ClusterStateVersion: 1}
			Expect(election.Compare(real, unrecovered)).To(BeNumerically("<", 0))
		})
		It("Should break ties toward the lower ID", func() {
			a := election.Candidate{Node: node.Node{ID: "a"}, ClusterStateVersion: 5}
			b := election.Candidate{Node: node.Node{ID: "b"}, ClusterStateVersion: 5}
			Expect(election.Compare(a, b)).To(BeNumerically("<", 0))
		})
		It("Should break ties between unrecovered candidates toward the lower ID", func() {
			a := election.Candidate{
				Node:                node.Node{ID: "a"},
				ClusterStateVersion: cluster.UnrecoveredVersion,
			}
			b := election.Candidate{
				Node:                node.Node{ID: "b"},
				ClusterStateVersion: cluster.UnrecoveredVersion,
			}
			Expect(election.Compare(a, b)).To(BeNumerically("<", 0))
		})
	})
	Describe("Best", func() {
		It("Should return false for an empty candidate list", func() {
			_, ok := election.Best(nil)
			Expect(ok).To(BeFalse())
		})
		It("Should pick the winner under Compare", func() {
			winner, ok := election.Best([]election.Candidate{
				{Node: node.Node{ID: "a"}, ClusterStateVersion: cluster.UnrecoveredVersion},
				{Node: node.Node{ID: "b"}, ClusterStateVersion: 3},
				{Node: node.Node{ID: "c"}, ClusterStateVersion: 9},
			})
			Expect(ok).To(BeTrue())
			Expect(winner.Node.ID).To(Equal(node.ID("c")))
		})
	})
})
