package node_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/larch-cluster/larch/internal/address"
	"github.com/larch-cluster/larch/internal/node"
)

var _ = Describe("Group", func() {
	var group node.Group
	BeforeEach(func() {
		group = node.Group{
			"a": {ID: "a", Address: "localhost:1", Roles: node.DefaultRoles()},
			"b": {ID: "b", Address: "localhost:2", Roles: node.Roles(0).With(node.RoleData)},
			"c": {ID: "c", Address: "localhost:3", Roles: node.Roles(0).With(node.RoleMaster)},
		}
	})
	Describe("WhereMasterEligible", func() {
		It("Should filter out nodes without the master role", func() {
			eligible := group.WhereMasterEligible()
			Expect(eligible).To(HaveLen(2))
			Expect(eligible).To(HaveKey(node.ID("a")))
			Expect(eligible).To(HaveKey(node.ID("c")))
		})
	})
	Describe("WhereNot", func() {
		It("Should filter out the given IDs", func() {
			Expect(group.WhereNot("a", "c")).To(HaveLen(1))
			Expect(group.WhereNot("a", "c")).To(HaveKey(node.ID("b")))
		})
	})
	Describe("Addresses", func() {
		It("Should return the address of every member", func() {
			Expect(group.Addresses()).To(ConsistOf(
				address.Address("localhost:1"),
				address.Address("localhost:2"),
				address.Address("localhost:3"),
			))
		})
	})
	Describe("Copy", func() {
		It("Should isolate the copy from mutation of the original", func() {
			cp := group.Copy()
			delete(group, "a")
			Expect(cp).To(HaveLen(3))
		})
	})
})
