package node

import (
	"github.com/google/uuid"

	"github.com/larch-cluster/larch/internal/address"
	"github.com/larch-cluster/larch/internal/version"
)

// ID uniquely identifies a node within a cluster. IDs are opaque strings;
// NewID generates a random one for nodes that don't pin their own.
type ID string

// NewID generates a random node ID.
func NewID() ID { return ID(uuid.NewString()) }

// Node is the identity a node presents to its peers. It is immutable once
// created; a changed identity is a new Node.
type Node struct {
	ID         ID                `json:"id"`
	Name       string            `json:"name,omitempty"`
	Address    address.Address   `json:"address"`
	Roles      Roles             `json:"roles"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Version    version.V         `json:"version"`
}

// MasterEligible returns true if the node may stand in master elections.
func (n Node) MasterEligible() bool { return n.Roles.Has(RoleMaster) }
