/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

// NodeKind tags a ClaimNode.
type NodeKind int

// Claim node kinds.
const (
	ScalarNode NodeKind = iota
	ObjectNode
	ArrayNode
)

func (k NodeKind) String() string {
	switch k {
	case ObjectNode:
		return "object"
	case ArrayNode:
		return "array"
	default:
		return "scalar"
	}
}

// ClaimNode is one node of a generic JSON claim tree. Exactly one of Object, Array and Scalar is meaningful,
// as given by Kind.
type ClaimNode struct {
	Kind   NodeKind
	Object map[string]interface{}
	Array  []interface{}
	Scalar interface{}
}

// NewClaimNode classifies a value decoded from JSON.
func NewClaimNode(v interface{}) ClaimNode {
	switch tv := v.(type) {
	case map[string]interface{}:
		return ClaimNode{Kind: ObjectNode, Object: tv}
	case []interface{}:
		return ClaimNode{Kind: ArrayNode, Array: tv}
	default:
		return ClaimNode{Kind: ScalarNode, Scalar: v}
	}
}

// Value returns the node as a generic JSON value.
func (n ClaimNode) Value() interface{} {
	switch n.Kind {
	case ObjectNode:
		return n.Object
	case ArrayNode:
		return n.Array
	default:
		return n.Scalar
	}
}
