package entities

import (
	"blocklens/domain/core/valueobjects"
	pkgerrors "blocklens/pkg/errors"
)

// RequestNode is the entity representing one observed network request in a
// reconstructed request tree. The same resource URL may appear in several
// nodes (one per causal path), so identity is the NodeID while "found in
// tree" is decided by resource-string equality.
type RequestNode struct {
	// Private fields ensure encapsulation
	id       valueobjects.NodeID
	resource string
	time     int64
	attempts valueobjects.AttemptCounts

	// Whether the simulated blocking tool would have intercepted this
	// request. Monotonic: once true it is never reset.
	blocked bool

	// Set under the lower-bound duplicate policy when the true parent set
	// could not be reliably reconstructed
	repeated bool

	// Whether this node represents a top-level navigation event
	root bool

	// Ordered forward adjacency plus a backward parent-ID set; a resource
	// can legitimately be requested by more than one initiator
	children []valueobjects.NodeID
	parents  map[valueobjects.NodeID]struct{}
}

// NewRequestNode creates a node for a logged network event
func NewRequestNode(resource string, time int64, attempts valueobjects.AttemptCounts) (*RequestNode, error) {
	if resource == "" {
		return nil, pkgerrors.NewValidationError("resource cannot be empty")
	}

	return &RequestNode{
		id:       valueobjects.NewNodeID(),
		resource: resource,
		time:     time,
		attempts: attempts.Clone(),
		children: []valueobjects.NodeID{},
		parents:  make(map[valueobjects.NodeID]struct{}),
	}, nil
}

// ID returns the node's unique identifier
func (n *RequestNode) ID() valueobjects.NodeID {
	return n.id
}

// Resource returns the URL of the requested resource
func (n *RequestNode) Resource() string {
	return n.resource
}

// Time returns the logical timestamp of the network event
func (n *RequestNode) Time() int64 {
	return n.time
}

// Attempts returns the fingerprinting attempts attributed to this resource
func (n *RequestNode) Attempts() valueobjects.AttemptCounts {
	return n.attempts
}

// SetAttempts replaces the attributed fingerprinting attempts
func (n *RequestNode) SetAttempts(attempts valueobjects.AttemptCounts) {
	n.attempts = attempts
}

// IsBlocked reports whether a simulation pass marked this node blocked
func (n *RequestNode) IsBlocked() bool {
	return n.blocked
}

// Block marks the node as directly blocked
func (n *RequestNode) Block() {
	n.blocked = true
}

// BlockTransitively marks the node blocked as a consequence of its parents
// being blocked. A multi-parent node is blocked only when every parent is,
// and a repeated node is never transitively blocked because its parentage
// is not trustworthy.
func (n *RequestNode) BlockTransitively(allParentsBlocked bool) {
	if !n.repeated && allParentsBlocked {
		n.blocked = true
	}
}

// IsRepeated reports whether the node was collapsed under duplicate
// suppression
func (n *RequestNode) IsRepeated() bool {
	return n.repeated
}

// MarkRepeated flags the node as a duplicate-suppressed reuse
func (n *RequestNode) MarkRepeated() {
	n.repeated = true
}

// IsRoot reports whether the node represents a top-level navigation
func (n *RequestNode) IsRoot() bool {
	return n.root
}

// MarkRoot flags the node as a top-level navigation event
func (n *RequestNode) MarkRoot() {
	n.root = true
}

// Children returns the ordered child node IDs
func (n *RequestNode) Children() []valueobjects.NodeID {
	// Return a copy to maintain encapsulation
	children := make([]valueobjects.NodeID, len(n.children))
	copy(children, n.children)
	return children
}

// HasChildren reports whether the node brought any child requests
func (n *RequestNode) HasChildren() bool {
	return len(n.children) > 0
}

// Parents returns the parent node IDs
func (n *RequestNode) Parents() []valueobjects.NodeID {
	parents := make([]valueobjects.NodeID, 0, len(n.parents))
	for id := range n.parents {
		parents = append(parents, id)
	}
	return parents
}

// HasParent reports whether the given node is already a parent
func (n *RequestNode) HasParent(id valueobjects.NodeID) bool {
	_, ok := n.parents[id]
	return ok
}

// ParentCount returns the number of distinct parents
func (n *RequestNode) ParentCount() int {
	return len(n.parents)
}

// AppendChild records a forward edge. Callers (the aggregate) are
// responsible for resource-level deduplication.
func (n *RequestNode) AppendChild(id valueobjects.NodeID) {
	n.children = append(n.children, id)
}

// AddParent records a backward edge
func (n *RequestNode) AddParent(id valueobjects.NodeID) {
	n.parents[id] = struct{}{}
}

// CloneInto returns a deep copy carrying the same NodeID, for use in an
// independent simulation pass
func (n *RequestNode) CloneInto() *RequestNode {
	children := make([]valueobjects.NodeID, len(n.children))
	copy(children, n.children)

	parents := make(map[valueobjects.NodeID]struct{}, len(n.parents))
	for id := range n.parents {
		parents[id] = struct{}{}
	}

	return &RequestNode{
		id:       n.id,
		resource: n.resource,
		time:     n.time,
		attempts: n.attempts.Clone(),
		blocked:  n.blocked,
		repeated: n.repeated,
		root:     n.root,
		children: children,
		parents:  parents,
	}
}
