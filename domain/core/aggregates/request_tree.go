package aggregates

import (
	"fmt"
	"sort"
	"strings"

	"blocklens/domain/core/entities"
	"blocklens/domain/core/valueobjects"
	pkgerrors "blocklens/pkg/errors"
)

// RequestTree is the aggregate root for one page visit's reconstructed
// request graph. Despite the name it is a rooted DAG: a node may have
// several parents, and the same resource URL may appear in several nodes.
//
// Nodes live in an arena keyed by NodeID; a secondary, non-unique
// resource->IDs index serves lookups by resource-string equality. All
// traversals are iterative with an explicit stack because redirect/iframe
// chains beyond 3000 levels have been observed in logged traffic.
type RequestTree struct {
	root  valueobjects.NodeID
	nodes map[valueobjects.NodeID]*entities.RequestNode

	// Insertion-ordered IDs per resource string
	byResource map[string][]valueobjects.NodeID

	stackCap int
}

// NewRequestTree creates a tree rooted at the given node
func NewRequestTree(root *entities.RequestNode) (*RequestTree, error) {
	if root == nil {
		return nil, pkgerrors.NewValidationError("root node cannot be nil")
	}

	tree := &RequestTree{
		root:       root.ID(),
		nodes:      make(map[valueobjects.NodeID]*entities.RequestNode),
		byResource: make(map[string][]valueobjects.NodeID),
		stackCap:   64,
	}

	root.MarkRoot()
	tree.index(root)
	return tree, nil
}

func (t *RequestTree) index(node *entities.RequestNode) {
	t.nodes[node.ID()] = node
	t.byResource[node.Resource()] = append(t.byResource[node.Resource()], node.ID())
}

// HasChildWithResource reports whether the parent already holds a child
// carrying the given resource URL
func (t *RequestTree) HasChildWithResource(parentID valueobjects.NodeID, resource string) bool {
	parent, ok := t.nodes[parentID]
	if !ok {
		return false
	}
	for _, childID := range parent.Children() {
		if t.nodes[childID].Resource() == resource {
			return true
		}
	}
	return false
}

// AttachNew inserts a fresh node under every listed parent that does not
// already hold a child with the same resource URL. When no parent accepts
// the node it is discarded entirely, keeping the arena invariant that every
// stored node is reachable from the root. Returns whether the node was kept.
func (t *RequestTree) AttachNew(parentIDs []valueobjects.NodeID, node *entities.RequestNode) (bool, error) {
	if node == nil {
		return false, pkgerrors.NewValidationError("node cannot be nil")
	}
	if _, exists := t.nodes[node.ID()]; exists {
		return false, pkgerrors.NewValidationError("node already present in arena")
	}

	var acceptors []*entities.RequestNode
	for _, parentID := range parentIDs {
		parent, ok := t.nodes[parentID]
		if !ok {
			return false, pkgerrors.NewNotFoundError("parent node")
		}
		if !t.HasChildWithResource(parentID, node.Resource()) {
			acceptors = append(acceptors, parent)
		}
	}
	if len(acceptors) == 0 {
		return false, nil
	}

	t.index(node)
	for _, parent := range acceptors {
		parent.AppendChild(node.ID())
		node.AddParent(parent.ID())
	}
	return true, nil
}

// Root returns the designated root node
func (t *RequestTree) Root() *entities.RequestNode {
	return t.nodes[t.root]
}

// Node returns the node stored under the given ID
func (t *RequestTree) Node(id valueobjects.NodeID) *entities.RequestNode {
	return t.nodes[id]
}

// Size returns the number of nodes in the arena
func (t *RequestTree) Size() int {
	return len(t.nodes)
}

// FindNodes returns every node whose resource equals the searched URL, in
// insertion order. Resource-string equality, not node identity, defines
// "found in tree".
func (t *RequestTree) FindNodes(resource string) []*entities.RequestNode {
	ids := t.byResource[resource]
	if len(ids) == 0 {
		return nil
	}

	nodes := make([]*entities.RequestNode, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, t.nodes[id])
	}
	return nodes
}

// Contains reports whether any node carries the given resource URL
func (t *RequestTree) Contains(resource string) bool {
	return len(t.byResource[resource]) > 0
}

// AllParentsBlocked reports whether every parent of the node is blocked.
// A node without parents (the root) trivially satisfies the condition.
func (t *RequestTree) AllParentsBlocked(node *entities.RequestNode) bool {
	for _, parentID := range node.Parents() {
		if !t.nodes[parentID].IsBlocked() {
			return false
		}
	}
	return true
}

// Clone deep-copies the arena so a simulation pass can mutate blocked flags
// without leaking them into another pass
func (t *RequestTree) Clone() *RequestTree {
	clone := &RequestTree{
		root:       t.root,
		nodes:      make(map[valueobjects.NodeID]*entities.RequestNode, len(t.nodes)),
		byResource: make(map[string][]valueobjects.NodeID, len(t.byResource)),
		stackCap:   t.stackCap,
	}

	for id, node := range t.nodes {
		clone.nodes[id] = node.CloneInto()
	}
	for resource, ids := range t.byResource {
		copied := make([]valueobjects.NodeID, len(ids))
		copy(copied, ids)
		clone.byResource[resource] = copied
	}
	return clone
}

// frame pairs a node with its depth for the explicit traversal stack
type frame struct {
	id    valueobjects.NodeID
	level int
}

// walk visits every node once per causal path in depth-first preorder.
// Returning false from visit prunes the subtree below the visited node.
/// Per-path visiting is deliberate: a multi-parent node is counted once per
// path, mirroring the request events a live page would actually issue.
func (t *RequestTree) walk(visit func(node *entities.RequestNode, level int) bool) {
	stack := make([]frame, 0, t.stackCap)
	stack = append(stack, frame{id: t.root, level: 1})

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := t.nodes[top.id]
		if !visit(node, top.level) {
			continue
		}

		children := node.Children()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: children[i], level: top.level + 1})
		}
	}
}

// Descendants returns the node itself plus everything reachable below it,
// once per causal path, in depth-first preorder
func (t *RequestTree) Descendants(id valueobjects.NodeID) []*entities.RequestNode {
	var out []*entities.RequestNode

	stack := make([]frame, 0, t.stackCap)
	stack = append(stack, frame{id: id, level: 1})

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := t.nodes[top.id]
		out = append(out, node)

		children := node.Children()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: children[i], level: top.level + 1})
		}
	}
	return out
}

// AllRequests lists every requested resource once per causal path, ordered
// by event time; the root is included
func (t *RequestTree) AllRequests() []string {
	var visited []*entities.RequestNode
	t.walk(func(node *entities.RequestNode, _ int) bool {
		visited = append(visited, node)
		return true
	})

	sort.SliceStable(visited, func(i, j int) bool {
		return visited[i].Time() < visited[j].Time()
	})

	resources := make([]string, len(visited))
	for i, node := range visited {
		resources[i] = node.Resource()
	}
	return resources
}

// TotalBlocked counts blocked nodes, once per causal path
func (t *RequestTree) TotalBlocked() int {
	blocked := 0
	t.walk(func(node *entities.RequestNode, _ int) bool {
		if node.IsBlocked() {
			blocked++
		}
		return true
	})
	return blocked
}

// FirstBlocked returns the first blocked node on each path; the subtree
// below a blocked node is not descended because those requests would never
// have been issued at runtime
func (t *RequestTree) FirstBlocked() []*entities.RequestNode {
	var blocked []*entities.RequestNode
	t.walk(func(node *entities.RequestNode, _ int) bool {
		if node.IsBlocked() {
			blocked = append(blocked, node)
			return false
		}
		return true
	})
	return blocked
}

// BlockedAtLevels returns the depth (root = 1) of the first block on each
// path
func (t *RequestTree) BlockedAtLevels() []int {
	var levels []int
	t.walk(func(node *entities.RequestNode, level int) bool {
		if node.IsBlocked() {
			levels = append(levels, level)
			return false
		}
		return true
	})
	return levels
}

// TotalAttempts sums fingerprinting attempts over every node, once per
// causal path
func (t *RequestTree) TotalAttempts() valueobjects.AttemptCounts {
	var total valueobjects.AttemptCounts
	t.walk(func(node *entities.RequestNode, _ int) bool {
		total = total.Add(node.Attempts())
		return true
	})
	return total
}

// FirstBlockedAttempts sums attempts at the first blocked node per path
// only, mirroring what a real interception would have prevented up front
func (t *RequestTree) FirstBlockedAttempts() valueobjects.AttemptCounts {
	var total valueobjects.AttemptCounts
	t.walk(func(node *entities.RequestNode, _ int) bool {
		if node.IsBlocked() {
			total = total.Add(node.Attempts())
			return false
		}
		return true
	})
	return total
}

// TotalBlockedAttempts sums attempts over every blocked node, direct and
// transitive alike
func (t *RequestTree) TotalBlockedAttempts() valueobjects.AttemptCounts {
	var total valueobjects.AttemptCounts
	t.walk(func(node *entities.RequestNode, _ int) bool {
		if node.IsBlocked() {
			total = total.Add(node.Attempts())
		}
		return true
	})
	return total
}

// Render returns a CLI visualization of the tree with block status and
// attributed attempts per node
func (t *RequestTree) Render() string {
	var sb strings.Builder

	t.walk(func(node *entities.RequestNode, level int) bool {
		status := "-- Loaded"
		if node.IsBlocked() {
			status = "-- Blocked"
		}

		resource := node.Resource()
		if len(resource) > 100 {
			resource = resource[:100]
		}

		if level == 1 {
			fmt.Fprintf(&sb, "\n%s %s %s %v", strings.Repeat("--", level), resource, status, node.Attempts())
		} else {
			fmt.Fprintf(&sb, "\n|%s %s %s %v", strings.Repeat("--", 2*level), resource, status, node.Attempts())
		}
		return true
	})
	return sb.String()
}
