package services

import (
	"blocklens/domain/core/aggregates"
	"blocklens/domain/core/entities"
	"blocklens/domain/core/valueobjects"
)

// SubtreePartitioner classifies the independent branches of a page. The
// branching point is the first level with two or more siblings reached by
// walking the single-child chain down from the root; each sibling roots one
// subtree. Operates on the direct view only.
type SubtreePartitioner struct{}

// NewSubtreePartitioner creates a subtree partitioner
func NewSubtreePartitioner() *SubtreePartitioner {
	return &SubtreePartitioner{}
}

// Partition classifies every subtree as fully blocked, partially blocked or
// not blocked. Any block on the single-child chain above the branching point
// starves all subtrees of their trigger, so all of them count as fully
// blocked; RootBlocked records whether a navigation node itself was hit.
func (sp *SubtreePartitioner) Partition(directView *aggregates.RequestTree) valueobjects.SubtreePartition {
	chainBlocked, rootBlocked, siblings := walkSingleChildChain(directView)

	partition := valueobjects.SubtreePartition{Total: len(siblings)}

	if chainBlocked {
		partition.FullyBlocked = len(siblings)
		if rootBlocked {
			partition.RootBlocked = 1
		}
		return partition
	}

	for _, sibling := range siblings {
		switch {
		case sibling.IsBlocked():
			partition.FullyBlocked++
		case anyDescendantBlocked(directView, sibling):
			partition.PartiallyBlocked++
		default:
			partition.NotBlocked++
		}
	}
	return partition
}

// walkSingleChildChain descends from the root while each node has exactly
// one child, recording whether any node on the chain is blocked and whether
// a blocked one was a navigation node. It stops at the first node with two
// or more children and returns them, or nil when the chain ends in a leaf.
func walkSingleChildChain(tree *aggregates.RequestTree) (chainBlocked, rootBlocked bool, siblings []*entities.RequestNode) {
	current := tree.Root()

	for {
		if current.IsBlocked() {
			chainBlocked = true
			if current.IsRoot() {
				rootBlocked = true
			}
		}

		children := current.Children()
		if len(children) == 0 {
			return chainBlocked, rootBlocked, nil
		}
		if len(children) >= 2 {
			siblings = make([]*entities.RequestNode, len(children))
			for i, id := range children {
				siblings[i] = tree.Node(id)
			}
			return chainBlocked, rootBlocked, siblings
		}

		current = tree.Node(children[0])
	}
}

// anyDescendantBlocked reports whether any strict descendant of the node is
// blocked
func anyDescendantBlocked(tree *aggregates.RequestTree, node *entities.RequestNode) bool {
	descendants := tree.Descendants(node.ID())
	for _, descendant := range descendants[1:] {
		if descendant.IsBlocked() {
			return true
		}
	}
	return false
}
