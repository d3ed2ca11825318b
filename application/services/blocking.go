package services

import (
	"go.uber.org/zap"

	"blocklens/domain/core/aggregates"
	"blocklens/domain/core/entities"
)

// BlockingProjector projects a content-blocking tool's verdicts into a
// request tree. The direct view marks only the exact matches; the transitive
// view additionally marks everything those matches would have prevented from
// loading. Each projection works on its own deep copy so the two views never
// share blocked flags.
type BlockingProjector struct {
	logger *zap.Logger
}

// NewBlockingProjector creates a blocking projector
func NewBlockingProjector(logger *zap.Logger) *BlockingProjector {
	return &BlockingProjector{logger: logger}
}

// ProjectDirect returns a copy of the tree with every node whose resource is
// on the blocklist marked blocked. Matching is exact string equality; a
// resource occurring in several nodes blocks all of them.
func (p *BlockingProjector) ProjectDirect(tree *aggregates.RequestTree, blockedResources []string) *aggregates.RequestTree {
	view := tree.Clone()

	for _, resource := range blockedResources {
		for _, node := range view.FindNodes(resource) {
			node.Block()
		}
	}
	return view
}

// ProjectTransitive returns a copy of the tree with the blocklist matches
// blocked along with their descendants. A descendant with several parents is
// only blocked when every parent is blocked, and a repeated node is never
// blocked transitively because its recorded parentage is not trustworthy.
// A repeated node that is itself directly blocked taints its whole subtree
// as repeated before the transitive marking runs.
func (p *BlockingProjector) ProjectTransitive(tree *aggregates.RequestTree, blockedResources []string) *aggregates.RequestTree {
	view := tree.Clone()

	for _, resource := range blockedResources {
		for _, match := range view.FindNodes(resource) {
			match.Block()

			descendants := view.Descendants(match.ID())

			if match.IsRepeated() {
				for _, node := range descendants {
					node.MarkRepeated()
				}
			}

			// Preorder matters: a node's parents inside the subtree are
			// visited before it, so blocking cascades down in one sweep
			for _, node := range descendants {
				node.BlockTransitively(view.AllParentsBlocked(node))
			}
		}
	}
	return view
}

// RealisticBlocks resolves what a live blocking tool would actually have
// intercepted on the direct view: only the first blocked node per causal
// path, because nothing below it would ever have been requested
func (p *BlockingProjector) RealisticBlocks(directView *aggregates.RequestTree) []*entities.RequestNode {
	return directView.FirstBlocked()
}
