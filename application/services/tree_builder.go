package services

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"blocklens/application/ports"
	"blocklens/domain/config"
	"blocklens/domain/core/aggregates"
	"blocklens/domain/core/entities"
	"blocklens/domain/core/valueobjects"
	pkgerrors "blocklens/pkg/errors"
)

// TreeBuilder reconstructs a request tree from the ordered network events of
// one page visit and attributes fingerprinting attempts to each node.
//
// The builder never rejects ambiguous traffic. Whenever an initiator cannot
// be resolved (child logged before its parent, fully dynamic call stacks,
// about:srcdoc iframes) the node degrades to a child of the current root so
// that every observed request stays accounted for.
type TreeBuilder struct {
	cfg    *config.DomainConfig
	logger *zap.Logger
}

// NewTreeBuilder creates a tree builder with the given duplicate policy and
// tuning knobs
func NewTreeBuilder(cfg *config.DomainConfig, logger *zap.Logger) (*TreeBuilder, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TreeBuilder{cfg: cfg, logger: logger}, nil
}

// buildState carries the mutable bookkeeping of one reconstruction
type buildState struct {
	tree        *aggregates.RequestTree
	currentRoot valueobjects.NodeID
	attribution ports.PageAttribution
}

// BuildTree reconstructs the request tree for one page from its ordered
// network events. The attribution table maps each resource URL to the
// fingerprinting attempts its scripts performed; the anonymous sentinel key
// holds attempts whose caller could not be identified and travels with the
// current root.
func (b *TreeBuilder) BuildTree(events []ports.NetworkEvent, attribution ports.PageAttribution) (*aggregates.RequestTree, error) {
	if len(events) == 0 {
		return nil, pkgerrors.NewValidationError("page has no network events")
	}
	if attribution == nil {
		attribution = ports.PageAttribution{}
	}

	st := &buildState{attribution: attribution}

	for _, event := range events {
		// Preflights are skipped outright, the actual request follows anyway
		if event.Initiator.Type == ports.InitiatorPreflight {
			continue
		}

		resource := event.RequestedResource
		if resource == "" {
			b.logger.Debug("skipping event without requested resource",
				zap.String("requestedFor", event.RequestedFor))
			continue
		}

		node, err := entities.NewRequestNode(resource, eventTime(event), attribution[resource])
		if err != nil {
			return nil, err
		}

		if isRootCandidate(event) {
			if err := b.addRootNode(st, node); err != nil {
				return nil, err
			}
			continue
		}

		// Traffic that starts mid-page (no navigation event logged first)
		// still needs a root to hang off
		if st.tree == nil {
			b.logger.Debug("first event is not a navigation, promoting to root",
				zap.String("resource", resource))
			if err := b.startTree(st, node); err != nil {
				return nil, err
			}
			continue
		}

		if err := b.addChildNode(st, event, node); err != nil {
			return nil, err
		}
	}

	if st.tree == nil {
		return nil, pkgerrors.NewValidationError("page traffic contained only preflight or empty events")
	}
	return st.tree, nil
}

// eventTime returns the logical timestamp, with absent times ordered last
func eventTime(event ports.NetworkEvent) int64 {
	if event.Time == nil {
		return math.MaxInt64
	}
	return *event.Time
}

// isRootCandidate reports whether the event is a top-level navigation: the
// page requested itself through a browser-internal trigger with no url key
// at all. A present-but-empty url marks a client-side redirect, not a
// navigation.
func isRootCandidate(event ports.NetworkEvent) bool {
	return event.RequestedFor == event.RequestedResource &&
		event.Initiator.Type == ports.InitiatorOther &&
		event.Initiator.URL == nil
}

// startTree creates the tree with the given node as root and moves the
// anonymous-caller attempts onto it
func (b *TreeBuilder) startTree(st *buildState, node *entities.RequestNode) error {
	tree, err := aggregates.NewRequestTree(node)
	if err != nil {
		return err
	}

	anonymous := st.attribution[b.cfg.AnonymousCallerKey]
	node.SetAttempts(node.Attempts().Add(anonymous))

	st.tree = tree
	st.currentRoot = node.ID()
	return nil
}

// addRootNode handles a navigation event: the first one creates the tree,
// every later one becomes the new current root chained under the previous
// one. Anonymous-caller attempts always follow the current root.
func (b *TreeBuilder) addRootNode(st *buildState, node *entities.RequestNode) error {
	if st.tree == nil {
		return b.startTree(st, node)
	}

	// A navigation to a resource already in the tree adds nothing to the
	// analysis. It stays a plain child of the current root with its attempts
	// zeroed (the original node already carries them), or is dropped
	// entirely under the lower-bound policy.
	if st.tree.Contains(node.Resource()) {
		if b.cfg.DuplicatePolicy == config.LowerBound {
			return nil
		}

		node.SetAttempts(nil)
		_, err := st.tree.AttachNew([]valueobjects.NodeID{st.currentRoot}, node)
		return err
	}

	kept, err := st.tree.AttachNew([]valueobjects.NodeID{st.currentRoot}, node)
	if err != nil {
		return err
	}
	if !kept {
		return nil
	}
	node.MarkRoot()

	// Move the anonymous-caller attempts from the old root to the new one
	anonymous := st.attribution[b.cfg.AnonymousCallerKey]
	previousRoot := st.tree.Node(st.currentRoot)
	previousRoot.SetAttempts(previousRoot.Attempts().Subtract(anonymous))
	node.SetAttempts(node.Attempts().Add(anonymous))

	st.currentRoot = node.ID()
	return nil
}

// addChildNode handles a non-navigation event under the active duplicate
// policy and dispatches on the initiator shape
func (b *TreeBuilder) addChildNode(st *buildState, event ports.NetworkEvent, node *entities.RequestNode) error {
	existing := st.tree.FindNodes(node.Resource())

	// A resource already in the tree keeps its attempts on the original
	// node only
	if len(existing) > 0 {
		node.SetAttempts(nil)

		// Lower bound: reuse the first occurrence instead of growing a new
		// node per causal path. No edge is added because a node must never
		// become its own ancestor.
		if b.cfg.DuplicatePolicy == config.LowerBound {
			existing[0].MarkRepeated()
			return nil
		}
	}

	switch {
	case event.Initiator.URL != nil:
		return b.attachByInitiatorURL(st, event, node)
	case event.Initiator.Stack != nil:
		return b.attachByCallStack(st, event, node)
	default:
		// No initiator information at all, hang it off the current root
		_, err := st.tree.AttachNew([]valueobjects.NodeID{st.currentRoot}, node)
		return err
	}
}

// attachByInitiatorURL attaches the node under every node matching the
// initiator URL. Which of several same-resource parents actually issued the
// request cannot be told apart, so all of them get the child.
func (b *TreeBuilder) attachByInitiatorURL(st *buildState, event ports.NetworkEvent, node *entities.RequestNode) error {
	initiatorURL := *event.Initiator.URL
	parents := st.tree.FindNodes(initiatorURL)
	if len(parents) == 0 {
		// Child logged before its parent, should rarely happen
		b.logger.Debug("initiator not found in tree, attaching to current root",
			zap.String("resource", node.Resource()),
			zap.String("initiator", initiatorURL))
		_, err := st.tree.AttachNew([]valueobjects.NodeID{st.currentRoot}, node)
		return err
	}

	_, err := st.tree.AttachNew(nodeIDs(parents), node)
	return err
}

// attachByCallStack flattens the initiator call stack and attaches the node
// under the innermost resolvable caller
func (b *TreeBuilder) attachByCallStack(st *buildState, event ports.NetworkEvent, node *entities.RequestNode) error {
	calls := flattenCallStack(event.Initiator.Stack)
	calls = append(calls, node.Resource())
	calls = b.dropUnusableFrames(calls)

	// The resource itself was an instrumentation frame and got filtered out
	if len(calls) == 0 {
		b.logger.Debug("dropping instrumentation-only request",
			zap.String("resource", node.Resource()))
		return nil
	}

	// Everything except the resource itself was dynamic, fall back to the
	// current root
	if len(calls) == 1 {
		_, err := st.tree.AttachNew([]valueobjects.NodeID{st.currentRoot}, node)
		return err
	}

	// Only the innermost caller matters: the second-to-last entry is the
	// script that issued this request
	caller := calls[len(calls)-2]
	parents := st.tree.FindNodes(caller)
	if len(parents) == 0 {
		b.logger.Debug("call-stack caller not found in tree, attaching to current root",
			zap.String("resource", node.Resource()),
			zap.String("caller", caller))
		_, err := st.tree.AttachNew([]valueobjects.NodeID{st.currentRoot}, node)
		return err
	}

	_, err := st.tree.AttachNew(nodeIDs(parents), node)
	return err
}

// flattenCallStack linearizes a nested call stack outermost ancestor first.
// Frames inside one stack are reversed because the browser logs the frame
// that finally issued the request first.
func flattenCallStack(stack *ports.CallStack) []string {
	var frames []string

	if stack.Parent != nil {
		frames = flattenCallStack(stack.Parent)
	}

	for i := len(stack.CallFrames) - 1; i >= 0; i-- {
		frames = append(frames, stack.CallFrames[i].URL)
	}
	return frames
}

// dropUnusableFrames removes empty (dynamic) frames and frames injected by
// instrumentation extensions
func (b *TreeBuilder) dropUnusableFrames(calls []string) []string {
	kept := calls[:0]
	for _, call := range calls {
		if call == "" {
			continue
		}
		if b.isInstrumentationFrame(call) {
			continue
		}
		kept = append(kept, call)
	}
	return kept
}

func (b *TreeBuilder) isInstrumentationFrame(call string) bool {
	for _, prefix := range b.cfg.IgnoredFramePrefixes {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}

func nodeIDs(nodes []*entities.RequestNode) []valueobjects.NodeID {
	ids := make([]valueobjects.NodeID, len(nodes))
	for i, node := range nodes {
		ids[i] = node.ID()
	}
	return ids
}
