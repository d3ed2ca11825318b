package services

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"blocklens/domain/core/aggregates"
	"blocklens/domain/core/entities"
	"blocklens/domain/core/valueobjects"
)

// Metric keys of a per-page simulation result. Every PageMetrics carries all
// of them; the aggregator fails loudly on a missing key.
const (
	MetricFPAttemptsObserved            = "fpd_attempts_observed"
	MetricFPAttemptsBlockedDirectly     = "fpd_attempts_blocked_directly"
	MetricFPAttemptsBlockedTransitively = "fpd_attempts_blocked_transitively"
	MetricFPAttemptsBlockedInTotal      = "fpd_attempts_blocked_in_total"
	MetricRequestsObserved              = "requests_observed"
	MetricRequestsBlockedDirectly       = "requests_blocked_directly"
	MetricRequestsBlockedInTotal        = "requests_blocked_in_total"
	MetricRequestsBlockedTransitively   = "requests_blocked_transitively"
	MetricRequestsBlockedWithChildren   = "requests_blocked_that_have_child_requests"
	MetricAverageRequestBlockLevel      = "average_request_block_level"
	MetricBlockedSubtrees               = "blocked_subtrees_data"
)

// MetricKeys lists every metric a page simulation produces
var MetricKeys = []string{
	MetricFPAttemptsObserved,
	MetricFPAttemptsBlockedDirectly,
	MetricFPAttemptsBlockedTransitively,
	MetricFPAttemptsBlockedInTotal,
	MetricRequestsObserved,
	MetricRequestsBlockedDirectly,
	MetricRequestsBlockedInTotal,
	MetricRequestsBlockedTransitively,
	MetricRequestsBlockedWithChildren,
	MetricAverageRequestBlockLevel,
	MetricBlockedSubtrees,
}

// PageMetrics holds one page's simulation outcome under the fixed key schema
type PageMetrics map[string]valueobjects.MetricValue

// Simulator computes what a content-blocking tool would have changed on one
// page: how many requests and fingerprinting attempts it would have blocked,
// directly and through request-chain transitivity, and how the page's
// subtrees would have fared. The input tree is never mutated.
type Simulator struct {
	projector   *BlockingProjector
	partitioner *SubtreePartitioner
	logger      *zap.Logger
}

// NewSimulator creates a page simulator
func NewSimulator(projector *BlockingProjector, partitioner *SubtreePartitioner, logger *zap.Logger) *Simulator {
	return &Simulator{
		projector:   projector,
		partitioner: partitioner,
		logger:      logger,
	}
}

// SimulateBlocking computes the full per-page metric set for the given
// blocklist. Assumes the page would have issued the same requests with the
// blocking tool present.
func (s *Simulator) SimulateBlocking(tree *aggregates.RequestTree, blockedResources []string) PageMetrics {
	totalRequested := len(tree.AllRequests())
	totalAttempts := tree.TotalAttempts()

	directView := s.projector.ProjectDirect(tree, blockedResources)
	transitiveView := s.projector.ProjectTransitive(tree, blockedResources)

	totalBlocked := transitiveView.TotalBlocked()
	realisticBlocks := s.projector.RealisticBlocks(directView)
	directlyBlocked := len(realisticBlocks)
	transitivelyBlocked := totalBlocked - directlyBlocked

	directAttemptsBlocked := directView.FirstBlockedAttempts()
	totalAttemptsBlocked := transitiveView.TotalBlockedAttempts()
	transitiveAttemptsBlocked := totalAttemptsBlocked.Subtract(directAttemptsBlocked)

	partition := s.partitioner.Partition(directView)
	averageBlockLevel := averageBlockLevel(directView)
	blockedWithChildren := countBlockedWithChildren(realisticBlocks)

	return PageMetrics{
		MetricFPAttemptsObserved:            valueobjects.Groups(totalAttempts),
		MetricFPAttemptsBlockedDirectly:     valueobjects.Groups(directAttemptsBlocked),
		MetricFPAttemptsBlockedTransitively: valueobjects.Groups(transitiveAttemptsBlocked),
		MetricFPAttemptsBlockedInTotal:      valueobjects.Groups(totalAttemptsBlocked),
		MetricRequestsObserved:              valueobjects.Scalar(float64(totalRequested)),
		MetricRequestsBlockedDirectly:       valueobjects.Scalar(float64(directlyBlocked)),
		MetricRequestsBlockedInTotal:        valueobjects.Scalar(float64(totalBlocked)),
		MetricRequestsBlockedTransitively:   valueobjects.Scalar(float64(transitivelyBlocked)),
		MetricRequestsBlockedWithChildren:   valueobjects.Scalar(float64(blockedWithChildren)),
		MetricAverageRequestBlockLevel:      valueobjects.Scalar(averageBlockLevel),
		MetricBlockedSubtrees:               valueobjects.Partition(partition),
	}
}

// averageBlockLevel is the mean depth of the first block per causal path on
// the direct view, or 0 when nothing was blocked
func averageBlockLevel(directView *aggregates.RequestTree) float64 {
	levels := directView.BlockedAtLevels()
	if len(levels) == 0 {
		return 0
	}

	samples := make([]float64, len(levels))
	for i, level := range levels {
		samples[i] = float64(level)
	}
	return stat.Mean(samples, nil)
}

// countBlockedWithChildren counts the realistically blocked nodes that would
// have dragged child requests down with them
func countBlockedWithChildren(blocked []*entities.RequestNode) int {
	withChildren := 0
	for _, node := range blocked {
		if node.HasChildren() {
			withChildren++
		}
	}
	return withChildren
}
