package services

import (
	"go.uber.org/zap"

	"blocklens/domain/core/valueobjects"
	pkgerrors "blocklens/pkg/errors"
)

// metricKind returns the value shape expected under a metric key
func metricKind(key string) valueobjects.MetricKind {
	switch key {
	case MetricFPAttemptsObserved,
		MetricFPAttemptsBlockedDirectly,
		MetricFPAttemptsBlockedTransitively,
		MetricFPAttemptsBlockedInTotal:
		return valueobjects.KindGroupCounts
	case MetricBlockedSubtrees:
		return valueobjects.KindPartition
	default:
		return valueobjects.KindScalar
	}
}

// metricAccumulator is the running state of one metric across pages
type metricAccumulator struct {
	kind valueobjects.MetricKind
	n    int

	scalarSum    float64
	groupSum     valueobjects.AttemptCounts
	partitionSum valueobjects.SubtreePartition
}

// Aggregator folds per-page simulation results into dataset-wide summaries.
// Every metric tracks its contributing result count, running sum and final
// average. Aggregators merge associatively, so partial runs can be combined
// in any grouping.
type Aggregator struct {
	metrics map[string]*metricAccumulator
	logger  *zap.Logger
}

// NewAggregator creates an empty aggregator covering the full metric schema
func NewAggregator(logger *zap.Logger) *Aggregator {
	metrics := make(map[string]*metricAccumulator, len(MetricKeys))
	for _, key := range MetricKeys {
		metrics[key] = &metricAccumulator{kind: metricKind(key)}
	}
	return &Aggregator{metrics: metrics, logger: logger}
}

// Add folds one page result in. A page result missing any schema key is a
// bug upstream and fails loudly.
func (a *Aggregator) Add(page PageMetrics) error {
	for _, key := range MetricKeys {
		value, ok := page[key]
		if !ok {
			return pkgerrors.NewInvariantError("page result is missing metric " + key)
		}

		acc := a.metrics[key]
		switch acc.kind {
		case valueobjects.KindScalar:
			v, err := value.AsScalar()
			if err != nil {
				return pkgerrors.Wrap(err, "metric "+key)
			}
			acc.scalarSum += v

			// A zero average block level means no blocking happened on the
			// page; such pages must not dilute the dataset average
			if key == MetricAverageRequestBlockLevel && v == 0 {
				continue
			}
			acc.n++

		case valueobjects.KindGroupCounts:
			g, err := value.AsGroups()
			if err != nil {
				return pkgerrors.Wrap(err, "metric "+key)
			}
			acc.groupSum = acc.groupSum.Add(g)
			acc.n++

		case valueobjects.KindPartition:
			p, err := value.AsPartition()
			if err != nil {
				return pkgerrors.Wrap(err, "metric "+key)
			}
			combined, err := combinePartitions(acc.partitionSum, acc.n == 0, p, false)
			if err != nil {
				return pkgerrors.Wrap(err, "metric "+key)
			}
			acc.partitionSum = combined
			acc.n++
		}
	}
	return nil
}

// Merge folds another aggregator in. Merging is associative, so results of
// independent partial runs combine the same way regardless of grouping.
func (a *Aggregator) Merge(other *Aggregator) error {
	for _, key := range MetricKeys {
		acc := a.metrics[key]
		otherAcc := other.metrics[key]

		if otherAcc.n == 0 {
			continue
		}

		switch acc.kind {
		case valueobjects.KindScalar:
			acc.scalarSum += otherAcc.scalarSum
		case valueobjects.KindGroupCounts:
			acc.groupSum = acc.groupSum.Add(otherAcc.groupSum)
		case valueobjects.KindPartition:
			combined, err := combinePartitions(acc.partitionSum, acc.n == 0, otherAcc.partitionSum, false)
			if err != nil {
				return pkgerrors.Wrap(err, "metric "+key)
			}
			acc.partitionSum = combined
		}
		acc.n += otherAcc.n
	}
	return nil
}

// Finalize computes the per-metric averages and returns the dataset rollup
func (a *Aggregator) Finalize() valueobjects.DatasetResults {
	results := make(valueobjects.DatasetResults, len(MetricKeys))

	for _, key := range MetricKeys {
		acc := a.metrics[key]
		summary := valueobjects.MetricSummary{
			Kind:       acc.kind,
			NOfResults: acc.n,
		}

		switch acc.kind {
		case valueobjects.KindScalar:
			summary.SumScalar = acc.scalarSum
			if acc.n > 0 {
				summary.AverageScalar = acc.scalarSum / float64(acc.n)
			}

		case valueobjects.KindGroupCounts:
			summary.SumGroups = acc.groupSum
			summary.AverageMap = make(map[string]float64, len(acc.groupSum))
			for group, count := range acc.groupSum {
				summary.AverageMap[group] = float64(count) / float64(acc.n)
			}

		case valueobjects.KindPartition:
			summary.SumPartition = acc.partitionSum
			if acc.n > 0 {
				summary.AverageMap = averagePartition(acc.partitionSum, acc.n)
			}
		}

		results[key] = summary
	}
	return results
}

// combinePartitions sums two subtree partitions elementwise. Emptiness is
// tracked explicitly because a legitimate partition may be all zeros;
// combining two empty operands means the caller lost track of its state.
func combinePartitions(a valueobjects.SubtreePartition, aEmpty bool, b valueobjects.SubtreePartition, bEmpty bool) (valueobjects.SubtreePartition, error) {
	if aEmpty && bEmpty {
		return valueobjects.SubtreePartition{}, pkgerrors.NewInvariantError("combining two empty subtree partitions")
	}
	if aEmpty {
		return b, nil
	}
	if bEmpty {
		return a, nil
	}
	return a.Sum(b), nil
}

// averagePartition divides each partition counter by the result count, keyed
// the same way the partition serializes
func averagePartition(p valueobjects.SubtreePartition, n int) map[string]float64 {
	div := float64(n)
	return map[string]float64{
		"subtrees_fully_blocked":       float64(p.FullyBlocked) / div,
		"subtrees_partially_blocked":   float64(p.PartiallyBlocked) / div,
		"subtrees_not_blocked":         float64(p.NotBlocked) / div,
		"subtrees_in_total":            float64(p.Total) / div,
		"trees_with_blocked_root_node": float64(p.RootBlocked) / div,
	}
}
