package valueobjects

import "fmt"

// MetricKind discriminates the shapes a per-page metric value can take
type MetricKind string

const (
	KindScalar      MetricKind = "scalar"
	KindGroupCounts MetricKind = "group_counts"
	KindPartition   MetricKind = "partition"
)

// SubtreePartition classifies the independent branches of a request tree
// after a blocking pass
type SubtreePartition struct {
	FullyBlocked     int `json:"subtrees_fully_blocked"`
	PartiallyBlocked int `json:"subtrees_partially_blocked"`
	NotBlocked       int `json:"subtrees_not_blocked"`
	Total            int `json:"subtrees_in_total"`
	RootBlocked      int `json:"trees_with_blocked_root_node"`
}

// Sum adds another partition elementwise
func (p SubtreePartition) Sum(other SubtreePartition) SubtreePartition {
	return SubtreePartition{
		FullyBlocked:     p.FullyBlocked + other.FullyBlocked,
		PartiallyBlocked: p.PartiallyBlocked + other.PartiallyBlocked,
		NotBlocked:       p.NotBlocked + other.NotBlocked,
		Total:            p.Total + other.Total,
		RootBlocked:      p.RootBlocked + other.RootBlocked,
	}
}

// IsZero reports whether every counter is zero
func (p SubtreePartition) IsZero() bool {
	return p == SubtreePartition{}
}

// MetricValue is a tagged union over the value shapes a page metric may
// carry: a scalar, a group->count map, or a subtree partition. The
// aggregator switches exhaustively on Kind instead of duck-typing.
type MetricValue struct {
	kind      MetricKind
	scalar    float64
	groups    AttemptCounts
	partition SubtreePartition
}

// Scalar wraps a scalar metric value
func Scalar(v float64) MetricValue {
	return MetricValue{kind: KindScalar, scalar: v}
}

// Groups wraps a group-count metric value
func Groups(counts AttemptCounts) MetricValue {
	return MetricValue{kind: KindGroupCounts, groups: counts}
}

// Partition wraps a subtree-partition metric value
func Partition(p SubtreePartition) MetricValue {
	return MetricValue{kind: KindPartition, partition: p}
}

// Kind returns the discriminator
func (v MetricValue) Kind() MetricKind {
	return v.kind
}

// AsScalar returns the scalar payload
func (v MetricValue) AsScalar() (float64, error) {
	if v.kind != KindScalar {
		return 0, fmt.Errorf("metric value is %s, not %s", v.kind, KindScalar)
	}
	return v.scalar, nil
}

// AsGroups returns the group-count payload
func (v MetricValue) AsGroups() (AttemptCounts, error) {
	if v.kind != KindGroupCounts {
		return nil, fmt.Errorf("metric value is %s, not %s", v.kind, KindGroupCounts)
	}
	return v.groups, nil
}

// AsPartition returns the subtree-partition payload
func (v MetricValue) AsPartition() (SubtreePartition, error) {
	if v.kind != KindPartition {
		return SubtreePartition{}, fmt.Errorf("metric value is %s, not %s", v.kind, KindPartition)
	}
	return v.partition, nil
}
