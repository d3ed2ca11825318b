package valueobjects

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// MetricSummary is the dataset-wide rollup of one per-page metric: how many
// page results contributed, their running sum, and the resulting average.
// The sum and average take the shape of the underlying metric, so the JSON
// encoding dispatches on the metric kind.
type MetricSummary struct {
	Kind       MetricKind `json:"-"`
	NOfResults int        `json:"n_of_results"`

	SumScalar    float64          `json:"-"`
	SumGroups    AttemptCounts    `json:"-"`
	SumPartition SubtreePartition `json:"-"`

	AverageScalar float64            `json:"-"`
	AverageMap    map[string]float64 `json:"-"`
}

// summaryJSON is the serialized layout shared by all metric kinds
type summaryJSON struct {
	NOfResults int `json:"n_of_results"`
	Sum        any `json:"sum"`
	Average    any `json:"average"`
}

// MarshalJSON encodes the summary with sum/average shaped per metric kind
func (s MetricSummary) MarshalJSON() ([]byte, error) {
	out := summaryJSON{NOfResults: s.NOfResults}

	switch s.Kind {
	case KindScalar:
		out.Sum = s.SumScalar
		out.Average = s.AverageScalar
	case KindGroupCounts:
		// A dataset without any observed attempts leaves the maps nil;
		// consumers expect empty objects, not null
		out.Sum = s.SumGroups
		if s.SumGroups == nil {
			out.Sum = AttemptCounts{}
		}
		out.Average = s.AverageMap
		if s.AverageMap == nil {
			out.Average = map[string]float64{}
		}
	case KindPartition:
		out.Sum = s.SumPartition
		out.Average = s.AverageMap
	default:
		return nil, fmt.Errorf("unknown metric kind %q", s.Kind)
	}

	return sonic.Marshal(out)
}

// DatasetResults maps each metric key to its dataset-wide summary
type DatasetResults map[string]MetricSummary
