package ports

import (
	"context"

	"blocklens/domain/core/valueobjects"
)

// TrafficSource supplies logged per-page network traffic.
// This is a port in hexagonal architecture - the application does not know
// where the logs come from.
type TrafficSource interface {
	// LoadTraffic returns the ordered network events for every page,
	// keyed by page identifier
	LoadTraffic(ctx context.Context) (map[string]PageTraffic, error)
}

// AttributionSource supplies fingerprinting-attempt attribution per page
type AttributionSource interface {
	// LoadAttribution returns resource->attempt-counts tables keyed by the
	// same page identifiers the TrafficSource uses
	LoadAttribution(ctx context.Context) (DatasetAttribution, error)
}

// BlockedResourceSource supplies the pre-parsed list of resources a
// content-blocking tool would block
type BlockedResourceSource interface {
	// LoadBlockedResources returns blocked resource URLs in their
	// original order
	LoadBlockedResources(ctx context.Context) ([]string, error)
}

// ResultSink persists the dataset-wide aggregated results
type ResultSink interface {
	// WriteResults stores the aggregate under the experiment name
	WriteResults(ctx context.Context, experiment string, aggregate valueobjects.DatasetResults) error
}
