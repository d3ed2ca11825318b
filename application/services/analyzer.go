package services

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"blocklens/application/ports"
	"blocklens/domain/core/valueobjects"
	pkgerrors "blocklens/pkg/errors"
	"blocklens/pkg/progress"
)

// Analyzer runs the full evaluation over a logged dataset: reconstruct every
// page's request tree, simulate the blocking tool against it, and fold the
// per-page metrics into one dataset-wide result
type Analyzer struct {
	traffic     ports.TrafficSource
	attribution ports.AttributionSource
	blocked     ports.BlockedResourceSource
	sink        ports.ResultSink

	builder   *TreeBuilder
	simulator *Simulator

	progressInterval int
	renderTrees      bool
	logger           *zap.Logger
}

// NewAnalyzer wires the pipeline together
func NewAnalyzer(
	traffic ports.TrafficSource,
	attribution ports.AttributionSource,
	blocked ports.BlockedResourceSource,
	sink ports.ResultSink,
	builder *TreeBuilder,
	simulator *Simulator,
	progressInterval int,
	logger *zap.Logger,
) *Analyzer {
	return &Analyzer{
		traffic:          traffic,
		attribution:      attribution,
		blocked:          blocked,
		sink:             sink,
		builder:          builder,
		simulator:        simulator,
		progressInterval: progressInterval,
		logger:           logger,
	}
}

// RenderTrees enables logging a visualization of every reconstructed tree.
// Intended for small datasets, the output grows with every causal path.
func (a *Analyzer) RenderTrees(enabled bool) {
	a.renderTrees = enabled
}

// Run evaluates the whole dataset and persists the aggregate under the
// experiment name. Pages are processed in deterministic key order; a page
// whose traffic cannot produce a tree is skipped with a warning instead of
// failing the run.
func (a *Analyzer) Run(ctx context.Context, experiment string) (valueobjects.DatasetResults, error) {
	trafficByPage, err := a.traffic.LoadTraffic(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading traffic logs")
	}
	if len(trafficByPage) == 0 {
		return nil, pkgerrors.NewValidationError("dataset contains no traffic logs")
	}

	attributionByPage, err := a.attribution.LoadAttribution(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading attempt attribution")
	}

	blockedResources, err := a.blocked.LoadBlockedResources(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading blocked resources")
	}

	a.logger.Info("starting dataset analysis",
		zap.String("experiment", experiment),
		zap.Int("pages", len(trafficByPage)),
		zap.Int("blockedResources", len(blockedResources)))

	pages := make([]string, 0, len(trafficByPage))
	for page := range trafficByPage {
		pages = append(pages, page)
	}
	sort.Strings(pages)

	aggregator := NewAggregator(a.logger)
	reporter := progress.NewReporter(a.logger, "analysing pages", len(pages), a.progressInterval)

	for _, page := range pages {
		reporter.Step()

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tree, err := a.builder.BuildTree(trafficByPage[page].Events, attributionByPage[page])
		if err != nil {
			a.logger.Warn("skipping page, tree reconstruction failed",
				zap.String("page", page),
				zap.Error(err))
			continue
		}

		if a.renderTrees {
			a.logger.Debug("reconstructed tree",
				zap.String("page", page),
				zap.String("tree", tree.Render()))
		}

		metrics := a.simulator.SimulateBlocking(tree, blockedResources)
		if err := aggregator.Add(metrics); err != nil {
			return nil, pkgerrors.Wrap(err, "aggregating page "+page)
		}
	}

	results := aggregator.Finalize()

	if a.sink != nil {
		if err := a.sink.WriteResults(ctx, experiment, results); err != nil {
			return nil, pkgerrors.Wrap(err, "persisting results")
		}
	}

	a.logger.Info("dataset analysis finished", zap.String("experiment", experiment))
	return results, nil
}
