package di

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"blocklens/application/ports"
	"blocklens/application/services"
	domainconfig "blocklens/domain/config"
	"blocklens/infrastructure/config"
	"blocklens/infrastructure/persistence/blocklist"
	"blocklens/infrastructure/persistence/results"
	"blocklens/infrastructure/persistence/traffic"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Builder   *services.TreeBuilder
	Simulator *services.Simulator
	Analyzer  *services.Analyzer
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideTreeBuilder,
	ProvideBlockingProjector,
	ProvideSubtreePartitioner,
	ProvideSimulator,
	ProvideTrafficStore,
	ProvideTrafficSource,
	ProvideAttributionSource,
	ProvideBlockedResourceSource,
	ProvideResultSink,
	ProvideAnalyzer,
	wire.Struct(new(Container), "*"),
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}

// ProvideDomainConfig derives the reconstruction rules from the app config
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return cfg.DomainConfig()
}

// ProvideTreeBuilder creates the tree builder
func ProvideTreeBuilder(dcfg *domainconfig.DomainConfig, logger *zap.Logger) (*services.TreeBuilder, error) {
	return services.NewTreeBuilder(dcfg, logger)
}

// ProvideBlockingProjector creates the blocking projector
func ProvideBlockingProjector(logger *zap.Logger) *services.BlockingProjector {
	return services.NewBlockingProjector(logger)
}

// ProvideSubtreePartitioner creates the subtree partitioner
func ProvideSubtreePartitioner() *services.SubtreePartitioner {
	return services.NewSubtreePartitioner()
}

// ProvideSimulator creates the per-page simulator
func ProvideSimulator(
	projector *services.BlockingProjector,
	partitioner *services.SubtreePartitioner,
	logger *zap.Logger,
) *services.Simulator {
	return services.NewSimulator(projector, partitioner, logger)
}

// ProvideTrafficStore creates the filesystem traffic store
func ProvideTrafficStore(cfg *config.Config, logger *zap.Logger) *traffic.Store {
	return traffic.NewStore(cfg.TrafficDir, cfg.AttributionFile, logger)
}

// ProvideTrafficSource exposes the store as the traffic port
func ProvideTrafficSource(store *traffic.Store) ports.TrafficSource {
	return store
}

// ProvideAttributionSource exposes the store as the attribution port
func ProvideAttributionSource(store *traffic.Store) ports.AttributionSource {
	return store
}

// ProvideBlockedResourceSource creates the blocklist loader
func ProvideBlockedResourceSource(cfg *config.Config, logger *zap.Logger) ports.BlockedResourceSource {
	return blocklist.NewLoader(cfg.BlockedFile, logger)
}

// ProvideResultSink creates the result writer
func ProvideResultSink(cfg *config.Config, logger *zap.Logger) ports.ResultSink {
	return results.NewWriter(cfg.ResultsDir, logger)
}

// ProvideAnalyzer wires the full analysis pipeline
func ProvideAnalyzer(
	trafficSource ports.TrafficSource,
	attributionSource ports.AttributionSource,
	blockedSource ports.BlockedResourceSource,
	sink ports.ResultSink,
	builder *services.TreeBuilder,
	simulator *services.Simulator,
	cfg *config.Config,
	logger *zap.Logger,
) *services.Analyzer {
	return services.NewAnalyzer(
		trafficSource,
		attributionSource,
		blockedSource,
		sink,
		builder,
		simulator,
		cfg.ProgressInterval,
		logger,
	)
}
