package traffic

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"blocklens/application/ports"
	pkgerrors "blocklens/pkg/errors"
	"blocklens/pkg/utils"
)

// networkFileMarker identifies per-page network log files inside the
// traffic directory
const networkFileMarker = "network"

// Store loads logged traffic artifacts from the filesystem: one JSON file of
// ordered network events per page plus a single attribution table for the
// whole dataset. Implements ports.TrafficSource and ports.AttributionSource.
type Store struct {
	trafficDir      string
	attributionFile string
	logger          *zap.Logger
}

// NewStore creates a filesystem-backed traffic store
func NewStore(trafficDir, attributionFile string, logger *zap.Logger) *Store {
	return &Store{
		trafficDir:      trafficDir,
		attributionFile: attributionFile,
		logger:          logger,
	}
}

// LoadTraffic reads every network log in the traffic directory, keyed by
// file name. Events failing validation are dropped with a warning so one
// malformed record cannot poison a whole crawl.
func (s *Store) LoadTraffic(ctx context.Context) (map[string]ports.PageTraffic, error) {
	entries, err := os.ReadDir(s.trafficDir)
	if err != nil {
		return nil, pkgerrors.NewIOError("read traffic directory", err)
	}

	pages := make(map[string]ports.PageTraffic)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.Contains(entry.Name(), networkFileMarker) {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(s.trafficDir, entry.Name()))
		if err != nil {
			return nil, pkgerrors.NewIOError("read traffic log "+entry.Name(), err)
		}

		var events []ports.NetworkEvent
		if err := sonic.Unmarshal(raw, &events); err != nil {
			return nil, pkgerrors.NewParseError("traffic log "+entry.Name(), err)
		}

		pages[entry.Name()] = ports.PageTraffic{
			Page:   entry.Name(),
			Events: s.validEvents(entry.Name(), events),
		}
	}
	return pages, nil
}

func (s *Store) validEvents(page string, events []ports.NetworkEvent) []ports.NetworkEvent {
	valid := events[:0]
	for _, event := range events {
		if err := utils.ValidateStruct(event); err != nil {
			s.logger.Warn("dropping malformed network event",
				zap.String("page", page),
				zap.Error(err))
			continue
		}
		valid = append(valid, event)
	}
	return valid
}

// LoadAttribution reads the dataset-wide attempt attribution table. An
// unset attribution file yields an empty table, meaning no fingerprinting
// attempts were observed.
func (s *Store) LoadAttribution(ctx context.Context) (ports.DatasetAttribution, error) {
	if s.attributionFile == "" {
		return ports.DatasetAttribution{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.attributionFile)
	if err != nil {
		return nil, pkgerrors.NewIOError("read attribution file", err)
	}

	var attribution ports.DatasetAttribution
	if err := sonic.Unmarshal(raw, &attribution); err != nil {
		return nil, pkgerrors.NewParseError("attribution file", err)
	}
	return attribution, nil
}
