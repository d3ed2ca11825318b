package blocklist

import (
	"context"
	"os"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	pkgerrors "blocklens/pkg/errors"
)

// Loader reads the pre-parsed list of resources a blocking tool decided to
// block. Implements ports.BlockedResourceSource.
type Loader struct {
	path   string
	logger *zap.Logger
}

// NewLoader creates a filesystem-backed blocklist loader
func NewLoader(path string, logger *zap.Logger) *Loader {
	return &Loader{path: path, logger: logger}
}

// LoadBlockedResources returns the blocked resource URLs in file order.
// Order is preserved because blocking verdicts are applied sequentially.
func (l *Loader) LoadBlockedResources(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, pkgerrors.NewIOError("read blocklist", err)
	}

	var resources []string
	if err := sonic.Unmarshal(raw, &resources); err != nil {
		return nil, pkgerrors.NewParseError("blocklist", err)
	}

	l.logger.Debug("loaded blocklist",
		zap.String("path", l.path),
		zap.Int("resources", len(resources)))
	return resources, nil
}
