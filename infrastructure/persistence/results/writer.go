package results

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"blocklens/domain/core/valueobjects"
	pkgerrors "blocklens/pkg/errors"
)

// Writer persists the dataset-wide aggregate as JSON under
// <dir>/<experiment>_results.json. Implements ports.ResultSink.
type Writer struct {
	dir    string
	logger *zap.Logger
}

// NewWriter creates a filesystem-backed result writer
func NewWriter(dir string, logger *zap.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// WriteResults stores the aggregate under the experiment name
func (w *Writer) WriteResults(ctx context.Context, experiment string, aggregate valueobjects.DatasetResults) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return pkgerrors.NewIOError("create results directory", err)
	}

	encoded, err := sonic.MarshalIndent(aggregate, "", "    ")
	if err != nil {
		return pkgerrors.NewParseError("dataset results", err)
	}

	path := filepath.Join(w.dir, experiment+"_results.json")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return pkgerrors.NewIOError("write results file", err)
	}

	w.logger.Info("results written", zap.String("path", path))
	return nil
}
