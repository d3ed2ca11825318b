package progress

import (
	"go.uber.org/zap"
)

// Reporter logs progress of a long-running loop at a fixed percentage interval.
// The caller owns the counter: call Step once per processed item.
type Reporter struct {
	logger   *zap.Logger
	message  string
	total    int
	interval int
	done     int
	lastPct  int
}

// NewReporter creates a reporter for a loop over total items that logs every
// interval percent. A non-positive interval defaults to 10.
func NewReporter(logger *zap.Logger, message string, total, interval int) *Reporter {
	if interval <= 0 {
		interval = 10
	}
	return &Reporter{
		logger:   logger,
		message:  message,
		total:    total,
		interval: interval,
		lastPct:  -1,
	}
}

// Step records one processed item and logs when an interval boundary is crossed
func (r *Reporter) Step() {
	r.done++
	if r.total <= 0 {
		return
	}

	pct := r.done * 100 / r.total
	if pct%r.interval == 0 && pct != r.lastPct {
		r.logger.Info(r.message,
			zap.Int("done", r.done),
			zap.Int("total", r.total),
			zap.Int("percent", pct),
		)
	}
	r.lastPct = pct
}

// Done returns how many items have been counted so far
func (r *Reporter) Done() int {
	return r.done
}
