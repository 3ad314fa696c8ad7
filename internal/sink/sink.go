// Package sink holds ResultSink helpers shared by the concrete backends.
package sink

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-indexer/internal/indexing"
)

// Multi fans a result out to every wrapped sink. All sinks see every result;
// their errors are joined.
type Multi []indexing.ResultSink

// Append implements indexing.ResultSink.
func (m Multi) Append(ctx context.Context, result indexing.Result) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Append(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink emits each result as a structured log line.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Append logs the result.
func (s *LogSink) Append(_ context.Context, result indexing.Result) error {
	s.logger.Debug("submission result",
		zap.String("run_id", result.RunID),
		zap.String("url", result.URL),
		zap.Stringer("status", result.StatusCode),
		zap.Time("timestamp", result.Timestamp),
	)
	return nil
}
