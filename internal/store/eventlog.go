package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/XavTo/dexter/internal/domain"
)

// FileEventLog implements EventLog on a newline-delimited JSON file.
type FileEventLog struct {
	path   string
	logger *zap.Logger
}

// Ensure FileEventLog implements EventLog.
var _ EventLog = (*FileEventLog)(nil)

// NewFileEventLog creates an event log at path. Nothing is touched on disk
// until the first Append.
func NewFileEventLog(path string, logger *zap.Logger) *FileEventLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileEventLog{path: path, logger: logger}
}

// Path returns the location of the log file.
func (l *FileEventLog) Path() string {
	return l.path
}

// Append writes the event as one line.
func (l *FileEventLog) Append(ctx context.Context, event domain.RunEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.RunID == "" {
		return errors.New("event without run_id")
	}
	if err := appendLine(l.path, event); err != nil {
		return fmt.Errorf("failed to append %s event for %s: %w", event.Type, event.RunID, err)
	}
	return nil
}

// ReadAll returns all events in file order, dropping malformed lines.
func (l *FileEventLog) ReadAll(ctx context.Context) ([]domain.RunEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var events []domain.RunEvent
	skipped, err := readLines(l.path, func(e domain.RunEvent) {
		if e.RunID == "" {
			return
		}
		events = append(events, e)
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		l.logger.Debug("skipped malformed event log lines",
			zap.String("path", l.path), zap.Int("skipped", skipped))
	}
	return events, nil
}
