package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/XavTo/dexter/internal/domain"
)

const scratchpadExt = ".jsonl"

// DirScratchpad implements Scratchpad with one JSONL file per run, named by
// run ID.
type DirScratchpad struct {
	dir    string
	logger *zap.Logger
}

// Ensure DirScratchpad implements Scratchpad.
var _ Scratchpad = (*DirScratchpad)(nil)

// NewDirScratchpad creates a scratchpad rooted at dir.
func NewDirScratchpad(dir string, logger *zap.Logger) *DirScratchpad {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirScratchpad{dir: dir, logger: logger}
}

func (s *DirScratchpad) path(runID string) (string, error) {
	if !domain.ValidRunID(runID) {
		return "", fmt.Errorf("invalid run id %q", runID)
	}
	return filepath.Join(s.dir, runID+scratchpadExt), nil
}

// Append adds an entry to the run's file.
func (s *DirScratchpad) Append(ctx context.Context, runID string, entry domain.ScratchpadEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(runID)
	if err != nil {
		return err
	}
	return appendLine(p, entry)
}

// RunIDs lists run IDs with a scratchpad file, sorted.
func (s *DirScratchpad) RunIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list scratchpad dir: %w", err)
	}

	var ids []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if !strings.HasSuffix(name, scratchpadExt) {
			continue
		}
		if id := strings.TrimSuffix(name, scratchpadExt); domain.ValidRunID(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Tail returns the last limit entries of the run's trace. A non-positive
// limit returns the whole trace.
func (s *DirScratchpad) Tail(ctx context.Context, runID string, limit int) ([]domain.ScratchpadEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	p, err := s.path(runID)
	if err != nil {
		return nil, false, nil
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to stat scratchpad: %w", err)
	}

	entries := []domain.ScratchpadEntry{}
	skipped, err := readLines(p, func(e domain.ScratchpadEntry) {
		entries = append(entries, e)
		if limit > 0 && len(entries) > limit {
			entries = entries[1:]
		}
	})
	if err != nil {
		return nil, true, err
	}
	if skipped > 0 {
		s.logger.Debug("skipped malformed scratchpad lines",
			zap.String("run_id", runID), zap.Int("skipped", skipped))
	}
	return entries, true, nil
}
