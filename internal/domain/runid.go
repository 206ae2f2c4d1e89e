package domain

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// runIDTimeLayout is fixed width so that run IDs sort lexicographically in
// creation order.
const runIDTimeLayout = "20060102T150405.000000000"

// NewRunID returns an identifier made of a UTC timestamp prefix and a random
// suffix, e.g. 20261019T101500.123456789Z-1f2e3d4c.
func NewRunID(now time.Time) string {
	return now.UTC().Format(runIDTimeLayout) + "Z-" + uuid.New().String()[:8]
}

// RunIDTime extracts the creation time encoded in a run ID produced by
// NewRunID.
func RunIDTime(runID string) (time.Time, bool) {
	prefix, _, ok := strings.Cut(runID, "Z-")
	if !ok {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(runIDTimeLayout, prefix, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ValidRunID reports whether runID can safely name a file in a flat
// directory.
func ValidRunID(runID string) bool {
	if runID == "" || runID == "." || runID == ".." {
		return false
	}
	return filepath.Base(runID) == runID && !strings.ContainsAny(runID, `/\`)
}
