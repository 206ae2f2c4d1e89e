package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// maxLineSize bounds a single record. Tool outputs can be large; longer
// lines are skipped on read.
const maxLineSize = 16 << 20

// appendLine writes v as one JSON line. The file is opened in append mode for
// every write and the line goes out in a single write call, so concurrent
// readers only ever observe whole lines or a torn final line.
func appendLine(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// readLines decodes every line of path into a T, calling fn in file order.
// Lines that fail to decode or exceed maxLineSize are skipped and counted. A
// missing file yields no records.
func readLines[T any](path string, fn func(T)) (skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64*1024)
	var line []byte
	tooLong := false
	for {
		chunk, readErr := r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > maxLineSize {
				// Drain the rest of the line without buffering it.
				tooLong = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(readErr, bufio.ErrBufferFull) {
			continue
		}
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return skipped, fmt.Errorf("failed to read %s: %w", path, readErr)
		}

		if tooLong {
			skipped++
		} else if rec := bytes.TrimSpace(line); len(rec) > 0 {
			var v T
			if err := json.Unmarshal(rec, &v); err != nil {
				skipped++
			} else {
				fn(v)
			}
		}
		line = line[:0]
		tooLong = false

		if readErr != nil {
			return skipped, nil
		}
	}
}
