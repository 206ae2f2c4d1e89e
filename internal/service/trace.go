package service

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/XavTo/dexter/internal/domain"
)

// FormatEntries prepares trace entries for the detail view. Content and
// result longer than budget runes are cut to budget and flagged; the result
// of a cut entry becomes a JSON string. A non-positive budget disables
// truncation. The input is not modified.
func FormatEntries(entries []domain.ScratchpadEntry, budget int) []domain.ScratchpadEntry {
	out := make([]domain.ScratchpadEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, formatEntry(e, budget))
	}
	return out
}

func formatEntry(e domain.ScratchpadEntry, budget int) domain.ScratchpadEntry {
	e.Truncated = false
	if budget <= 0 {
		return e
	}

	if s, cut := truncate(e.Content, budget); cut {
		e.Content = s
		e.Truncated = true
	}

	if len(e.Result) > 0 {
		if s, cut := truncate(resultText(e.Result), budget); cut {
			e.Result, _ = json.Marshal(s)
			e.Truncated = true
		}
	}
	return e
}

// resultText is the text a reader sees: the string itself for a JSON string,
// the raw JSON otherwise.
func resultText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func truncate(s string, budget int) (string, bool) {
	if utf8.RuneCountInString(s) <= budget {
		return s, false
	}
	n := 0
	for i := range s {
		if n == budget {
			return s[:i], true
		}
		n++
	}
	return s, false
}
