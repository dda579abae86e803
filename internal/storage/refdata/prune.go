package refdata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bobmcallan/stockreplay/internal/models"
)

// DefaultBlacklist lists codes removed from the dataset by the prune utility.
var DefaultBlacklist = []string{
	"1213", "1309", "1305", "1310", "1312", "1313", "1314", "1316",
	"1413", "1417", "1418", "1435", "1439", "1444", "1447", "1454",
	"1455", "1456", "1467", "1471", "1512", "1515", "1516", "1517",
	"1528", "1536", "1569", "1584", "1598", "1617", "1718", "1721",
	"1732", "1742",
}

// PruneResult reports what a prune removed.
type PruneResult struct {
	Before  int
	After   int
	Removed []models.StockRecord
	Missing []string
}

// Prune removes codes from the dataset file at path, keeping the order and
// text of every other entry. The file is rewritten atomically.
func Prune(path string, codes []string) (*PruneResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DatasetError{Path: path, Err: err}
	}

	entries, err := decodeOrdered(data)
	if err != nil {
		return nil, &DatasetError{Path: path, Err: err}
	}
	records, err := parseRecords(entries)
	if err != nil {
		return nil, &DatasetError{Path: path, Err: err}
	}

	drop := make(map[string]bool, len(codes))
	for _, c := range codes {
		drop[NormalizeCode(c)] = true
	}

	result := &PruneResult{Before: len(entries)}
	present := make(map[string]bool, len(entries))
	kept := make([]rawEntry, 0, len(entries))
	for i, e := range entries {
		present[e.Code] = true
		if drop[e.Code] {
			result.Removed = append(result.Removed, records[i])
			continue
		}
		kept = append(kept, e)
	}
	for _, c := range codes {
		if !present[NormalizeCode(c)] {
			result.Missing = append(result.Missing, c)
		}
	}
	result.After = len(kept)

	if len(result.Removed) == 0 {
		return result, nil
	}

	out, err := encodeOrdered(kept)
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(path, out); err != nil {
		return nil, err
	}
	return result, nil
}

// encodeOrdered writes entries as an indented JSON object in the given order.
// Non-ASCII text is written as UTF-8, not escaped.
func encodeOrdered(entries []rawEntry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, e := range entries {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")

		key, err := marshalNoEscape(e.Code)
		if err != nil {
			return nil, fmt.Errorf("failed to encode key %s: %w", e.Code, err)
		}
		buf.Write(key)
		buf.WriteString(": ")

		var value bytes.Buffer
		if err := json.Indent(&value, e.Value, "  ", "  "); err != nil {
			return nil, fmt.Errorf("failed to encode entry %s: %w", e.Code, err)
		}
		buf.Write(value.Bytes())
	}
	if len(entries) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// writeAtomic writes to a temp file in the same directory, then renames it over path.
func writeAtomic(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
