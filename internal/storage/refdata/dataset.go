// Package refdata holds the Taiwan stock reference dataset and its in-memory index.
package refdata

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bobmcallan/stockreplay/internal/models"
)

//go:embed data/taiwan_stocks.json
var embeddedDataset []byte

// EmbeddedName is reported as the dataset path when the compiled-in dataset is used.
const EmbeddedName = "embedded:taiwan_stocks.json"

// DatasetError reports a reference dataset that is missing or malformed.
type DatasetError struct {
	Path string
	Err  error
}

func (e *DatasetError) Error() string {
	return fmt.Sprintf("reference dataset %s: %v", e.Path, e.Err)
}

func (e *DatasetError) Unwrap() error {
	return e.Err
}

// Source supplies the raw bytes of a dataset.
type Source struct {
	name string
	read func() ([]byte, error)
}

// Name returns the path or label of the dataset.
func (s Source) Name() string {
	return s.name
}

// FileSource reads the dataset from a JSON file on disk.
func FileSource(path string) Source {
	return Source{
		name: path,
		read: func() ([]byte, error) { return os.ReadFile(path) },
	}
}

// EmbeddedSource reads the dataset compiled into the binary.
func EmbeddedSource() Source {
	return Source{
		name: EmbeddedName,
		read: func() ([]byte, error) { return embeddedDataset, nil },
	}
}

// BytesSource serves a dataset held in memory.
func BytesSource(name string, data []byte) Source {
	return Source{
		name: name,
		read: func() ([]byte, error) { return data, nil },
	}
}

// rawEntry is one key/value pair of the dataset object, in file order.
type rawEntry struct {
	Code  string
	Value json.RawMessage
}

// datasetEntry is the value stored under each code.
type datasetEntry struct {
	Code     string `json:"code"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Industry string `json:"industry"`
}

// decodeOrdered walks the top-level object with the token API so the file order survives.
func decodeOrdered(data []byte) ([]rawEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("dataset must be a JSON object keyed by stock code")
	}

	var entries []rawEntry
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset key: %w", err)
		}
		code, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to read entry %s: %w", code, err)
		}
		if seen[code] {
			return nil, fmt.Errorf("duplicate stock code %s", code)
		}
		seen[code] = true
		entries = append(entries, rawEntry{Code: code, Value: raw})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read dataset end: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after dataset object")
	}

	return entries, nil
}

// parseRecords converts raw entries into validated records, filling defaults.
func parseRecords(entries []rawEntry) ([]models.StockRecord, error) {
	records := make([]models.StockRecord, 0, len(entries))
	for _, e := range entries {
		code := strings.TrimSpace(e.Code)
		if code == "" {
			return nil, errors.New("empty stock code")
		}

		var entry datasetEntry
		if err := json.Unmarshal(e.Value, &entry); err != nil {
			return nil, fmt.Errorf("entry %s is not an object: %w", code, err)
		}
		if entry.Code != "" && entry.Code != code {
			return nil, fmt.Errorf("entry %s carries mismatched code %s", code, entry.Code)
		}
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("entry %s has no name", code)
		}

		symbol := strings.TrimSpace(entry.Symbol)
		if symbol == "" {
			symbol = code + ".TW"
		}
		industry := strings.TrimSpace(entry.Industry)
		if industry == "" {
			industry = models.DefaultIndustry
		}

		records = append(records, models.StockRecord{
			Code:     code,
			Symbol:   symbol,
			Name:     name,
			Industry: industry,
		})
	}
	return records, nil
}
