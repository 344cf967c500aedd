package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/ArqamWaheed/submissionUpdater/models"
)

// OutputWriter defines the interface for report output.
type OutputWriter interface {
	Write(report *models.Report) error
	Close() error
	Validate() error
}

// NewWriter picks a writer for format: json, csv, or dual. Dual writes the
// CSV next to the JSON file.
func NewWriter(format, filename string) (OutputWriter, error) {
	switch format {
	case "json":
		return NewJSONWriter(filename)
	case "csv":
		return NewCSVWriter(filename)
	case "dual":
		base := filename[:len(filename)-len(filepath.Ext(filename))]
		return NewDualWriter(base+".csv", base+".json")
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

var csvHeader = []string{
	"term", "valid_key", "type",
	"code", "title", "credits", "prerequisite",
	"valid_code", "valid_title", "valid_credits", "valid_prerequisite",
	"fetched_count", "valid_count",
}

// CSVWriter writes one row per diff.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends the report's diffs.
func (cw *CSVWriter) Write(report *models.Report) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, term := range report.Terms {
		for _, diff := range term.Diffs {
			if err := cw.writer.Write(diffRecord(term, diff)); err != nil {
				return fmt.Errorf("write csv record: %w", err)
			}
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

func diffRecord(term models.TermReport, diff models.DiffEntry) []string {
	fetched, valid := diff.Fetched, diff.Valid
	fetchedCount, validCount := diff.FetchedCount, diff.ValidCount
	switch diff.Type {
	case models.DiffMissing:
		valid, validCount = diff.Course, diff.Count
	case models.DiffExtra:
		fetched, fetchedCount = diff.Course, diff.Count
	case models.DiffCountMismatch:
		fetched, valid = diff.Course, diff.Course
	}

	record := []string{term.Name, term.ValidKey, string(diff.Type)}
	record = append(record, courseFields(fetched)...)
	record = append(record, courseFields(valid)...)
	return append(record, countField(fetchedCount), countField(validCount))
}

func courseFields(c *models.Course) []string {
	if c == nil {
		return []string{"", "", "", ""}
	}
	return []string{
		models.Value(c.Code),
		models.Value(c.Title),
		models.Value(c.Credits),
		models.Value(c.Prerequisite),
	}
}

func countField(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has content.
func (cw *CSVWriter) Validate() error {
	info, err := cw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

// JSONWriter writes the report as one indented JSON document.
type JSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	encoder := json.NewEncoder(buffer)
	encoder.SetIndent("", "  ")
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: encoder,
	}, nil
}

// Write encodes the report.
func (jw *JSONWriter) Write(report *models.Report) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.encoder.Encode(report); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	info, err := jw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("json file is empty")
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
