package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ArqamWaheed/submissionUpdater/models"
)

func sampleReport() *models.Report {
	fetched := course("CS101", "Programming", "3")
	valid := course("CS110", "Programming Fundamentals", "3")
	missing := course("MT102", "Calculus II", "3")
	extra := course("PH101", "Physics", "4")
	repeated := course("EN101", "English", "3")

	return &models.Report{
		ComparedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Terms: []models.TermReport{{
			Name:      "Semester-2",
			ValidKey:  "Semester II",
			DiffCount: 4,
			Diffs: []models.DiffEntry{
				{Type: models.DiffCodeMismatch, Fetched: &fetched, Valid: &valid},
				{Type: models.DiffMissing, Key: "MT102|3", Course: &missing, Count: 1},
				{Type: models.DiffExtra, Key: "PH101|4", Course: &extra, Count: 2},
				{Type: models.DiffCountMismatch, Key: "EN101|3", Course: &repeated, FetchedCount: 2, ValidCount: 1},
			},
		}},
	}
}

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "report.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write(sampleReport()); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("records=%d, want 5", len(records))
	}
	if records[0][0] != "term" || records[0][2] != "type" {
		t.Fatalf("unexpected header: %v", records[0])
	}

	tests := []struct {
		row  int
		want []string
	}{
		{row: 1, want: []string{"Semester-2", "Semester II", "code-mismatch", "CS101", "Programming", "3", "", "CS110", "Programming Fundamentals", "3", "", "", ""}},
		{row: 2, want: []string{"Semester-2", "Semester II", "missing", "", "", "", "", "MT102", "Calculus II", "3", "", "", "1"}},
		{row: 3, want: []string{"Semester-2", "Semester II", "extra", "PH101", "Physics", "4", "", "", "", "", "", "2", ""}},
		{row: 4, want: []string{"Semester-2", "Semester II", "count-mismatch", "EN101", "English", "3", "", "EN101", "English", "3", "", "2", "1"}},
	}
	for _, tt := range tests {
		got := records[tt.row]
		if len(got) != len(tt.want) {
			t.Fatalf("row %d has %d fields, want %d", tt.row, len(got), len(tt.want))
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Fatalf("row %d field %s = %q, want %q", tt.row, csvHeader[i], got[i], tt.want[i])
			}
		}
	}
}

func TestJSONWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := writer.Write(sampleReport()); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var decoded models.Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded.TotalDiffs() != 4 {
		t.Fatalf("total diffs = %d, want 4", decoded.TotalDiffs())
	}
	if got := decoded.Terms[0].Diffs[3].FetchedCount; got != 2 {
		t.Fatalf("fetchedCount = %d, want 2", got)
	}
}

func TestNewWriterDual(t *testing.T) {
	dir := t.TempDir()

	writer, err := NewWriter("dual", filepath.Join(dir, "report.json"))
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := writer.Write(sampleReport()); err != nil {
		t.Fatalf("write dual: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate dual: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close dual: %v", err)
	}

	for _, name := range []string{"report.csv", "report.json"} {
		if info, err := os.Stat(filepath.Join(dir, name)); err != nil || info.Size() == 0 {
			t.Fatalf("%s missing or empty", name)
		}
	}
}

func TestNewWriterUnsupported(t *testing.T) {
	if _, err := NewWriter("xml", filepath.Join(t.TempDir(), "report.xml")); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}
