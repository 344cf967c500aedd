package models

import "testing"

func TestStringAndValue(t *testing.T) {
	if String("") != nil {
		t.Fatalf("String(\"\") should be nil")
	}
	if got := Value(String("CS101")); got != "CS101" {
		t.Fatalf("Value = %q, want CS101", got)
	}
	if got := Value(nil); got != "" {
		t.Fatalf("Value(nil) = %q, want empty", got)
	}
}

func TestReportTotals(t *testing.T) {
	var empty *Report
	if empty.TotalDiffs() != 0 || empty.HasDifferences() || len(empty.CountByType()) != 0 {
		t.Fatalf("nil report should have no differences")
	}

	report := &Report{Terms: []TermReport{
		{Name: "Semester 1", DiffCount: 2, Diffs: []DiffEntry{{Type: DiffMissing}, {Type: DiffExtra}}},
		{Name: "Semester 2", DiffCount: 0, Diffs: []DiffEntry{}},
		{Name: "Semester 3", DiffCount: 1, Diffs: []DiffEntry{{Type: DiffMissing}}},
	}}

	if got := report.TotalDiffs(); got != 3 {
		t.Fatalf("TotalDiffs = %d, want 3", got)
	}
	if !report.HasDifferences() {
		t.Fatalf("HasDifferences = false, want true")
	}
	counts := report.CountByType()
	if counts[DiffMissing] != 2 || counts[DiffExtra] != 1 || counts[DiffCodeMismatch] != 0 {
		t.Fatalf("CountByType = %v", counts)
	}
}

func TestCatalogCourseCount(t *testing.T) {
	var nilCatalog *Catalog
	if nilCatalog.CourseCount() != 0 {
		t.Fatalf("nil catalog should count zero courses")
	}
	c := &Catalog{Terms: []Term{
		{Name: "Semester 1", Courses: []Course{{Code: String("CS101")}, {Code: String("MT100")}}},
		{Name: "Semester 2", Courses: []Course{{Code: String("CS102")}}},
	}}
	if got := c.CourseCount(); got != 3 {
		t.Fatalf("CourseCount = %d, want 3", got)
	}
}
