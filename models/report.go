package models

import "time"

// DiffType tags the kind of discrepancy between a fetched and a valid term.
type DiffType string

const (
	// DiffMissing is a reference course with no counterpart in the fetched term.
	DiffMissing DiffType = "missing"
	// DiffExtra is a fetched course with no counterpart in the reference term.
	DiffExtra DiffType = "extra"
	// DiffCountMismatch is a course present on both sides with different multiplicity.
	DiffCountMismatch DiffType = "count-mismatch"
	// DiffCodeMismatch pairs a missing and an extra course that look like the same
	// course listed under a different code.
	DiffCodeMismatch DiffType = "code-mismatch"
	// DiffPrerequisiteMismatch pairs two listings of the same code whose
	// prerequisites differ.
	DiffPrerequisiteMismatch DiffType = "prerequisite-mismatch"
)

// DiffTypes lists every diff type in report order.
var DiffTypes = []DiffType{
	DiffCodeMismatch,
	DiffPrerequisiteMismatch,
	DiffMissing,
	DiffExtra,
	DiffCountMismatch,
}

// DiffEntry is one discrepancy. Which fields are set depends on Type:
//
//	missing, extra          Key, Course, Count
//	count-mismatch          Key, Course, FetchedCount, ValidCount
//	code-mismatch           Fetched, Valid
//	prerequisite-mismatch   Fetched, Valid
type DiffEntry struct {
	Type         DiffType `json:"type"`
	Key          string   `json:"key,omitempty"`
	Course       *Course  `json:"course,omitempty"`
	Fetched      *Course  `json:"fetched,omitempty"`
	Valid        *Course  `json:"valid,omitempty"`
	Count        int      `json:"count,omitempty"`
	FetchedCount int      `json:"fetchedCount,omitempty"`
	ValidCount   int      `json:"validCount,omitempty"`
}

// TermReport is the diff list for one aligned term pair.
type TermReport struct {
	Name      string      `json:"name"`
	ValidKey  string      `json:"validKey"`
	DiffCount int         `json:"diffCount"`
	Diffs     []DiffEntry `json:"diffs"`
}

// Report is the full comparison between two catalogs.
type Report struct {
	ComparedAt time.Time    `json:"comparedAt"`
	Terms      []TermReport `json:"terms"`
}

// TotalDiffs sums the diff counts of all terms.
func (r *Report) TotalDiffs() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, term := range r.Terms {
		total += term.DiffCount
	}
	return total
}

// HasDifferences reports whether any term carries at least one diff.
func (r *Report) HasDifferences() bool {
	return r.TotalDiffs() > 0
}

// CountByType tallies diffs across all terms.
func (r *Report) CountByType() map[DiffType]int {
	out := make(map[DiffType]int)
	if r == nil {
		return out
	}
	for _, term := range r.Terms {
		for _, diff := range term.Diffs {
			out[diff.Type]++
		}
	}
	return out
}
