// Package models defines data structures shared by the extractor, the
// reconciliation engine and their collaborators.
package models

import "time"

// Course is a single course listing. Every field is optional: a nil field
// was absent in the source, which is not the same as an empty string.
type Course struct {
	Serial       *string `json:"serial" yaml:"serial"`
	Code         *string `json:"code" yaml:"code"`
	Title        *string `json:"title" yaml:"title"`
	Credits      *string `json:"credits" yaml:"credits"`
	Prerequisite *string `json:"prerequisite,omitempty" yaml:"prerequisite,omitempty"`
}

// Term is an academic period grouping (usually a semester).
type Term struct {
	Name    string   `json:"name" yaml:"name"`
	Courses []Course `json:"courses" yaml:"courses"`
}

// Catalog is the full set of terms captured from one source.
type Catalog struct {
	SourceIdentifier string    `json:"sourceIdentifier" yaml:"sourceIdentifier"`
	CapturedAt       time.Time `json:"capturedAt" yaml:"capturedAt"`
	Title            string    `json:"title" yaml:"title"`
	Terms            []Term    `json:"terms" yaml:"terms"`
}

// String returns a pointer to s, or nil when s is empty.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Value dereferences an optional field, returning "" when absent.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CourseCount returns the number of courses across all terms.
func (c *Catalog) CourseCount() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, term := range c.Terms {
		total += len(term.Courses)
	}
	return total
}

// FetchResult holds the outcome of retrieving the source document.
type FetchResult struct {
	URL          string
	StatusCode   int
	Rendered     bool
	StartTime    time.Time
	EndTime      time.Time
	RequestCount int
	ErrorCount   int
	RetryCount   int
	ErrorsByType map[string]int
	FailedURLs   []string
}
