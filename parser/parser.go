// Package parser turns raw cell and line text into course records and
// canonicalizes course fields into comparable strings.
package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ArqamWaheed/submissionUpdater/models"
	"golang.org/x/text/unicode/norm"
)

const fingerprintSeparator = "|"

// CleanText applies NFKC normalization (folding non-breaking and full-width
// spaces), collapses runs of whitespace and trims the result.
func CleanText(text string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(text)), " ")
}

// NormalizeCode trims and uppercases a course code.
func NormalizeCode(code *string) string {
	return strings.ToUpper(strings.TrimSpace(models.Value(code)))
}

// NormalizeCredits trims the credits token. Credits are opaque, so "3+1"
// and "4" stay distinct.
func NormalizeCredits(credits *string) string {
	return strings.TrimSpace(models.Value(credits))
}

// NormalizePrerequisite reduces prerequisite text to the sorted set of course
// codes it mentions, joined with "|". Prose without codes normalizes to "".
func NormalizePrerequisite(text *string) string {
	upper := strings.ToUpper(models.Value(text))
	matches := codePattern.FindAllString(upper, -1)
	if len(matches) == 0 {
		return ""
	}

	seen := make(map[string]struct{}, len(matches))
	codes := make([]string, 0, len(matches))
	for _, match := range matches {
		code := strings.Join(strings.Fields(match), "-")
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return strings.Join(codes, "|")
}

// IsTotalMarker reports whether the course is a subtotal or grand total row.
func IsTotalMarker(c models.Course) bool {
	switch NormalizeCode(c.Code) {
	case "TOTAL", "GRAND TOTAL":
		return true
	}
	return strings.Contains(strings.ToLower(models.Value(c.Title)), "total")
}

// Fingerprint derives the multiset key of a course: code|credits, plus the
// normalized prerequisite when prerequisiteAware is set.
func Fingerprint(c models.Course, prerequisiteAware bool) string {
	key := NormalizeCode(c.Code) + fingerprintSeparator + NormalizeCredits(c.Credits)
	if prerequisiteAware {
		key += fingerprintSeparator + NormalizePrerequisite(c.Prerequisite)
	}
	return key
}

// DedupKey is the code||title key used to collapse duplicate listings
// within a term.
func DedupKey(c models.Course) string {
	return models.Value(c.Code) + "||" + models.Value(c.Title)
}

// ValidateCourse ensures a course carries at least one identifying field.
func ValidateCourse(c models.Course) error {
	if strings.TrimSpace(models.Value(c.Code)) == "" &&
		strings.TrimSpace(models.Value(c.Title)) == "" &&
		strings.TrimSpace(models.Value(c.Credits)) == "" {
		return fmt.Errorf("course has no code, title or credits")
	}
	return nil
}

// ValidateCatalog checks a catalog loaded from an external source.
func ValidateCatalog(c *models.Catalog) error {
	if c == nil {
		return fmt.Errorf("catalog is nil")
	}
	if len(c.Terms) == 0 {
		return fmt.Errorf("catalog %q has no terms", c.SourceIdentifier)
	}
	for i, term := range c.Terms {
		if strings.TrimSpace(term.Name) == "" {
			return fmt.Errorf("term %d has no name", i)
		}
		for j, course := range term.Courses {
			if err := ValidateCourse(course); err != nil {
				return fmt.Errorf("term %q course %d: %w", term.Name, j, err)
			}
		}
	}
	return nil
}
