// Package match aligns the terms of a fetched catalog with the terms of a
// reference catalog.
package match

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ArqamWaheed/submissionUpdater/models"
)

// UnmatchedLabel prefixes the report name of a reference term no fetched
// term was aligned with.
const UnmatchedLabel = "Unmatched reference group: "

// Rule records which precedence rule aligned a pair.
type Rule string

const (
	RuleExact      Rule = "exact"
	RuleNormalized Rule = "normalized"
	RuleOrdinal    Rule = "ordinal"
	RuleNone       Rule = "none"
)

var (
	punctuation = strings.NewReplacer(
		"-", " ", "–", " ", "—", " ",
		"(", " ", ")", " ",
		",", " ", ".", " ", ":", " ",
	)
	premedical = regexp.MustCompile(`\bpre\s*med(?:ical)?\b`)
	ordinal    = regexp.MustCompile(`\bsemester\D*?(\d+)`)
	romans     = map[string]string{"i": "1", "ii": "2", "iii": "3", "iv": "4", "v": "5"}
)

// Pair is one live term aligned with its reference term. Either side may be
// an empty term standing in for a missing counterpart.
type Pair struct {
	Live      models.Term
	Reference models.Term
	Rule      Rule
	// Unmatched is set on reference terms no live term claimed.
	Unmatched bool
	// Index is the pair's position in the output of Terms.
	Index int
}

// Name is the label the pair carries in a report.
func (p Pair) Name() string {
	if p.Unmatched {
		return UnmatchedLabel + p.Reference.Name
	}
	return p.Live.Name
}

// Key identifies the pair for de-duplication. Term names repeat on real
// pages, so the position is part of the key.
func (p Pair) Key() string {
	return strconv.Itoa(p.Index) + "\x00" + p.Live.Name + "\x00" + p.Reference.Name + "\x00" + strconv.FormatBool(p.Unmatched)
}

// NormalizeName canonicalizes a term name for loose comparison.
func NormalizeName(name string) string {
	s := punctuation.Replace(strings.ToLower(name))
	fields := strings.Fields(s)
	for i, f := range fields {
		if digit, ok := romans[f]; ok {
			fields[i] = digit
		}
	}
	s = strings.Join(fields, " ")
	return premedical.ReplaceAllString(s, "premedical")
}

// Ordinal returns the first integer that follows the word "semester".
func Ordinal(name string) (int, bool) {
	m := ordinal.FindStringSubmatch(NormalizeName(name))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Terms aligns every live term with at most one reference term. Rules are
// applied as successive passes (exact name, normalized name, ordinal) so a
// weaker rule never claims a reference term a stronger rule would match.
// Live terms left over pair with an empty reference term; unclaimed
// reference terms are appended in reference order.
func Terms(live, reference []models.Term) []Pair {
	assigned := make([]int, len(live))
	rules := make([]Rule, len(live))
	for i := range assigned {
		assigned[i] = -1
	}
	claimed := make([]bool, len(reference))

	passes := []struct {
		rule  Rule
		equal func(a, b models.Term) bool
	}{
		{RuleExact, func(a, b models.Term) bool { return a.Name == b.Name }},
		{RuleNormalized, func(a, b models.Term) bool { return NormalizeName(a.Name) == NormalizeName(b.Name) }},
		{RuleOrdinal, func(a, b models.Term) bool {
			x, okA := Ordinal(a.Name)
			y, okB := Ordinal(b.Name)
			return okA && okB && x == y
		}},
	}

	for _, pass := range passes {
		for i, a := range live {
			if assigned[i] >= 0 {
				continue
			}
			for j, b := range reference {
				if claimed[j] || !pass.equal(a, b) {
					continue
				}
				assigned[i] = j
				rules[i] = pass.rule
				claimed[j] = true
				break
			}
		}
	}

	pairs := make([]Pair, 0, len(live)+len(reference))
	for i, a := range live {
		if assigned[i] < 0 {
			pairs = append(pairs, Pair{Live: a, Reference: models.Term{}, Rule: RuleNone})
			continue
		}
		pairs = append(pairs, Pair{Live: a, Reference: reference[assigned[i]], Rule: rules[i]})
	}
	for j, b := range reference {
		if claimed[j] {
			continue
		}
		pairs = append(pairs, Pair{Live: models.Term{}, Reference: b, Rule: RuleNone, Unmatched: true})
	}
	for i := range pairs {
		pairs[i].Index = i
	}
	return pairs
}
