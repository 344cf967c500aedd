// Package reconcile compares two term course lists as multisets keyed by
// course fingerprint and classifies every difference.
//
// The engine is pure: it performs no I/O, keeps no state between calls and
// is safe to call from several goroutines at once.
package reconcile

import (
	"time"

	"github.com/ArqamWaheed/submissionUpdater/match"
	"github.com/ArqamWaheed/submissionUpdater/models"
	"github.com/ArqamWaheed/submissionUpdater/parser"
)

// DefaultSimilarityThreshold is the Jaccard index at or above which two
// titles are considered the same course.
const DefaultSimilarityThreshold = 0.15

// Options tunes the comparison.
type Options struct {
	// PrerequisiteAware adds the normalized prerequisite to fingerprints.
	PrerequisiteAware bool
	// SimilarityThreshold is the minimum title Jaccard index for pairing.
	SimilarityThreshold float64
}

// DefaultOptions compares by code and credits only.
func DefaultOptions() Options {
	return Options{SimilarityThreshold: DefaultSimilarityThreshold}
}

// Engine diffs aligned term pairs.
type Engine struct {
	opts Options
}

// New builds an engine. A non-positive threshold falls back to the default.
func New(opts Options) *Engine {
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}
	return &Engine{opts: opts}
}

// Options returns the engine's settings.
func (e *Engine) Options() Options {
	return e.opts
}

type bucket struct {
	key    string
	count  int
	sample models.Course
}

// multiset is a fingerprint-keyed course count that remembers first-seen order.
type multiset struct {
	order []*bucket
	index map[string]*bucket
}

func (e *Engine) multiset(term models.Term) *multiset {
	m := &multiset{index: make(map[string]*bucket)}
	for _, course := range term.Courses {
		if parser.IsTotalMarker(course) {
			continue
		}
		key := parser.Fingerprint(course, e.opts.PrerequisiteAware)
		if b, ok := m.index[key]; ok {
			b.count++
			continue
		}
		b := &bucket{key: key, count: 1, sample: course}
		m.index[key] = b
		m.order = append(m.order, b)
	}
	return m
}

// Compare diffs a live (fetched) term against its reference (valid) term.
// Output order: paired diffs in pairing order, then missing, then extra, then
// count mismatches.
func (e *Engine) Compare(live, reference models.Term) []models.DiffEntry {
	liveSet := e.multiset(live)
	refSet := e.multiset(reference)

	var missing, extra []*bucket
	var counts []models.DiffEntry
	for _, ref := range refSet.order {
		got, ok := liveSet.index[ref.key]
		if !ok {
			missing = append(missing, ref)
			continue
		}
		if got.count != ref.count {
			counts = append(counts, models.DiffEntry{
				Type:         models.DiffCountMismatch,
				Key:          ref.key,
				Course:       courseRef(ref.sample),
				FetchedCount: got.count,
				ValidCount:   ref.count,
			})
		}
	}
	for _, got := range liveSet.order {
		if _, ok := refSet.index[got.key]; !ok {
			extra = append(extra, got)
		}
	}

	diffs := make([]models.DiffEntry, 0, len(missing)+len(extra)+len(counts))
	missingPaired := make([]bool, len(missing))
	extraPaired := make([]bool, len(extra))
	for i, ref := range missing {
		for j, got := range extra {
			if extraPaired[j] {
				continue
			}
			diffType, ok := e.pair(got.sample, ref.sample)
			if !ok {
				continue
			}
			diffs = append(diffs, models.DiffEntry{
				Type:    diffType,
				Fetched: courseRef(got.sample),
				Valid:   courseRef(ref.sample),
			})
			missingPaired[i] = true
			extraPaired[j] = true
			break
		}
	}

	for i, ref := range missing {
		if missingPaired[i] {
			continue
		}
		diffs = append(diffs, models.DiffEntry{
			Type:   models.DiffMissing,
			Key:    ref.key,
			Course: courseRef(ref.sample),
			Count:  ref.count,
		})
	}
	for j, got := range extra {
		if extraPaired[j] {
			continue
		}
		diffs = append(diffs, models.DiffEntry{
			Type:   models.DiffExtra,
			Key:    got.key,
			Course: courseRef(got.sample),
			Count:  got.count,
		})
	}
	return append(diffs, counts...)
}

// pair decides whether an extra (fetched) and a missing (valid) course are
// two listings of the same course.
func (e *Engine) pair(fetched, valid models.Course) (models.DiffType, bool) {
	if parser.NormalizeCredits(fetched.Credits) != parser.NormalizeCredits(valid.Credits) {
		return "", false
	}
	if parser.NormalizeCode(fetched.Code) == parser.NormalizeCode(valid.Code) &&
		parser.NormalizePrerequisite(fetched.Prerequisite) != parser.NormalizePrerequisite(valid.Prerequisite) {
		return models.DiffPrerequisiteMismatch, true
	}
	if TitleSimilar(models.Value(fetched.Title), models.Value(valid.Title), e.opts.SimilarityThreshold) {
		return models.DiffCodeMismatch, true
	}
	return "", false
}

// Term compares one aligned pair and wraps the result for a report.
func (e *Engine) Term(p match.Pair) models.TermReport {
	diffs := e.Compare(p.Live, p.Reference)
	if diffs == nil {
		diffs = []models.DiffEntry{}
	}
	return models.TermReport{
		Name:      p.Name(),
		ValidKey:  p.Reference.Name,
		DiffCount: len(diffs),
		Diffs:     diffs,
	}
}

// Report compares every pair sequentially. Unmatched reference terms are
// only reported when they contribute at least one diff.
func (e *Engine) Report(pairs []match.Pair, comparedAt time.Time) *models.Report {
	report := &models.Report{ComparedAt: comparedAt.UTC(), Terms: []models.TermReport{}}
	for _, p := range pairs {
		term := e.Term(p)
		if p.Unmatched && term.DiffCount == 0 {
			continue
		}
		report.Terms = append(report.Terms, term)
	}
	return report
}

func courseRef(c models.Course) *models.Course {
	return &c
}
