// Package extract walks an HTML document and groups the course listings it
// finds into terms.
//
// Three strategies run in a fixed order. Heading-anchored extraction treats
// every heading mentioning "semester" as a term boundary and collects the
// tables, lists and text lines that follow it. Header-named extraction picks
// up tables whose first header cell names a semester. When both come back
// empty, the fallback numbers every table that carries a total row.
package extract

import (
	"errors"
	"fmt"
	"time"

	"github.com/ArqamWaheed/submissionUpdater/models"
	"github.com/ArqamWaheed/submissionUpdater/parser"
	"github.com/PuerkitoBio/goquery"
)

// ErrExtractionEmpty is returned when no strategy produced a term.
var ErrExtractionEmpty = errors.New("extract: no term groups found")

// EmptyError carries the source that produced no terms.
type EmptyError struct {
	Source string
}

func (e *EmptyError) Error() string {
	return fmt.Sprintf("%v in %s", ErrExtractionEmpty, e.Source)
}

func (e *EmptyError) Unwrap() error {
	return ErrExtractionEmpty
}

// Extractor holds the column layout used when mapping table rows.
type Extractor struct {
	schema parser.ColumnSchema
}

// New builds an extractor for the given column schema.
func New(schema parser.ColumnSchema) *Extractor {
	return &Extractor{schema: schema}
}

// Terms runs the extraction strategies over doc.
func (e *Extractor) Terms(doc *goquery.Document) ([]models.Term, error) {
	if doc == nil {
		return nil, ErrExtractionEmpty
	}

	set := newTermSet()
	produced := e.headingTerms(doc.Selection, set)
	e.headerTables(doc.Selection, set, produced)
	if set.courseCount() == 0 {
		e.totalTables(doc.Selection, set)
	}

	terms := set.terms()
	if len(terms) == 0 {
		return nil, ErrExtractionEmpty
	}
	return terms, nil
}

// Catalog extracts the terms of doc and wraps them with the document title.
func (e *Extractor) Catalog(doc *goquery.Document, source string, capturedAt time.Time) (*models.Catalog, error) {
	terms, err := e.Terms(doc)
	if err != nil {
		if errors.Is(err, ErrExtractionEmpty) {
			return nil, &EmptyError{Source: source}
		}
		return nil, err
	}
	return &models.Catalog{
		SourceIdentifier: source,
		CapturedAt:       capturedAt.UTC(),
		Title:            documentTitle(doc),
		Terms:            terms,
	}, nil
}

func documentTitle(doc *goquery.Document) string {
	if title := parser.CleanText(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return parser.CleanText(doc.Find("h1").First().Text())
}

type termBuilder struct {
	term models.Term
	seen map[string]struct{}
}

func (b *termBuilder) add(c models.Course) {
	key := parser.DedupKey(c)
	if _, ok := b.seen[key]; ok {
		return
	}
	b.seen[key] = struct{}{}
	b.term.Courses = append(b.term.Courses, c)
}

// termSet keeps term groups in first-seen order and merges groups that share
// a name.
type termSet struct {
	order  []*termBuilder
	byName map[string]*termBuilder
}

func newTermSet() *termSet {
	return &termSet{byName: make(map[string]*termBuilder)}
}

func (s *termSet) get(name string) *termBuilder {
	if b, ok := s.byName[name]; ok {
		return b
	}
	b := &termBuilder{
		term: models.Term{Name: name},
		seen: make(map[string]struct{}),
	}
	s.byName[name] = b
	s.order = append(s.order, b)
	return b
}

func (s *termSet) courseCount() int {
	total := 0
	for _, b := range s.order {
		total += len(b.term.Courses)
	}
	return total
}

// terms returns the non-empty groups.
func (s *termSet) terms() []models.Term {
	out := make([]models.Term, 0, len(s.order))
	for _, b := range s.order {
		if len(b.term.Courses) == 0 {
			continue
		}
		out = append(out, b.term)
	}
	return out
}
