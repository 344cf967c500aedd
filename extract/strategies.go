package extract

import (
	"fmt"
	"regexp"

	"github.com/ArqamWaheed/submissionUpdater/models"
	"github.com/ArqamWaheed/submissionUpdater/parser"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const headingSelector = "h1, h2, h3, h4, h5, h6"

var (
	semesterPattern = regexp.MustCompile(`(?i)\bsemester\b`)
	totalPattern    = regexp.MustCompile(`(?i)total`)
)

// headingTerms is the heading-anchored strategy. It returns the names of the
// terms it opened, including ones that ended up empty.
func (e *Extractor) headingTerms(root *goquery.Selection, set *termSet) map[string]struct{} {
	produced := make(map[string]struct{})
	root.Find(headingSelector).Each(func(_ int, heading *goquery.Selection) {
		name := parser.CleanText(heading.Text())
		if !semesterPattern.MatchString(name) {
			return
		}
		produced[name] = struct{}{}
		b := set.get(name)

		for n := heading.Get(0).NextSibling; n != nil; n = n.NextSibling {
			switch n.Type {
			case html.TextNode:
				e.collectLines(textLines(n), b)
			case html.ElementNode:
				sibling := goquery.NewDocumentFromNode(n).Selection
				if isSemesterHeading(sibling) || sibling.Find(headingSelector).FilterFunction(isSemesterHeadingAt).Length() > 0 {
					return
				}
				e.collectSpan(sibling, b)
			}
		}
	})
	return produced
}

// headerTables is the header-named strategy.
func (e *Extractor) headerTables(root *goquery.Selection, set *termSet, produced map[string]struct{}) {
	root.Find("table").Each(func(_ int, table *goquery.Selection) {
		header := ownRows(table).Find("th").First()
		if header.Length() == 0 {
			return
		}
		name := cellText(header)
		if !semesterPattern.MatchString(name) {
			return
		}
		if _, ok := produced[name]; ok {
			return
		}
		e.collectTable(table, set.get(name))
	})
}

// totalTables is the fallback strategy: every table with a total row and at
// least one course becomes a numbered term.
func (e *Extractor) totalTables(root *goquery.Selection, set *termSet) {
	n := 0
	root.Find("table").Each(func(_ int, table *goquery.Selection) {
		var courses []models.Course
		hasTotal := false
		ownRows(table).Each(func(_ int, row *goquery.Selection) {
			if isHeaderRow(row) {
				return
			}
			cells := rowCells(row)
			course, ok := parser.ParseRow(cells, e.schema)
			if totalPattern.MatchString(joinCells(cells)) {
				hasTotal = true
				return
			}
			if ok && !parser.IsTotalMarker(course) {
				courses = append(courses, course)
			}
		})
		if !hasTotal || len(courses) == 0 {
			return
		}
		n++
		b := set.get(fmt.Sprintf("Term-%d", n))
		for _, course := range courses {
			b.add(course)
		}
	})
}

// collectSpan gathers courses from one sibling element of a term heading.
func (e *Extractor) collectSpan(sel *goquery.Selection, b *termBuilder) {
	sel.Filter("table").AddSelection(sel.Find("table")).Each(func(_ int, table *goquery.Selection) {
		e.collectTable(table, b)
	})

	root := sel.Get(0)
	sel.Filter("li").AddSelection(sel.Find("li")).
		FilterFunction(func(_ int, li *goquery.Selection) bool {
			return li.Find("li").Length() == 0 && !nestedIn(li.Get(0), root, atom.Table)
		}).
		Each(func(_ int, li *goquery.Selection) {
			e.collectLines(textLines(li.Get(0)), b)
		})

	sel.Filter("p, div").AddSelection(sel.Find("p, div")).
		FilterFunction(func(_ int, block *goquery.Selection) bool {
			return block.Find("table, ul, ol, p, div").Length() == 0 &&
				!nestedIn(block.Get(0), root, atom.Table, atom.Li)
		}).
		Each(func(_ int, block *goquery.Selection) {
			e.collectLines(textLines(block.Get(0)), b)
		})
}

func (e *Extractor) collectTable(table *goquery.Selection, b *termBuilder) {
	ownRows(table).Each(func(_ int, row *goquery.Selection) {
		if isHeaderRow(row) {
			return
		}
		course, ok := parser.ParseRow(rowCells(row), e.schema)
		if !ok || parser.IsTotalMarker(course) {
			return
		}
		b.add(course)
	})
}

func (e *Extractor) collectLines(lines []string, b *termBuilder) {
	for _, line := range lines {
		if !parser.IsCandidateLine(line) {
			continue
		}
		course, ok := parser.ParseLine(line)
		if !ok || parser.IsTotalMarker(course) {
			continue
		}
		b.add(course)
	}
}

func isSemesterHeading(sel *goquery.Selection) bool {
	return sel.Is(headingSelector) && semesterPattern.MatchString(parser.CleanText(sel.Text()))
}

func isSemesterHeadingAt(_ int, sel *goquery.Selection) bool {
	return isSemesterHeading(sel)
}
