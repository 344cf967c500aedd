package extract

import (
	"regexp"
	"slices"
	"strings"

	"github.com/ArqamWaheed/submissionUpdater/parser"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// headerLabel matches the column captions typically found in a header row
// that was written with td instead of th.
var headerLabel = regexp.MustCompile(`(?i)^(#|s\.?\s*no\.?|sr\.?(\s*no\.?)?|sl\.?\s*no\.?|no\.?|course(\s+(code|no\.?|number|title|name))?|code|title|name|subject|credits?|credit\s+hours?|cr\.?(\s*hrs?)?|ch|pre-?\s*req(uisites?)?)$`)

// ownRows returns the rows of table without the rows of nested tables.
func ownRows(table *goquery.Selection) *goquery.Selection {
	node := table.Get(0)
	return table.Find("tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.Closest("table").Get(0) == node
	})
}

func rowCells(row *goquery.Selection) []string {
	return row.ChildrenFiltered("td, th").Map(func(_ int, cell *goquery.Selection) string {
		return cellText(cell)
	})
}

func cellText(cell *goquery.Selection) string {
	if cell.Length() == 0 {
		return ""
	}
	return parser.CleanText(strings.Join(textLines(cell.Get(0)), " "))
}

func joinCells(cells []string) string {
	return strings.Join(cells, " ")
}

// isHeaderRow reports rows that label columns rather than list a course.
func isHeaderRow(row *goquery.Selection) bool {
	cells := row.ChildrenFiltered("td, th")
	if cells.Length() == 0 {
		return true
	}
	if row.Closest("thead").Length() > 0 {
		return true
	}
	if cells.Filter("td").Length() == 0 {
		return true
	}

	labels := 0
	for _, text := range rowCells(row) {
		if text == "" {
			continue
		}
		if !headerLabel.MatchString(text) {
			return false
		}
		labels++
	}
	return labels > 0
}

// textLines renders the text under n, breaking lines at <br> and at block
// elements. Script and style content is skipped.
func textLines(n *html.Node) []string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			case atom.Br:
				b.WriteByte('\n')
				return
			case atom.P, atom.Div, atom.Li, atom.Tr:
				b.WriteByte('\n')
				defer b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	raw := strings.Split(b.String(), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if cleaned := parser.CleanText(line); cleaned != "" {
			lines = append(lines, cleaned)
		}
	}
	return lines
}

// nestedIn reports whether n sits under an element of one of the given kinds,
// looking no higher than root. Ancestors outside root do not count, so a span
// laid out inside a table cell or a list item is still read.
func nestedIn(n, root *html.Node, kinds ...atom.Atom) bool {
	if n == root {
		return false
	}
	for a := n.Parent; a != nil; a = a.Parent {
		if a.Type == html.ElementNode && slices.Contains(kinds, a.DataAtom) {
			return true
		}
		if a == root {
			break
		}
	}
	return false
}
