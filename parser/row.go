package parser

import (
	"strings"

	"github.com/ArqamWaheed/submissionUpdater/models"
)

// ParseRow maps the cells of a table row onto a course. Empty cells are
// dropped first. A leading all-digit cell is the serial number. Rows with at
// least schema.MinCells remaining cells are mapped positionally; shorter rows
// are token scanned. ok is false when nothing could be recognized.
func ParseRow(cells []string, schema ColumnSchema) (course models.Course, ok bool) {
	values := make([]string, 0, len(cells))
	for _, cell := range cells {
		if cleaned := CleanText(cell); cleaned != "" {
			values = append(values, cleaned)
		}
	}
	if len(values) == 0 {
		return models.Course{}, false
	}

	offset := 0
	if allDigits.MatchString(values[0]) {
		course.Serial = models.String(values[0])
		offset = 1
	}
	rest := values[offset:]

	if len(rest) >= schema.MinCells {
		course.Code = cellAt(rest, schema.Code)
		course.Title = cellAt(rest, schema.Title)
		course.Credits = cellAt(rest, schema.Credits)
		if schema.Prerequisite >= 0 {
			course.Prerequisite = cellAt(rest, schema.Prerequisite)
		}
	} else {
		scanTokens(rest, &course)
	}

	if course.Code == nil && course.Title == nil && course.Credits == nil {
		return models.Course{}, false
	}
	return course, true
}

func cellAt(cells []string, i int) *string {
	if i < 0 || i >= len(cells) {
		return nil
	}
	return models.String(cells[i])
}

func scanTokens(tokens []string, course *models.Course) {
	var title []string
	for _, token := range tokens {
		switch {
		case course.Serial == nil && allDigits.MatchString(token):
			course.Serial = models.String(token)
		case course.Code == nil && codeToken.MatchString(token):
			course.Code = models.String(token)
		case course.Credits == nil && creditsToken.MatchString(token):
			course.Credits = models.String(creditsToken.FindStringSubmatch(token)[1])
		default:
			title = append(title, token)
		}
	}
	if len(title) > 0 {
		course.Title = models.String(strings.Join(title, " - "))
	}
}
