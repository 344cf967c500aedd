package parser

import (
	"strings"

	"github.com/ArqamWaheed/submissionUpdater/models"
)

// ParseLine extracts a course from one line of free text, e.g.
// "3. CS101 - Programming Fundamentals (3 Cr)". The line must yield a course
// code, or both a title and credits; otherwise ok is false.
func ParseLine(line string) (course models.Course, ok bool) {
	text := CleanText(line)
	if text == "" {
		return models.Course{}, false
	}

	if m := serialPrefix.FindStringSubmatchIndex(text); m != nil {
		course.Serial = models.String(text[m[2]:m[3]])
		text = text[m[1]:]
	}

	if loc := codePattern.FindStringIndex(text); loc != nil {
		course.Code = models.String(text[loc[0]:loc[1]])
		text = text[:loc[0]] + " " + text[loc[1]:]
	}

	if m := creditsInLine.FindStringSubmatchIndex(text); m != nil {
		for g := 1; g <= 3; g++ {
			if m[2*g] >= 0 {
				course.Credits = models.String(text[m[2*g]:m[2*g+1]])
				break
			}
		}
		text = text[:m[0]] + " " + text[m[1]:]
	}

	title := dashRun.ReplaceAllString(text, " ")
	title = emptyBrackets.ReplaceAllString(title, " ")
	title = strings.Trim(CleanText(title), " :|,;")
	course.Title = models.String(title)

	if course.Code == nil && (course.Title == nil || course.Credits == nil) {
		return models.Course{}, false
	}
	return course, true
}
