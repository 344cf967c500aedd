package parser

import "regexp"

const creditsNumber = `\d+(?:\.\d+)?(?:\+\d+(?:\.\d+)?)?`

var (
	// codePattern finds course codes such as "CS101", "MT 100" or "ENG-1102".
	codePattern = regexp.MustCompile(`\b[A-Z]{2,}[\s-]?\d{2,4}\b`)

	// codeToken matches a cell or token that is exactly one course code.
	codeToken = regexp.MustCompile(`^[A-Z]{2,}[\s-]?\d{2,4}$`)

	// creditsToken matches a whole token such as "3", "3+1", "(3)" or "3 Cr".
	creditsToken = regexp.MustCompile(`(?i)^\(?\s*(` + creditsNumber + `)\s*(?:credit hours?|credits?|crs?\.?|ch)?\s*\)?$`)

	// creditsInLine finds credits inside free text: parenthesized, followed
	// by a unit, or trailing the line.
	creditsInLine = regexp.MustCompile(`(?i)\(\s*(` + creditsNumber + `)\s*(?:credit hours?|credits?|crs?\.?|ch)?\s*\)` +
		`|\b(` + creditsNumber + `)\s*(?:credit hours?|credits?|crs?)\b\.?` +
		`|\b(` + creditsNumber + `)\s*$`)

	serialPrefix = regexp.MustCompile(`^(\d+)[.)\-]?\s?`)
	allDigits    = regexp.MustCompile(`^\d+$`)
	anyDigit     = regexp.MustCompile(`\d`)
	dashRun      = regexp.MustCompile(`[-‐‑‒–—―]+`)

	// emptyBrackets is what is left of "(CS-101)" once the code is cut out.
	emptyBrackets = regexp.MustCompile(`[(\[]\s*[)\]]`)
)

// HasCourseCode reports whether text contains something shaped like a
// course code.
func HasCourseCode(text string) bool {
	return codePattern.MatchString(text)
}

// IsCandidateLine reports whether a free-text line is worth handing to
// ParseLine: it must contain a digit or a course code.
func IsCandidateLine(line string) bool {
	return anyDigit.MatchString(line) || codePattern.MatchString(line)
}

// IsCourseCode reports whether the whole token is a course code.
func IsCourseCode(token string) bool {
	return codeToken.MatchString(token)
}
