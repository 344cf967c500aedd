package reconcile

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const minAcronymLen = 3

func words(title string) []string {
	return strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// titleTokens returns the set of significant words: longer than two
// characters, with a trailing "s" removed.
func titleTokens(title string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range words(title) {
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		set[strings.TrimSuffix(w, "s")] = struct{}{}
	}
	return set
}

// Jaccard is |a ∩ b| / |a ∪ b| over the significant words of two titles.
func Jaccard(a, b string) float64 {
	ta, tb := titleTokens(a), titleTokens(b)
	union := len(ta)
	inter := 0
	for t := range tb {
		if _, ok := ta[t]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func acronym(title string) string {
	var b strings.Builder
	for _, w := range words(title) {
		r, _ := utf8.DecodeRuneInString(w)
		b.WriteRune(r)
	}
	return b.String()
}

// acronymOf reports whether the initials of long appear as a whole word of
// short, as in "Object Oriented Programming" and "OOP Lab". Acronyms shorter
// than three letters never match, and an acronym glued to other letters
// ("OOPs") is not found.
func acronymOf(long, short string) bool {
	abbr := acronym(long)
	if utf8.RuneCountInString(abbr) < minAcronymLen {
		return false
	}
	for _, w := range words(short) {
		if w == abbr {
			return true
		}
	}
	return false
}

// TitleSimilar decides whether two course titles name the same course: the
// Jaccard index reaches threshold, one title's acronym (three letters or
// more) is a word of the other, one normalized title contains the other, or
// they share a significant word.
func TitleSimilar(a, b string, threshold float64) bool {
	na, nb := strings.Join(words(a), " "), strings.Join(words(b), " ")
	if na == "" || nb == "" {
		return false
	}
	if Jaccard(a, b) >= threshold {
		return true
	}
	if acronymOf(a, b) || acronymOf(b, a) {
		return true
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	ta, tb := titleTokens(a), titleTokens(b)
	for t := range ta {
		if _, ok := tb[t]; ok {
			return true
		}
	}
	return false
}
