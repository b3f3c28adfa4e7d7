package htmlutil

import (
	"regexp"
	"strings"
	"unicode"
)

var innerWhitespace = regexp.MustCompile(`\s\s+`)
var digits = regexp.MustCompile(`[0-9]+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// collapses the whitespace soup goquery's .Text() produces for
// nested markup into a single-line display string
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}

// strips everything except digits and parses the remainder, this
// handles currency symbols, thousand separators and trailing labels
// (e.g. "₹ 1,049 onwards"). ok is false when the text holds no digits.
func ParsePrice(s string) (price int, ok bool) {
	matched := digits.FindAllString(s, -1)
	if len(matched) == 0 {
		return 0, false
	}
	joined := strings.Join(matched, "")
	// avoid overflow on garbage like session ids in place of a fare
	if len(joined) > 9 {
		return 0, false
	}
	for _, c := range joined {
		price = price*10 + int(c-'0')
	}
	return price, true
}
