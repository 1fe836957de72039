package shared

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName produces the name-index key for an album or track title.
//
// The name is NFKC folded, upper-cased and stripped of whitespace, then of punctuation and symbols.
// When stripping punctuation leaves nothing (a title like "!!!"), the whitespace-stripped form is kept.
// The result is NFKC folded again, since removing a rune can put a combining mark against a new base letter.
// NormalizeName is idempotent.
func NormalizeName(name string) string {
	upper := norm.NFKC.String(cases.Upper(language.Und).String(norm.NFKC.String(name)))

	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, upper)

	stripped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, compact)

	if stripped == "" {
		return norm.NFKC.String(compact)
	}
	return norm.NFKC.String(stripped)
}

// StripLeadingZeros trims surrounding whitespace and leading zeros from a barcode.
// An all-zero barcode becomes "0".
func StripLeadingZeros(barcode string) string {
	b := strings.TrimSpace(barcode)
	if b == "" {
		return ""
	}
	trimmed := strings.TrimLeft(b, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// BarcodesEqual compares two barcodes ignoring leading zeros, so a UPC-A and its EAN-13 form are equal.
// Two empty barcodes are not equal.
func BarcodesEqual(a, b string) bool {
	sa, sb := StripLeadingZeros(a), StripLeadingZeros(b)
	return sa != "" && sa == sb
}

// foldForSimilarity lower-cases, removes diacritics and collapses whitespace.
func foldForSimilarity(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	lower := cases.Lower(language.Und).String(b.String())
	return strings.Join(strings.Fields(lower), " ")
}

// Similarity returns a normalized similarity score between two names in [0, 1], where 1 is identical
// after case and diacritic folding. The score is 1 - editDistance/maxLength over runes.
func Similarity(a, b string) float64 {
	fa, fb := foldForSimilarity(a), foldForSimilarity(b)
	if fa == fb {
		return 1
	}
	maxLen := max(utf8.RuneCountInString(fa), utf8.RuneCountInString(fb))
	if maxLen == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(fa, fb)
	return 1 - float64(d)/float64(maxLen)
}
