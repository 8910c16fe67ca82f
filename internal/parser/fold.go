package parser

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents returns a fresh transformer; chained transformers keep
// state and must not be shared between goroutines.
func stripAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// fold uppercases, strips accents and collapses whitespace so that
// "Poupança  imediata" and "POUPANCA IMEDIATA" compare equal.
func fold(s string) string {
	result, _, err := transform.String(stripAccents(), strings.ToUpper(s))
	if err != nil {
		result = strings.ToUpper(s)
	}
	return strings.Join(strings.Fields(result), " ")
}

// collapseSpaces trims and collapses internal whitespace runs
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
