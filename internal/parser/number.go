package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/receiptlens/backend/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// 7, 3.69, -0.4
	canonicalNumberPattern = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)

	// 3,69  1.234,56  1 234,56  -0,40
	commaDecimalPattern = regexp.MustCompile(`^-?(?:\d{1,3}(?:\.\d{3})+|\d{1,3}(?: \d{3})+|\d+),\d+$`)

	// 1.234.567  1 234
	groupedIntegerPattern = regexp.MustCompile(`^-?(?:\d{1,3}(?:\.\d{3}){2,}|\d{1,3}(?: \d{3})+)$`)

	groupingReplacer = strings.NewReplacer(".", "", " ", "", ",", ".")
)

// ParseNumber converts a locale formatted token (comma decimal separator,
// optional dot or space thousands grouping) into a decimal value.
// A lone dot without a comma is read as the canonical decimal point, which
// keeps ParseNumber idempotent on its own String() output.
func ParseNumber(token string) (decimal.Decimal, error) {
	s := strings.TrimSpace(strings.ReplaceAll(token, "\u00a0", " "))

	var canonical string
	switch {
	case canonicalNumberPattern.MatchString(s):
		canonical = s
	case commaDecimalPattern.MatchString(s), groupedIntegerPattern.MatchString(s):
		canonical = groupingReplacer.Replace(s)
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrMalformedNumber, token)
	}

	d, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %v", domain.ErrMalformedNumber, token, err)
	}
	return d, nil
}

// parseAmount is ParseNumber rounded to cents
func parseAmount(token string) (decimal.Decimal, error) {
	d, err := ParseNumber(token)
	if err != nil {
		return d, err
	}
	return d.Round(2), nil
}
