package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/receiptlens/backend/internal/domain"
	"github.com/shopspring/decimal"
)

// amountExpr matches a comma decimal money amount with optional dot grouping
const amountExpr = `\d+(?:\.\d{3})*,\d{2}`

// mustCompile expands the AMT placeholder before compiling
func mustCompile(expr string) *regexp.Regexp {
	return regexp.MustCompile(strings.ReplaceAll(expr, "AMT", amountExpr))
}

// discountPattern is shared by every chain: a label of words followed by
// a parenthesized amount "(0,40)" or a negative amount "-0,40".
var discountPattern = mustCompile(`^(?P<label>\pL{2,}[^\d()]*?)\s*(?:\((?P<amount>AMT)\)|(?P<negamount>-AMT))$`)

type shapeKind int

const (
	shapeDiscount shapeKind = iota
	shapeQuantified
	shapeSimple
)

// shape is one line-shape matcher. Named groups: name, qty, price, total
// for items; amount or negamount for discounts.
type shape struct {
	name    string
	kind    shapeKind
	pattern *regexp.Regexp
}

type metaKind int

const (
	metaInvoice metaKind = iota
	metaDate
	metaTotal
	metaTotalPaid
	metaTotalDiscount
	metaSubtotal
	metaBodyStart
	metaFooterStart
)

// metaRule recognizes a header or footer field. Named groups: invoice,
// date, amount. Footer rules move the assembler into the footer.
type metaRule struct {
	kind    metaKind
	pattern *regexp.Regexp
	footer  bool
}

// grammar is the ordered set of line matchers for one chain layout
type grammar struct {
	market domain.Market

	// itemMarker is the leading item code that flags a priced line
	itemMarker *regexp.Regexp

	// departments holds folded department names
	departments map[string]struct{}

	// sectionLike is the fallback section test once the body has started
	sectionLike func(line string) bool

	// shapes are tried in order, most specific first
	shapes []shape

	// continuation matches the tail of an item split over two lines; nil
	// when the chain never splits items
	continuation *regexp.Regexp

	// complete reports whether an item line already carries its amount
	complete *regexp.Regexp

	meta []metaRule
}

func (g *grammar) withDepartments(extra []string) *grammar {
	if len(extra) == 0 {
		return g
	}
	clone := *g
	clone.departments = make(map[string]struct{}, len(g.departments)+len(extra))
	for k := range g.departments {
		clone.departments[k] = struct{}{}
	}
	for _, d := range extra {
		if f := fold(strings.TrimSuffix(strings.TrimSpace(d), ":")); f != "" {
			clone.departments[f] = struct{}{}
		}
	}
	return &clone
}

func departmentSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[fold(n)] = struct{}{}
	}
	return set
}

// isDepartment reports whether line names a known department
func (g *grammar) isDepartment(line string) bool {
	_, ok := g.departments[fold(strings.TrimSuffix(line, ":"))]
	return ok
}

// awaitsContinuation reports whether an item line is missing its amounts
// and the chain is known to split items over two lines
func (g *grammar) awaitsContinuation(line string) bool {
	return g.continuation != nil && g.itemMarker.MatchString(line) && !g.complete.MatchString(line)
}

// lineMatch is the outcome of matching one product line
type lineMatch struct {
	shape     string
	kind      shapeKind
	name      string
	price     decimal.Decimal
	quantity  decimal.Decimal
	lineTotal *decimal.Decimal
	discount  decimal.Decimal
}

// match tries every shape in order and converts the first hit.
// It fails with ErrUnparsedLine when no shape matches and with
// ErrMalformedNumber when the matched shape carries a bad number.
func (g *grammar) match(line string) (lineMatch, error) {
	for _, s := range g.shapes {
		groups := namedGroups(s.pattern, line)
		if groups == nil {
			continue
		}
		return s.convert(groups)
	}
	return lineMatch{}, fmt.Errorf("%w: %q", domain.ErrUnparsedLine, line)
}

func (s shape) convert(groups map[string]string) (lineMatch, error) {
	m := lineMatch{shape: s.name, kind: s.kind}

	switch s.kind {
	case shapeDiscount:
		token := groups["amount"]
		if token == "" {
			token = groups["negamount"]
		}
		amount, err := parseAmount(token)
		if err != nil {
			return m, err
		}
		m.name = collapseSpaces(groups["label"])
		m.discount = amount.Abs().Neg()
		return m, nil

	case shapeQuantified:
		qty, err := ParseNumber(groups["qty"])
		if err != nil {
			return m, err
		}
		if !qty.IsPositive() {
			return m, fmt.Errorf("%w: non-positive quantity %q", domain.ErrMalformedNumber, groups["qty"])
		}
		price, err := parseAmount(groups["price"])
		if err != nil {
			return m, err
		}
		total, err := parseAmount(groups["total"])
		if err != nil {
			return m, err
		}
		m.name = collapseSpaces(groups["name"])
		m.price = price
		m.quantity = qty
		m.lineTotal = &total
		return m, nil

	default:
		price, err := parseAmount(groups["price"])
		if err != nil {
			return m, err
		}
		m.name = collapseSpaces(groups["name"])
		m.price = price
		m.quantity = decimal.NewFromInt(1)
		return m, nil
	}
}

// namedGroups returns the named submatches of re in s, or nil
func namedGroups(re *regexp.Regexp, s string) map[string]string {
	sub := re.FindStringSubmatch(s)
	if sub == nil {
		return nil
	}
	groups := make(map[string]string, len(sub))
	for i, name := range re.SubexpNames() {
		if name != "" {
			groups[name] = sub[i]
		}
	}
	return groups
}
