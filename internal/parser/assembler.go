package parser

import (
	"errors"
	"fmt"

	"github.com/receiptlens/backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type state int

const (
	stateStart state = iota
	stateInHeader
	stateInBody
	stateInFooter
	stateDone
)

func (s state) String() string {
	return [...]string{"start", "in_header", "in_body", "in_footer", "done"}[s]
}

type pendingLine struct {
	number int
	text   string
}

// assembler is the single-pass state machine that turns one document into
// a receipt. A fresh assembler is used for every parse.
type assembler struct {
	p      *Parser
	g      *grammar
	logger zerolog.Logger

	state       state
	detection   Detection
	receipt     domain.Receipt
	section     string
	body        bool
	reachedBody bool
	pending     *pendingLine

	last          int
	lastDiscounts int

	total, paid, discount, subtotal *decimal.Decimal

	diagnostics []domain.Diagnostic
	skipped     int
}

func newAssembler(p *Parser) *assembler {
	return &assembler{p: p, logger: p.logger, state: stateStart, last: -1}
}

// run drives the state machine over the whole document
func (a *assembler) run(doc domain.Document) (*Result, error) {
	a.detection = a.p.detector.Detect(doc)
	a.g = a.p.grammarFor(a.detection.Market)
	if a.g == nil {
		a.state = stateDone
		return a.result(nil), fmt.Errorf("%w: no chain marker in the first %d lines",
			domain.ErrUnsupportedFormat, a.p.detector.window)
	}

	a.receipt.Market = a.g.market
	a.logger = a.logger.With().Str("market", string(a.g.market)).Logger()
	a.state = stateInHeader

	for i, line := range doc.Lines() {
		a.consume(i+1, line)
	}
	return a.finish()
}

func (a *assembler) context() lineContext {
	return lineContext{
		first:   a.receipt.Branch == "",
		body:    a.body || a.state == stateInBody,
		pending: a.pending != nil,
		section: a.section,
	}
}

func (a *assembler) consume(n int, line string) {
	c := classify(a.g, a.context(), line)

	if a.pending != nil && c.role != RoleContinuationLine {
		if c.role == RoleNoise && c.text == "" {
			return
		}
		a.flushPending()
	}

	switch c.role {
	case RoleNoise:
		return
	case RoleHeader:
		a.receipt.Branch = c.text
		return
	case RoleMetadata:
		a.applyMeta(n, c)
		return
	}

	switch a.state {
	case stateInHeader:
		switch c.role {
		case RoleSectionHeader:
			a.enterBody()
			a.section = c.text
		case RoleProductLine:
			a.enterBody()
			a.productLine(n, c.text)
		}

	case stateInBody:
		switch c.role {
		case RoleSectionHeader:
			a.section = c.text
		case RoleProductLine:
			a.productLine(n, c.text)
		case RoleContinuationLine:
			head := a.pending
			a.pending = nil
			a.dispatch(head.number, head.text+" "+c.text)
		}

	case stateInFooter:
		a.logger.Debug().Int("line", n).Str("role", c.role.String()).Msg("ignoring footer line")
	}
}

func (a *assembler) enterBody() {
	a.state = stateInBody
	a.reachedBody = true
}

func (a *assembler) productLine(n int, text string) {
	if a.g.awaitsContinuation(text) {
		a.pending = &pendingLine{number: n, text: text}
		return
	}
	a.dispatch(n, text)
}

func (a *assembler) flushPending() {
	head := a.pending
	a.pending = nil
	a.dispatch(head.number, head.text)
}

// dispatch matches one (possibly merged) product line against the grammar
func (a *assembler) dispatch(n int, text string) {
	m, err := a.g.match(text)
	if err != nil {
		kind := domain.DiagUnparsedLine
		if errors.Is(err, domain.ErrMalformedNumber) {
			kind = domain.DiagMalformedNumber
		}
		a.skip(n, kind, text, err.Error())
		return
	}

	if m.kind == shapeDiscount {
		a.attachDiscount(n, text, m)
		return
	}

	if m.lineTotal != nil {
		expected := m.price.Mul(m.quantity)
		if diff := expected.Sub(*m.lineTotal).Abs(); diff.GreaterThan(a.p.lineTolerance) {
			msg := fmt.Sprintf("%s x %s = %s, line total %s", m.quantity, m.price, expected, *m.lineTotal)
			a.diagnose(n, domain.DiagLineTotalMismatch, text, msg)
			a.logger.Warn().Int("line", n).Str("text", text).Msg(msg)
		}
	}

	a.receipt.Products = append(a.receipt.Products, domain.Product{
		ProductType: a.section,
		Product:     m.name,
		Price:       m.price.InexactFloat64(),
		Quantity:    m.quantity.InexactFloat64(),
	})
	a.last = len(a.receipt.Products) - 1
	a.lastDiscounts = 0
}

func (a *assembler) attachDiscount(n int, text string, m lineMatch) {
	if a.last < 0 {
		a.skip(n, domain.DiagOrphanDiscount, text, "discount line before any product")
		return
	}

	value := m.discount.InexactFloat64()
	product := &a.receipt.Products[a.last]
	switch a.lastDiscounts {
	case 0:
		product.Discount = &value
	case 1:
		product.Discount2 = &value
	default:
		a.skip(n, domain.DiagExtraDiscount, text,
			fmt.Sprintf("product %q already has two discounts", product.Product))
		return
	}
	a.lastDiscounts++
}

func (a *assembler) applyMeta(n int, c classified) {
	switch c.rule.kind {
	case metaBodyStart:
		a.body = true
	case metaInvoice:
		invoice := collapseSpaces(c.groups["invoice"])
		a.receipt.Invoice = &invoice
		if d := c.groups["date"]; d != "" {
			a.setDate(n, c.text, d)
		}
	case metaDate:
		a.setDate(n, c.text, c.groups["date"])
	case metaTotal:
		a.total = a.amount(n, c)
	case metaTotalPaid:
		a.paid = a.amount(n, c)
	case metaTotalDiscount:
		a.discount = a.amount(n, c)
	case metaSubtotal:
		a.subtotal = a.amount(n, c)
	}

	if c.rule.footer && a.state != stateInFooter {
		a.logger.Debug().Int("line", n).Str("from", a.state.String()).Msg("entering footer")
		a.state = stateInFooter
	}
}

func (a *assembler) amount(n int, c classified) *decimal.Decimal {
	v, err := parseAmount(c.groups["amount"])
	if err != nil {
		a.skip(n, domain.DiagMalformedNumber, c.text, err.Error())
		return nil
	}
	return &v
}

func (a *assembler) setDate(n int, text, value string) {
	if a.receipt.Date != nil {
		return
	}
	d, err := domain.ParseDate(value)
	if err != nil {
		a.diagnose(n, domain.DiagMalformedDate, text, err.Error())
		return
	}
	a.receipt.Date = &d
}

func (a *assembler) skip(n int, kind, text, msg string) {
	a.skipped++
	a.diagnose(n, kind, text, msg)
	a.logger.Debug().Int("line", n).Str("kind", kind).Str("text", text).Msg("skipped line")
}

func (a *assembler) diagnose(n int, kind, text, msg string) {
	a.diagnostics = append(a.diagnostics, domain.Diagnostic{Line: n, Kind: kind, Text: text, Message: msg})
}

// finish flushes pending state, resolves totals and emits the receipt
func (a *assembler) finish() (*Result, error) {
	if a.pending != nil {
		a.flushPending()
	}
	a.state = stateDone

	if len(a.receipt.Products) == 0 {
		reason := "no product section found"
		if a.reachedBody {
			reason = "no parsable product lines"
		}
		return a.result(nil), fmt.Errorf("%w: %s receipt: %s (%d lines skipped)",
			domain.ErrEmptyReceipt, a.g.market, reason, a.skipped)
	}

	a.resolveTotals()
	a.reconcile()

	receipt := a.receipt
	return a.result(&receipt), nil
}

// resolveTotals fills total, total_paid and total_discount. An explicit
// total wins; otherwise a subtotal is the gross total and the discount is
// what was not paid; otherwise the gross total is paid plus discounts.
func (a *assembler) resolveTotals() {
	total := a.total
	discount := a.discount

	switch {
	case total != nil:
	case a.subtotal != nil:
		total = a.subtotal
		if a.paid != nil {
			d := a.subtotal.Sub(*a.paid)
			discount = &d
		}
	case a.paid != nil && discount != nil:
		t := a.paid.Add(*discount)
		total = &t
	case a.paid != nil:
		total = a.paid
	}

	if total != nil && total.IsNegative() {
		a.diagnose(0, domain.DiagTotalMismatch, "", fmt.Sprintf("negative total %s dropped", total))
		total = nil
	}

	a.receipt.Total = floatPtr(total)
	a.receipt.TotalPaid = floatPtr(a.paid)
	a.receipt.TotalDiscount = floatPtr(discount)
}

func (a *assembler) result(receipt *domain.Receipt) *Result {
	return &Result{
		Receipt:     receipt,
		Detection:   a.detection,
		Diagnostics: a.diagnostics,
		Skipped:     a.skipped,
	}
}

func floatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}
