// Package parser turns the text lines of a supermarket receipt into a
// structured domain.Receipt.
package parser

import (
	"github.com/receiptlens/backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	DefaultLineTolerance  = 0.005
	DefaultTotalTolerance = 0.05
)

// Options configures a Parser. Zero values select the defaults.
type Options struct {
	DetectionLines int
	LineTolerance  float64
	TotalTolerance float64

	// Departments extends the built-in department dictionaries
	Departments map[domain.Market][]string

	Logger *zerolog.Logger
}

// Result is the outcome of one parse
type Result struct {
	Receipt     *domain.Receipt
	Detection   Detection
	Diagnostics []domain.Diagnostic
	Skipped     int
}

// Parser holds the compiled chain grammars and the detector. It keeps no
// per-document state and is safe for concurrent use.
type Parser struct {
	detector   *Detector
	pingoDoce  *grammar
	continente *grammar

	lineTolerance  decimal.Decimal
	totalTolerance int64 // cents
	logger         zerolog.Logger
}

func New(opts Options) *Parser {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "parser").Logger()
	}

	lineTolerance := opts.LineTolerance
	if lineTolerance <= 0 {
		lineTolerance = DefaultLineTolerance
	}
	totalTolerance := opts.TotalTolerance
	if totalTolerance <= 0 {
		totalTolerance = DefaultTotalTolerance
	}

	return &Parser{
		detector:       NewDetector(opts.DetectionLines, logger),
		pingoDoce:      pingoDoceGrammar.withDepartments(opts.Departments[domain.MarketPingoDoce]),
		continente:     continenteGrammar.withDepartments(opts.Departments[domain.MarketContinente]),
		lineTolerance:  decimal.NewFromFloat(lineTolerance),
		totalTolerance: toCents(decimal.NewFromFloat(totalTolerance)),
		logger:         logger,
	}
}

// grammarFor selects the grammar of a detected chain, nil for unknown
func (p *Parser) grammarFor(m domain.Market) *grammar {
	switch m {
	case domain.MarketPingoDoce:
		return p.pingoDoce
	case domain.MarketContinente:
		return p.continente
	default:
		return nil
	}
}

// Detect runs market detection only
func (p *Parser) Detect(doc domain.Document) Detection {
	return p.detector.Detect(doc)
}

// Parse assembles a receipt from doc. It fails with ErrUnsupportedFormat
// when no chain is recognized and with ErrEmptyReceipt when no product could
// be extracted; the returned Result still carries the diagnostics then.
func (p *Parser) Parse(doc domain.Document) (*Result, error) {
	return newAssembler(p).run(doc)
}

// ParseLines parses a flat line sequence without page boundaries
func (p *Parser) ParseLines(lines []string) (*Result, error) {
	return p.Parse(domain.NewDocument(lines))
}
