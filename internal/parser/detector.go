package parser

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/receiptlens/backend/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultDetectionLines is the header window inspected by the detector
const DefaultDetectionLines = 40

type markerKind int

const (
	// markerPrefix must start the first non-blank line
	markerPrefix markerKind = iota
	// markerContains may appear anywhere in the header window
	markerContains
)

type marker struct {
	market domain.Market
	kind   markerKind
	text   string
}

// chainMarkers are literal, folded header markers. Markers of different
// chains must never match the same document.
var chainMarkers = []marker{
	{market: domain.MarketPingoDoce, kind: markerPrefix, text: "PD "},
	{market: domain.MarketPingoDoce, kind: markerContains, text: "PINGO DOCE"},
	{market: domain.MarketContinente, kind: markerPrefix, text: "MCH "},
	{market: domain.MarketContinente, kind: markerContains, text: "CONTINENTE HIPERMERCADOS"},
	{market: domain.MarketContinente, kind: markerContains, text: "MODELO CONTINENTE"},
}

// chainPrecedence breaks ties when markers of several chains match.
// Such a match is a marker table defect and is logged.
var chainPrecedence = []domain.Market{
	domain.MarketPingoDoce,
	domain.MarketContinente,
}

// Detection is the outcome of market detection
type Detection struct {
	Market   domain.Market `json:"market"`
	Markers  []string      `json:"markers,omitempty"`
	Conflict bool          `json:"conflict,omitempty"`
}

// Detector classifies a document as one of the known chains
type Detector struct {
	window   int
	matcher  *ahocorasick.Matcher
	contains []marker
	prefixes []marker
	logger   zerolog.Logger
}

// NewDetector builds the marker automaton once; the detector is safe for
// concurrent use.
func NewDetector(window int, logger zerolog.Logger) *Detector {
	if window <= 0 {
		window = DefaultDetectionLines
	}

	d := &Detector{window: window, logger: logger}
	var patterns []string
	for _, m := range chainMarkers {
		switch m.kind {
		case markerPrefix:
			d.prefixes = append(d.prefixes, m)
		case markerContains:
			d.contains = append(d.contains, m)
			patterns = append(patterns, m.text)
		}
	}
	d.matcher = ahocorasick.NewStringMatcher(patterns)
	return d
}

// Detect returns the chain that produced doc, or MarketUnknown
func (d *Detector) Detect(doc domain.Document) Detection {
	lines := d.headerLines(doc)
	if len(lines) == 0 {
		return Detection{Market: domain.MarketUnknown}
	}

	found := make(map[domain.Market][]string)

	first := fold(lines[0]) + " "
	for _, m := range d.prefixes {
		if strings.HasPrefix(first, m.text) {
			found[m.market] = append(found[m.market], m.text)
		}
	}

	folded := make([]string, len(lines))
	for i, l := range lines {
		folded[i] = fold(l)
	}
	for _, idx := range d.matcher.MatchThreadSafe([]byte(strings.Join(folded, "\n"))) {
		m := d.contains[idx]
		found[m.market] = append(found[m.market], m.text)
	}

	result := Detection{Market: domain.MarketUnknown}
	for _, market := range chainPrecedence {
		hits, ok := found[market]
		if !ok {
			continue
		}
		if result.Market != domain.MarketUnknown {
			result.Conflict = true
			d.logger.Warn().
				Str("chosen", string(result.Market)).
				Str("also_matched", string(market)).
				Strs("markers", hits).
				Msg("chain markers of several chains matched")
			continue
		}
		result.Market = market
		result.Markers = hits
	}
	return result
}

// headerLines returns the first non-blank lines of the document, bounded
// by the detection window and, when pages are known, by the first page.
func (d *Detector) headerLines(doc domain.Document) []string {
	source := doc.Lines()
	if len(doc.Pages) > 1 && len(nonBlank(doc.Pages[0])) > 0 {
		source = doc.Pages[0]
	}

	lines := nonBlank(source)
	if len(lines) > d.window {
		lines = lines[:d.window]
	}
	return lines
}

func nonBlank(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
