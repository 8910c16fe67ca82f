package config

import (
	"github.com/receiptlens/backend/internal/domain"
	"github.com/receiptlens/backend/internal/parser"
	"github.com/rs/zerolog"
)

// Options converts the parser section into parser.Options
func (p ParserConfig) Options(logger *zerolog.Logger) parser.Options {
	departments := make(map[domain.Market][]string)
	if len(p.Departments.PingoDoce) > 0 {
		departments[domain.MarketPingoDoce] = p.Departments.PingoDoce
	}
	if len(p.Departments.Continente) > 0 {
		departments[domain.MarketContinente] = p.Departments.Continente
	}

	return parser.Options{
		DetectionLines: p.DetectionLines,
		LineTolerance:  p.LineTolerance,
		TotalTolerance: p.TotalTolerance,
		Departments:    departments,
		Logger:         logger,
	}
}
