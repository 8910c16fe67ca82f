// Package pdftext reads receipt text out of PDF documents.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/receiptlens/backend/internal/domain"
	"github.com/rs/zerolog"
)

// Extractor implements domain.TextExtractor on top of ledongthuc/pdf
type Extractor struct {
	logger zerolog.Logger
}

func NewExtractor(logger zerolog.Logger) *Extractor {
	return &Extractor{logger: logger.With().Str("component", "pdf").Logger()}
}

// Extract returns the document text one page at a time, rows ordered top
// to bottom. A document without any text fails with ErrTextExtraction.
func (e *Extractor) Extract(ctx context.Context, content []byte) (doc domain.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = domain.Document{}
			err = fmt.Errorf("%w: %v", domain.ErrTextExtraction, r)
		}
	}()

	if len(content) == 0 {
		return domain.Document{}, fmt.Errorf("%w: empty document", domain.ErrTextExtraction)
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrTextExtraction, err)
	}

	var lines int
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return domain.Document{}, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			doc.Pages = append(doc.Pages, nil)
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			e.logger.Warn().Err(err).Int("page", i).Msg("reading page text")
			doc.Pages = append(doc.Pages, nil)
			continue
		}

		pageLines := make([]string, 0, len(rows))
		for _, row := range rows {
			chunks := make([]string, 0, len(row.Content))
			for _, t := range row.Content {
				chunks = append(chunks, t.S)
			}
			pageLines = append(pageLines, joinChunks(chunks))
		}
		lines += len(pageLines)
		doc.Pages = append(doc.Pages, pageLines)
	}

	e.logger.Debug().Int("pages", len(doc.Pages)).Int("lines", lines).Msg("extracted text")

	if lines == 0 {
		return domain.Document{}, fmt.Errorf("%w: no text found", domain.ErrTextExtraction)
	}
	return doc, nil
}

// joinChunks rebuilds one physical row. Chunks come from separate text
// show operations, so a space is inserted unless one side already has one.
func joinChunks(chunks []string) string {
	var b strings.Builder
	for _, c := range chunks {
		if c == "" {
			continue
		}
		if b.Len() > 0 && !endsWithSpace(b.String()) && !startsWithSpace(c) {
			b.WriteByte(' ')
		}
		b.WriteString(c)
	}
	return strings.TrimRightFunc(b.String(), unicode.IsSpace)
}

func endsWithSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(r)
}

func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsSpace(r)
}
