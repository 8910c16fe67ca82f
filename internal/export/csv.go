// Package export renders parsed receipts in tabular formats.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/receiptlens/backend/internal/domain"
)

// ProductRow is one CSV line: a product with its receipt context
type ProductRow struct {
	Market      string `csv:"market"`
	Branch      string `csv:"branch"`
	Invoice     string `csv:"invoice"`
	Date        string `csv:"date"`
	ProductType string `csv:"product_type"`
	Product     string `csv:"product"`
	Price       string `csv:"price"`
	Quantity    string `csv:"quantity"`
	Discount    string `csv:"discount"`
	Discount2   string `csv:"discount2"`
}

// Rows flattens a receipt into one row per product
func Rows(r *domain.Receipt) []ProductRow {
	if r == nil {
		return nil
	}

	var invoice, date string
	if r.Invoice != nil {
		invoice = *r.Invoice
	}
	if r.Date != nil {
		date = r.Date.String()
	}

	rows := make([]ProductRow, 0, len(r.Products))
	for _, p := range r.Products {
		rows = append(rows, ProductRow{
			Market:      string(r.Market),
			Branch:      r.Branch,
			Invoice:     invoice,
			Date:        date,
			ProductType: p.ProductType,
			Product:     p.Product,
			Price:       formatAmount(p.Price),
			Quantity:    strconv.FormatFloat(p.Quantity, 'f', -1, 64),
			Discount:    formatOptional(p.Discount),
			Discount2:   formatOptional(p.Discount2),
		})
	}
	return rows
}

// WriteCSV writes the products of every receipt with a single header row
func WriteCSV(w io.Writer, receipts ...*domain.Receipt) error {
	var rows []ProductRow
	for _, r := range receipts {
		rows = append(rows, Rows(r)...)
	}
	if len(rows) == 0 {
		rows = []ProductRow{}
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatAmount(*v)
}
