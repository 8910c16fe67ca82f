package domain

// Market identifies the retail chain that produced a receipt
type Market string

const (
	MarketPingoDoce  Market = "Pingo Doce"
	MarketContinente Market = "Continente"
	MarketUnknown    Market = "unknown"
)

// Receipt is the structured record extracted from one document
type Receipt struct {
	Market        Market    `json:"market"`
	Branch        string    `json:"branch"`
	Invoice       *string   `json:"invoice"`
	Total         *float64  `json:"total"`
	TotalPaid     *float64  `json:"total_paid,omitempty"`
	TotalDiscount *float64  `json:"total_discount,omitempty"`
	Date          *Date     `json:"date"`
	Products      []Product `json:"products"`
}

// Product is a single purchased item. Discounts are non-positive.
type Product struct {
	ProductType string   `json:"product_type"`
	Product     string   `json:"product"`
	Price       float64  `json:"price"`
	Quantity    float64  `json:"quantity"`
	Discount    *float64 `json:"discount"`
	Discount2   *float64 `json:"discount2"`
}

// Document is the text extractor output: pages of lines in reading order
type Document struct {
	Pages [][]string `json:"pages"`
}

// NewDocument wraps a flat line sequence as a single-page document
func NewDocument(lines []string) Document {
	return Document{Pages: [][]string{lines}}
}

// Lines flattens all pages in reading order
func (d Document) Lines() []string {
	var n int
	for _, p := range d.Pages {
		n += len(p)
	}
	lines := make([]string, 0, n)
	for _, p := range d.Pages {
		lines = append(lines, p...)
	}
	return lines
}

// Diagnostic kinds recorded during assembly
const (
	DiagUnparsedLine      = "unparsed_line"
	DiagMalformedNumber   = "malformed_number"
	DiagMalformedDate     = "malformed_date"
	DiagLineTotalMismatch = "line_total_mismatch"
	DiagTotalMismatch     = "total_mismatch"
	DiagOrphanDiscount    = "orphan_discount"
	DiagExtraDiscount     = "extra_discount"
)

// Diagnostic describes a recoverable problem found on one line
type Diagnostic struct {
	Line    int    `json:"line"`
	Kind    string `json:"kind"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message"`
}

// ExtractionResult is the envelope returned to API callers
type ExtractionResult struct {
	Success      bool         `json:"success"`
	Receipt      *Receipt     `json:"receipt,omitempty"`
	ErrorKind    string       `json:"error_kind,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	SkippedLines int          `json:"skipped_lines"`
	Diagnostics  []Diagnostic `json:"diagnostics,omitempty"`
}

// BatchResult aggregates per-file extraction results
type BatchResult struct {
	TotalFiles            int          `json:"total_files"`
	SuccessfulExtractions int          `json:"successful_extractions"`
	FailedExtractions     int          `json:"failed_extractions"`
	Results               []FileResult `json:"results"`
}

// FileResult is one entry of a batch extraction
type FileResult struct {
	Filename string `json:"filename"`
	ExtractionResult
}

// UploadedFile is a named binary document submitted for extraction
type UploadedFile struct {
	Filename string
	Content  []byte
}
