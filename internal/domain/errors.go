package domain

import "errors"

var (
	// ErrMalformedNumber is returned when a numeric token cannot be normalized
	ErrMalformedNumber = errors.New("malformed number")

	// ErrUnparsedLine is recorded when a product line matches no grammar shape
	ErrUnparsedLine = errors.New("unparsed product line")

	// ErrUnsupportedFormat is returned when no known chain marker is found
	ErrUnsupportedFormat = errors.New("unsupported receipt format")

	// ErrEmptyReceipt is returned when a recognized receipt yields no products
	ErrEmptyReceipt = errors.New("no products found in receipt")

	// ErrTextExtraction is returned when no text can be read from the document
	ErrTextExtraction = errors.New("could not extract text from document")

	// ErrUnsupportedFileType is returned for uploads that are not PDF files
	ErrUnsupportedFileType = errors.New("only PDF files are supported")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)

// Error kinds exposed to API callers in ExtractionResult.ErrorKind
const (
	KindMalformedNumber   = "malformed_number"
	KindUnparsedLine      = "unparsed_line"
	KindUnsupportedFormat = "unsupported_format"
	KindEmptyReceipt      = "empty_receipt"
	KindTextExtraction    = "text_extraction"
	KindUnsupportedFile   = "unsupported_file_type"
	KindInvalidRequest    = "invalid_request"
	KindInternal          = "internal"
)

// ErrorKind maps an error to its stable caller-facing kind.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrEmptyReceipt):
		return KindEmptyReceipt
	case errors.Is(err, ErrTextExtraction):
		return KindTextExtraction
	case errors.Is(err, ErrUnsupportedFileType):
		return KindUnsupportedFile
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrMalformedNumber):
		return KindMalformedNumber
	case errors.Is(err, ErrUnparsedLine):
		return KindUnparsedLine
	default:
		return KindInternal
	}
}
