package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/receiptlens/backend/internal/domain"
	"github.com/receiptlens/backend/internal/usecase"
	"github.com/rs/zerolog"
)

const (
	serviceName    = "receiptlens"
	serviceVersion = "1.0.0"
)

// HandlerConfig holds request limits enforced by the handlers
type HandlerConfig struct {
	MaxUploadBytes int64
	MaxBatchFiles  int
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service *usecase.ExtractionService
	config  HandlerConfig
	logger  zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service *usecase.ExtractionService, config HandlerConfig, logger zerolog.Logger) *Handler {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 10 << 20
	}
	if config.MaxBatchFiles <= 0 {
		config.MaxBatchFiles = 20
	}
	return &Handler{service: service, config: config, logger: logger}
}

// Root describes the service and its endpoints
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     serviceName,
		"version":     serviceVersion,
		"description": "Extracts structured data from Pingo Doce and Continente receipts",
		"endpoints": gin.H{
			"health":        "GET /health",
			"metrics":       "GET /metrics",
			"extract":       "POST /api/v1/receipts/extract",
			"extract_batch": "POST /api/v1/receipts/extract-batch",
			"parse":         "POST /api/v1/receipts/parse",
		},
		"supported_markets": []domain.Market{domain.MarketPingoDoce, domain.MarketContinente},
	})
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// ExtractReceipt handles a single PDF upload in the "file" form field
func (h *Handler) ExtractReceipt(c *gin.Context) {
	limitBody(c, h.config.MaxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		h.formError(c, err, "file")
		return
	}

	upload, err := readUpload(header)
	if err != nil {
		h.formError(c, err, "file")
		return
	}

	result, err := h.service.Extract(c.Request.Context(), upload.Filename, upload.Content)
	h.writeResult(c, result, err)
}

// ExtractBatch handles several PDF uploads in the "files" form field
func (h *Handler) ExtractBatch(c *gin.Context) {
	limitBody(c, h.config.MaxUploadBytes*int64(h.config.MaxBatchFiles))

	form, err := c.MultipartForm()
	if err != nil {
		h.formError(c, err, "files")
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "form field 'files' is required"})
		return
	}
	if len(headers) > h.config.MaxBatchFiles {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("at most %d files per batch, got %d", h.config.MaxBatchFiles, len(headers)),
		})
		return
	}

	files := make([]domain.UploadedFile, 0, len(headers))
	for _, header := range headers {
		if header.Size > h.config.MaxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("file %q exceeds %d bytes", header.Filename, h.config.MaxUploadBytes),
			})
			return
		}
		upload, err := readUpload(header)
		if err != nil {
			h.formError(c, err, "files")
			return
		}
		files = append(files, upload)
	}

	batch, err := h.service.ExtractBatch(c.Request.Context(), files)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

type parseRequest struct {
	Lines []string   `json:"lines"`
	Pages [][]string `json:"pages"`
}

// ParseLines parses already extracted receipt text sent as JSON
func (h *Handler) ParseLines(c *gin.Context) {
	limitBody(c, h.config.MaxUploadBytes)

	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}

	doc := domain.Document{Pages: req.Pages}
	if len(doc.Pages) == 0 && len(req.Lines) > 0 {
		doc = domain.NewDocument(req.Lines)
	}

	result, err := h.service.ParseDocument(c.Request.Context(), doc)
	h.writeResult(c, result, err)
}

// writeResult maps fatal errors onto status codes. Parse level failures
// keep the ExtractionResult body so callers see kind and diagnostics.
func (h *Handler) writeResult(c *gin.Context, result *domain.ExtractionResult, err error) {
	if err == nil {
		c.JSON(http.StatusOK, result)
		return
	}

	switch domain.ErrorKind(err) {
	case domain.KindUnsupportedFormat, domain.KindEmptyReceipt, domain.KindTextExtraction:
		c.JSON(http.StatusUnprocessableEntity, result)
	case domain.KindInternal:
		h.logger.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("extraction failed")
		if result == nil {
			result = &domain.ExtractionResult{ErrorKind: domain.KindInternal, ErrorMessage: err.Error()}
		}
		c.JSON(http.StatusInternalServerError, result)
	default:
		h.writeError(c, err)
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnsupportedFileType), errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	}
	c.JSON(status, gin.H{"error": err.Error(), "error_kind": domain.ErrorKind(err)})
}

// formError reports a multipart problem: oversized bodies are 413, a
// missing field is 422
func (h *Handler) formError(c *gin.Context, err error, field string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit),
		})
		return
	}
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error": fmt.Sprintf("form field '%s' is required: %v", field, err),
	})
}

func limitBody(c *gin.Context, n int64) {
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
	}
}

func readUpload(header *multipart.FileHeader) (domain.UploadedFile, error) {
	f, err := header.Open()
	if err != nil {
		return domain.UploadedFile{}, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return domain.UploadedFile{}, err
	}
	return domain.UploadedFile{Filename: header.Filename, Content: content}, nil
}
