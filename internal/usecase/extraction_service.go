package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/receiptlens/backend/internal/domain"
	"github.com/receiptlens/backend/internal/parser"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Metrics receives extraction outcomes. *metrics.Recorder implements it.
type Metrics interface {
	ReceiptParsed(market string, skipped int, diagnosticKinds []string)
	ExtractionFailed(kind string)
	CacheLookup(hit bool)
	ObserveDuration(source string, start time.Time)
}

// ExtractionServiceConfig holds configuration for the extraction service
type ExtractionServiceConfig struct {
	CacheTTL         time.Duration
	Timeout          time.Duration
	MaxBatchFiles    int
	BatchConcurrency int
}

// ExtractionService turns uploaded receipts into structured results.
// Flow: check cache -> extract text -> parse -> cache -> return
type ExtractionService struct {
	cache     domain.CacheRepository
	extractor domain.TextExtractor
	parser    *parser.Parser
	metrics   Metrics
	logger    zerolog.Logger

	cacheTTL         time.Duration
	timeout          time.Duration
	maxBatchFiles    int
	batchConcurrency int
}

// NewExtractionService wires the service. metrics may be nil.
func NewExtractionService(
	cache domain.CacheRepository,
	extractor domain.TextExtractor,
	p *parser.Parser,
	metrics Metrics,
	logger zerolog.Logger,
	config ExtractionServiceConfig,
) *ExtractionService {
	if metrics == nil {
		metrics = noopMetrics{}
	}

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxBatchFiles := config.MaxBatchFiles
	if maxBatchFiles <= 0 {
		maxBatchFiles = 20
	}
	concurrency := config.BatchConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	return &ExtractionService{
		cache:            cache,
		extractor:        extractor,
		parser:           p,
		metrics:          metrics,
		logger:           logger.With().Str("component", "extraction").Logger(),
		cacheTTL:         cacheTTL,
		timeout:          timeout,
		maxBatchFiles:    maxBatchFiles,
		batchConcurrency: concurrency,
	}
}

// Extract parses one uploaded PDF. Fatal parse and extraction errors are
// returned together with a failure result describing them; only a
// non-PDF filename yields a nil result.
func (s *ExtractionService) Extract(ctx context.Context, filename string, content []byte) (*domain.ExtractionResult, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFileType, filename)
	}

	log := s.logger.With().Str("filename", filename).Int("bytes", len(content)).Logger()

	key := cacheKey(content)
	if cached, ok := s.fromCache(ctx, key); ok {
		log.Debug().Str("key", key).Msg("cache hit")
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	doc, err := s.extractor.Extract(ctx, content)
	if err != nil {
		log.Warn().Err(err).Msg("text extraction failed")
		return s.failure(err, nil), err
	}

	result, err := s.parse(ctx, doc, log)
	s.metrics.ObserveDuration("pdf", start)
	if err != nil {
		return result, err
	}

	s.toCache(ctx, key, result)
	return result, nil
}

// ParseDocument parses lines that were already extracted elsewhere
func (s *ExtractionService) ParseDocument(ctx context.Context, doc domain.Document) (*domain.ExtractionResult, error) {
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("%w: no lines given", domain.ErrInvalidRequest)
	}

	start := time.Now()
	defer s.metrics.ObserveDuration("lines", start)
	return s.parse(ctx, doc, s.logger)
}

// ExtractBatch extracts every file with bounded concurrency. Results keep
// the input order and one failing file never fails the batch.
func (s *ExtractionService) ExtractBatch(ctx context.Context, files []domain.UploadedFile) (*domain.BatchResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files given", domain.ErrInvalidRequest)
	}
	if len(files) > s.maxBatchFiles {
		return nil, fmt.Errorf("%w: %d files given, at most %d allowed",
			domain.ErrInvalidRequest, len(files), s.maxBatchFiles)
	}

	results := make([]domain.FileResult, len(files))

	var g errgroup.Group
	g.SetLimit(s.batchConcurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			res, err := s.Extract(ctx, f.Filename, f.Content)
			if res == nil {
				res = s.failure(err, nil)
			}
			results[i] = domain.FileResult{Filename: f.Filename, ExtractionResult: *res}
			return nil
		})
	}
	_ = g.Wait()

	batch := &domain.BatchResult{TotalFiles: len(files), Results: results}
	for _, r := range results {
		if r.Success {
			batch.SuccessfulExtractions++
		} else {
			batch.FailedExtractions++
		}
	}

	s.logger.Info().
		Int("files", batch.TotalFiles).
		Int("successful", batch.SuccessfulExtractions).
		Int("failed", batch.FailedExtractions).
		Msg("batch extraction finished")

	return batch, nil
}

// Detect reports the chain of an extracted document
func (s *ExtractionService) Detect(doc domain.Document) parser.Detection {
	return s.parser.Detect(doc)
}

func (s *ExtractionService) parse(ctx context.Context, doc domain.Document, log zerolog.Logger) (*domain.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return s.failure(err, nil), err
	}

	res, err := s.parser.Parse(doc)
	if err != nil {
		log.Info().Err(err).Str("market", string(res.Detection.Market)).Msg("receipt rejected")
		return s.failure(err, res), err
	}

	kinds := make([]string, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		kinds = append(kinds, d.Kind)
	}
	s.metrics.ReceiptParsed(string(res.Receipt.Market), res.Skipped, kinds)

	log.Info().
		Str("market", string(res.Receipt.Market)).
		Int("products", len(res.Receipt.Products)).
		Int("skipped", res.Skipped).
		Int("diagnostics", len(res.Diagnostics)).
		Msg("receipt parsed")

	return &domain.ExtractionResult{
		Success:      true,
		Receipt:      res.Receipt,
		SkippedLines: res.Skipped,
		Diagnostics:  res.Diagnostics,
	}, nil
}

func (s *ExtractionService) failure(err error, res *parser.Result) *domain.ExtractionResult {
	kind := domain.ErrorKind(err)
	s.metrics.ExtractionFailed(kind)

	result := &domain.ExtractionResult{
		Success:      false,
		ErrorKind:    kind,
		ErrorMessage: err.Error(),
	}
	if res != nil {
		result.SkippedLines = res.Skipped
		result.Diagnostics = res.Diagnostics
	}
	return result
}

// cacheKey identifies a document by content.
// Format: "receipt:{sha256 hex}"
func cacheKey(content []byte) string {
	sum := sha256.Sum256(content)
	return "receipt:" + hex.EncodeToString(sum[:])
}

func (s *ExtractionService) fromCache(ctx context.Context, key string) (*domain.ExtractionResult, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		s.metrics.CacheLookup(false)
		return nil, false
	}

	var result domain.ExtractionResult
	if err := json.Unmarshal(data, &result); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("dropping unreadable cache entry")
		_ = s.cache.Delete(ctx, key)
		s.metrics.CacheLookup(false)
		return nil, false
	}

	s.metrics.CacheLookup(true)
	return &result, true
}

// toCache stores a successful result; caching failures are logged only
func (s *ExtractionService) toCache(ctx context.Context, key string, result *domain.ExtractionResult) {
	data, err := json.Marshal(result)
	if err == nil {
		err = s.cache.Set(ctx, key, data, s.cacheTTL)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("caching result")
	}
}

type noopMetrics struct{}

func (noopMetrics) ReceiptParsed(string, int, []string) {}
func (noopMetrics) ExtractionFailed(string) {}
func (noopMetrics) CacheLookup(bool) {}
func (noopMetrics) ObserveDuration(string, time.Time) {}
