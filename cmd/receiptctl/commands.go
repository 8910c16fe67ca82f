package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/receiptlens/backend/config"
	"github.com/receiptlens/backend/internal/domain"
	"github.com/receiptlens/backend/internal/export"
	"github.com/receiptlens/backend/internal/infrastructure/cache"
	"github.com/receiptlens/backend/internal/infrastructure/logging"
	"github.com/receiptlens/backend/internal/infrastructure/pdftext"
	"github.com/receiptlens/backend/internal/parser"
	"github.com/receiptlens/backend/internal/usecase"
	"github.com/spf13/cobra"
)

// app holds the dependencies shared by all subcommands
type app struct {
	service   *usecase.ExtractionService
	extractor *pdftext.Extractor
	cache     *cache.MemoryCache
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "receiptctl",
		Short: "Extract structured data from supermarket receipts",
		Long: `receiptctl parses Pingo Doce and Continente receipts, either as PDF
or as already extracted text (one line per row), into products, totals
and metadata.

Example:
  receiptctl parse talao.pdf
  receiptctl parse --format csv *.pdf > compras.csv
  receiptctl detect talao.pdf`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			return a.init(level)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.cache != nil {
				return a.cache.Close()
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level written to stderr (debug, info, warn, error)")

	rootCmd.AddCommand(parseCmd(a))
	rootCmd.AddCommand(detectCmd(a))
	return rootCmd
}

func (a *app) init(level string) error {
	if err := config.LoadEnvFile(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewWithWriter(os.Stderr, level)
	a.extractor = pdftext.NewExtractor(logger)
	a.cache = cache.NewMemoryCache(cache.DefaultSweepInterval)
	a.service = usecase.NewExtractionService(
		a.cache,
		a.extractor,
		parser.New(cfg.Parser.Options(&logger)),
		nil,
		logger,
		usecase.ExtractionServiceConfig{
			CacheTTL:         cfg.Cache.TTL,
			Timeout:          cfg.Server.RequestTimeout,
			MaxBatchFiles:    cfg.Batch.MaxFiles,
			BatchConcurrency: cfg.Batch.Concurrency,
		},
	)
	return nil
}

func parseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file> [file...]",
		Short: "Parse receipts (.pdf or .txt) and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			if format != "json" && format != "csv" {
				return fmt.Errorf("unknown format %q (want json or csv)", format)
			}

			results := make([]domain.FileResult, 0, len(args))
			failed := 0
			for _, path := range args {
				res, err := a.parseFile(cmd.Context(), path)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				}
				if res == nil {
					res = &domain.ExtractionResult{ErrorKind: domain.ErrorKind(err), ErrorMessage: err.Error()}
				}
				results = append(results, domain.FileResult{Filename: path, ExtractionResult: *res})
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			if err := writeResults(w, format, results); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringP("format", "f", "json", "Output format (json, csv)")
	cmd.Flags().StringP("output", "o", "", "Write output to a file instead of stdout")
	return cmd
}

func detectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file>",
		Short: "Report which chain issued a receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.loadDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			detection := a.service.Detect(doc)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", detection.Market)
			if len(detection.Markers) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "markers: %s\n", strings.Join(detection.Markers, ", "))
			}
			if detection.Market == domain.MarketUnknown {
				return domain.ErrUnsupportedFormat
			}
			return nil
		},
	}
}

// parseFile runs PDFs through the full extraction path; text files are
// parsed line by line.
func (a *app) parseFile(ctx context.Context, path string) (*domain.ExtractionResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return a.service.Extract(ctx, filepath.Base(path), content)
	case ".txt":
		return a.service.ParseDocument(ctx, textDocument(content))
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, path)
	}
}

func (a *app) loadDocument(ctx context.Context, path string) (domain.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return a.extractor.Extract(ctx, content)
	case ".txt":
		return textDocument(content), nil
	default:
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, path)
	}
}

// textDocument splits text into lines; form feeds separate pages
func textDocument(content []byte) domain.Document {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	var doc domain.Document
	for _, page := range strings.Split(text, "\f") {
		doc.Pages = append(doc.Pages, strings.Split(page, "\n"))
	}
	return doc
}

func writeResults(w io.Writer, format string, results []domain.FileResult) error {
	switch format {
	case "csv":
		var receipts []*domain.Receipt
		for _, r := range results {
			if r.Receipt != nil {
				receipts = append(receipts, r.Receipt)
			}
		}
		return export.WriteCSV(w, receipts...)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(results[0].ExtractionResult)
		}
		return enc.Encode(results)
	}
}
