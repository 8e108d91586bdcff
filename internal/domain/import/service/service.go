// Package service provides the import orchestration logic.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/paycycle-budget/internal/apperr"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/import/normalizer"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/import/parser"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/transaction"
	"github.com/FACorreiaa/paycycle-budget/pkg/metrics"
	"github.com/FACorreiaa/paycycle-budget/pkg/storage"
)

var tracer = otel.Tracer("github.com/FACorreiaa/paycycle-budget/internal/domain/import/service")

// TransactionStore runs an import inside one unit of work.
type TransactionStore interface {
	RunBatch(ctx context.Context, fn func(ctx context.Context, b transaction.Batch) error) error
}

// Categorizer assigns a category to a description, or nil when no rule matches.
type Categorizer interface {
	Categorize(ctx context.Context, description string) (*int64, error)
}

// ImportRequest is one uploaded statement file.
type ImportRequest struct {
	FileName       string
	Data           []byte
	AutoCategorize bool
}

// Report summarizes an import. Errors is Skipped plus Failed.
type Report struct {
	Imported   int                 `json:"imported"`
	Duplicates int                 `json:"duplicates"`
	Errors     int                 `json:"errors"`
	Skipped    int                 `json:"skipped"`
	Failed     int                 `json:"failed"`
	Message    string              `json:"message"`
	ArchiveID  string              `json:"archive_id,omitempty"`
	Skips      []parser.SkippedRow `json:"skipped_rows,omitempty"`
}

func (r *Report) finish() {
	r.Errors = r.Skipped + r.Failed
	r.Message = fmt.Sprintf("Imported %d transactions, %d duplicates skipped, %d errors",
		r.Imported, r.Duplicates, r.Errors)
}

// ImportService orchestrates parsing, deduplication, categorization and
// persistence of statement files.
type ImportService struct {
	store       TransactionStore
	parser      *parser.Parser
	categorizer Categorizer      // optional
	archive     storage.Archive  // optional
	metrics     *metrics.Metrics // optional
	logger      *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewImportService creates a new import service
func NewImportService(store TransactionStore, p *parser.Parser, logger *slog.Logger) *ImportService {
	return &ImportService{
		store:  store,
		parser: p,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// WithCategorizer enables auto-categorization.
func (s *ImportService) WithCategorizer(c Categorizer) *ImportService {
	s.categorizer = c
	return s
}

// WithArchive keeps a copy of every accepted file.
func (s *ImportService) WithArchive(a storage.Archive) *ImportService {
	s.archive = a
	return s
}

func (s *ImportService) WithMetrics(m *metrics.Metrics) *ImportService {
	s.metrics = m
	return s
}

// Import parses req and stores every record whose import hash is not yet
// known. Row-level problems are counted in the report; only file-level
// problems return an error. All stored rows commit together at the end;
// a row that fails to store is rolled back alone and counted as failed.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (*Report, error) {
	ctx, span := tracer.Start(ctx, "ImportService.Import")
	defer span.End()
	span.SetAttributes(
		attribute.String("import.file_name", req.FileName),
		attribute.Int("import.size", len(req.Data)),
		attribute.Bool("import.auto_categorize", req.AutoCategorize),
	)

	start := time.Now()
	report, err := s.run(ctx, req)
	took := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		result := "error"
		if apperr.IsFormat(err) {
			result = "rejected"
		}
		s.metrics.ObserveImport(result, metrics.ImportOutcome{}, took)
		s.logger.Warn("import failed",
			slog.String("file", req.FileName),
			slog.String("result", result),
			slog.Any("error", err),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("import.imported", report.Imported),
		attribute.Int("import.duplicates", report.Duplicates),
		attribute.Int("import.errors", report.Errors),
	)
	s.metrics.ObserveImport("ok", metrics.ImportOutcome{
		Imported:   report.Imported,
		Duplicates: report.Duplicates,
		Skipped:    report.Skipped,
		Failed:     report.Failed,
	}, took)
	s.logger.Info("import finished",
		slog.String("file", req.FileName),
		slog.String("account", s.parser.AccountName()),
		slog.Int("imported", report.Imported),
		slog.Int("duplicates", report.Duplicates),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Duration("took", took),
	)
	return report, nil
}

func (s *ImportService) run(ctx context.Context, req ImportRequest) (*Report, error) {
	if !strings.EqualFold(filepath.Ext(req.FileName), ".csv") {
		return nil, apperr.NewFormatError("only .csv files are supported, got %q", req.FileName)
	}

	text, err := normalizer.DecodeText(req.Data)
	if err != nil {
		return nil, apperr.WrapFormat(err)
	}

	parsed, err := s.parser.Parse(text)
	if err != nil {
		return nil, err
	}

	account := s.parser.AccountName()
	unlock := s.lock(account)
	defer unlock()

	report := &Report{
		Skipped: len(parsed.Skipped),
		Skips:   parsed.Skipped,
	}

	err = s.store.RunBatch(ctx, func(ctx context.Context, b transaction.Batch) error {
		seen := make(map[string]struct{}, len(parsed.Records))
		for i := range parsed.Records {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.importRecord(ctx, b, &parsed.Records[i], req.AutoCategorize, seen, report)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", req.FileName, err)
	}

	if s.archive != nil {
		info, err := s.archive.Save(ctx, account, req.FileName, "text/csv", bytes.NewReader(req.Data))
		if err != nil {
			s.logger.Warn("failed to archive statement", slog.String("file", req.FileName), slog.Any("error", err))
		} else {
			report.ArchiveID = info.ID.String()
		}
	}

	report.finish()
	return report, nil
}

func (s *ImportService) importRecord(ctx context.Context, b transaction.Batch, rec *transaction.Transaction, autoCategorize bool, seen map[string]struct{}, report *Report) {
	if _, ok := seen[rec.ImportHash]; ok {
		report.Duplicates++
		return
	}
	seen[rec.ImportHash] = struct{}{}

	existing, err := b.FindByImportHash(ctx, rec.ImportHash)
	if err != nil {
		report.Failed++
		s.logger.Debug("dedup lookup failed", slog.String("hash", rec.ImportHash), slog.Any("error", err))
		return
	}
	if existing != nil {
		report.Duplicates++
		return
	}

	if autoCategorize && rec.CategoryID == nil && s.categorizer != nil {
		id, err := s.categorizer.Categorize(ctx, rec.Description)
		if err != nil {
			s.logger.Warn("categorization failed", slog.String("description", rec.Description), slog.Any("error", err))
		} else {
			rec.CategoryID = id
		}
	}

	if err := b.Insert(ctx, rec); err != nil {
		if errors.Is(err, apperr.ErrDuplicate) {
			report.Duplicates++
			return
		}
		report.Failed++
		s.logger.Debug("insert failed", slog.String("hash", rec.ImportHash), slog.Any("error", err))
		return
	}
	report.Imported++
}

// lock serializes imports for one account and returns the unlock func.
func (s *ImportService) lock(account string) func() {
	s.mu.Lock()
	l, ok := s.locks[account]
	if !ok {
		l = &sync.Mutex{}
		s.locks[account] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}
