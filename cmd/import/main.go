// Command import loads a bank statement CSV into the database without going
// through the HTTP API. It can also list and replay archived statements.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/paycycle-budget/internal/domain/categorization"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/category"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/import/normalizer"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/import/parser"
	importservice "github.com/FACorreiaa/paycycle-budget/internal/domain/import/service"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/transaction"
	"github.com/FACorreiaa/paycycle-budget/pkg/config"
	"github.com/FACorreiaa/paycycle-budget/pkg/db"
	"github.com/FACorreiaa/paycycle-budget/pkg/money"
	"github.com/FACorreiaa/paycycle-budget/pkg/storage"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command and returns its exit code, so deferred cleanup
// happens before the process exits.
func execute(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		file     = fs.String("file", "", "path of the statement CSV to import")
		archived = fs.String("archived", "", "id of an archived statement to import again")
		list     = fs.Bool("list", false, "list archived statements of the account and exit")
		dryRun   = fs.Bool("dry-run", false, "parse the file and print what would be imported")
		auto     = fs.Bool("auto-categorize", true, "categorize new transactions with the stored rules")
		timeout  = fs.Duration("timeout", 5*time.Minute, "overall timeout")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg, logger, options{
		file:     *file,
		archived: *archived,
		list:     *list,
		dryRun:   *dryRun,
		auto:     *auto,
	}, stdout); err != nil {
		logger.Error("import failed", slog.Any("error", err))
		return 1
	}
	return 0
}

type options struct {
	file     string
	archived string
	list     bool
	dryRun   bool
	auto     bool
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts options, out io.Writer) error {
	archive, err := storage.New(cfg.Import.ArchiveDir)
	if err != nil {
		return err
	}
	account := cfg.Import.AccountName
	p := parser.New(parser.Config{AccountName: account})

	if opts.list {
		if archive == nil {
			return errors.New("IMPORT_ARCHIVE_DIR is not set")
		}
		files, err := archive.List(ctx, account)
		if err != nil {
			return err
		}
		return printJSON(out, files)
	}

	name, data, err := load(ctx, archive, account, opts)
	if err != nil {
		return err
	}

	if opts.dryRun {
		return dryRun(p, name, data, out)
	}

	database, err := db.New(ctx, db.Config{DSN: cfg.Database.DSN(), MaxConns: 2}, logger)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.RunMigrations(); err != nil {
		return err
	}

	svc := importservice.NewImportService(transaction.NewRepository(database.Pool), p, logger)
	if opts.auto {
		rules := categorization.NewService(categorization.NewRepository(database.Pool), category.NewRepository(database.Pool), logger)
		svc.WithCategorizer(rules)
	}
	// replays are already archived
	if archive != nil && opts.archived == "" {
		svc.WithArchive(archive)
	}

	report, err := svc.Import(ctx, importservice.ImportRequest{
		FileName:       name,
		Data:           data,
		AutoCategorize: opts.auto,
	})
	if err != nil {
		return err
	}
	return printJSON(out, report)
}

func load(ctx context.Context, archive storage.Archive, account string, opts options) (string, []byte, error) {
	switch {
	case opts.file != "" && opts.archived != "":
		return "", nil, errors.New("use either -file or -archived")
	case opts.file != "":
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return "", nil, err
		}
		return filepath.Base(opts.file), data, nil
	case opts.archived != "":
		if archive == nil {
			return "", nil, errors.New("IMPORT_ARCHIVE_DIR is not set")
		}
		id, err := uuid.Parse(opts.archived)
		if err != nil {
			return "", nil, fmt.Errorf("invalid archive id: %w", err)
		}
		r, info, err := archive.Open(ctx, account, id)
		if err != nil {
			return "", nil, err
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		return info.Name, data, err
	default:
		return "", nil, errors.New("-file is required")
	}
}

type dryRunReport struct {
	File      string              `json:"file"`
	Delimiter string              `json:"delimiter"`
	Rows      int                 `json:"rows"`
	Valid     int                 `json:"valid"`
	Skipped   []parser.SkippedRow `json:"skipped"`
	Income    string              `json:"income"`
	Expenses  string              `json:"expenses"`
}

func dryRun(p *parser.Parser, name string, data []byte, out io.Writer) error {
	text, err := normalizer.DecodeText(data)
	if err != nil {
		return err
	}
	res, err := p.Parse(text)
	if err != nil {
		return err
	}
	income, expenses, err := totals(res.Records)
	if err != nil {
		return err
	}
	return printJSON(out, dryRunReport{
		File:      name,
		Delimiter: string(res.Delimiter),
		Rows:      res.TotalRows,
		Valid:     len(res.Records),
		Skipped:   res.Skipped,
		Income:    income.Display(),
		Expenses:  expenses.Display(),
	})
}

// totals sums the money coming in and going out, both as positive amounts.
func totals(records []transaction.Transaction) (income, expenses *money.Money, err error) {
	income, expenses = money.Zero(money.DefaultCurrency), money.Zero(money.DefaultCurrency)
	for _, r := range records {
		amount := money.SEKFromDecimal(r.Amount)
		if amount.IsNegative() {
			expenses, err = expenses.Add(amount.Abs())
		} else {
			income, err = income.Add(amount)
		}
		if err != nil {
			return nil, nil, err
		}
	}
	return income, expenses, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
