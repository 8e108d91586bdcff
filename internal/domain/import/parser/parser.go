// Package parser turns bank statement CSV text into transaction records.
package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/FACorreiaa/paycycle-budget/internal/domain/import/normalizer"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/import/sniffer"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/transaction"
)

// RawRow is one data row keyed by normalized header.
type RawRow map[string]string

// SkippedRow records a data row that could not be converted.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ParseResult contains the results of parsing a statement file
type ParseResult struct {
	Records     []transaction.Transaction
	Skipped     []SkippedRow
	TotalRows   int
	Delimiter   rune
	Columns     sniffer.Columns
	Fingerprint string
}

// Config configures the statement parser.
type Config struct {
	Dialect     sniffer.Dialect
	Aliases     sniffer.ColumnAliases
	AccountName string
}

// DefaultConfig returns a parser config for SEB exports.
func DefaultConfig() Config {
	return Config{
		Dialect:     sniffer.DefaultDialect,
		Aliases:     sniffer.DefaultAliases,
		AccountName: "SEB",
	}
}

// Parser converts raw statement text into transaction records.
type Parser struct {
	config Config
}

// New creates a parser. Zero-valued config fields fall back to DefaultConfig.
func New(cfg Config) *Parser {
	def := DefaultConfig()
	if len(cfg.Dialect.Delimiters) == 0 {
		cfg.Dialect = def.Dialect
	}
	if len(cfg.Aliases.Date) == 0 && len(cfg.Aliases.Description) == 0 && len(cfg.Aliases.Amount) == 0 {
		cfg.Aliases = def.Aliases
	}
	if cfg.AccountName == "" {
		cfg.AccountName = def.AccountName
	}
	return &Parser{config: cfg}
}

// Parse reads every data row of text. Rows with a missing or unparseable
// date or amount are skipped and reported; only file-level problems
// (undetectable delimiter, missing required columns) return an error.
func (p *Parser) Parse(text string) (*ParseResult, error) {
	text = strings.TrimPrefix(text, "\uFEFF")

	fileCfg, err := p.config.Dialect.Detect(text)
	if err != nil {
		return nil, err
	}

	cols, err := p.config.Aliases.Resolve(fileCfg.Headers)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = fileCfg.Delimiter
	reader.LazyQuotes = true
	// a tab counts as leading space to encoding/csv and would swallow empty cells
	reader.TrimLeadingSpace = fileCfg.Delimiter != '\t'
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	// header row, already inspected by the sniffer
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	result := &ParseResult{
		Delimiter:   fileCfg.Delimiter,
		Columns:     cols,
		Fingerprint: fileCfg.Fingerprint,
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			line := 0
			if errors.As(err, &perr) {
				line = perr.Line
			}
			result.TotalRows++
			result.Skipped = append(result.Skipped, SkippedRow{Line: line, Reason: err.Error()})
			continue
		}
		if isBlank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		result.TotalRows++

		row := toRawRow(fileCfg.Headers, record)
		tx, reason := p.convert(row, cols)
		if reason != "" {
			result.Skipped = append(result.Skipped, SkippedRow{Line: line, Reason: reason})
			continue
		}
		result.Records = append(result.Records, tx)
	}

	return result, nil
}

func (p *Parser) convert(row RawRow, cols sniffer.Columns) (transaction.Transaction, string) {
	// statement dates are calendar dates, kept as UTC wall-clock values
	date, err := normalizer.ParseDate(row[cols.Date], time.UTC)
	if err != nil {
		return transaction.Transaction{}, "date: " + err.Error()
	}

	amount, err := normalizer.ParseAmount(row[cols.Amount])
	if err != nil {
		return transaction.Transaction{}, "amount: " + err.Error()
	}

	description := strings.TrimSpace(row[cols.Description])

	tx := transaction.Transaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		AccountName: p.config.AccountName,
		ImportHash:  normalizer.ImportHash(date, amount, description),
	}
	if cols.HasBalance() {
		tx.Balance = normalizer.ParseOptionalAmount(row[cols.Balance])
	}
	return tx, ""
}

// toRawRow pairs headers with cells. Missing trailing cells read as empty,
// and the first of two identically named columns wins.
func toRawRow(headers, record []string) RawRow {
	row := make(RawRow, len(headers))
	for i, h := range headers {
		if _, seen := row[h]; seen {
			continue
		}
		if i < len(record) {
			row[h] = record[i]
		} else {
			row[h] = ""
		}
	}
	return row
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// AccountName is the account parsed records are attributed to.
func (p *Parser) AccountName() string {
	return p.config.AccountName
}
