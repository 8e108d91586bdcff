// Package sniffer inspects bank statement exports: it picks the field
// delimiter, normalizes the header row and maps headers to the columns the
// ingestor needs.
package sniffer

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"

	"github.com/FACorreiaa/paycycle-budget/internal/apperr"
)

var (
	ErrEmptyFile        = errors.New("file is empty")
	ErrInvalidDelimiter = errors.New("could not detect valid delimiter")
)

// Dialect lists the candidate delimiters in tie-break order. When two
// candidates occur equally often on the header line, the earlier one wins.
type Dialect struct {
	Delimiters []rune
}

// DefaultDialect prefers semicolon (Swedish bank exports), then tab, then comma.
var DefaultDialect = Dialect{Delimiters: []rune{';', '\t', ','}}

// FileConfig holds the detected layout of a statement file.
type FileConfig struct {
	Delimiter   rune
	Headers     []string // normalized: trimmed and lower-cased
	Fingerprint string   // SHA256 of the normalized headers, identifies a bank layout
}

// Detect reads the first line of text, chooses the delimiter and returns the
// normalized headers. A leading UTF-8 BOM is ignored.
func (d Dialect) Detect(text string) (*FileConfig, error) {
	text = strings.TrimPrefix(text, "\uFEFF")
	if strings.TrimSpace(text) == "" {
		return nil, apperr.WrapFormat(ErrEmptyFile)
	}

	firstLine := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		firstLine = text[:i]
	}
	firstLine = cleanLine(firstLine)

	delimiter, count := d.detectDelimiter(firstLine)
	if count == 0 {
		return nil, apperr.WrapFormat(ErrInvalidDelimiter)
	}

	reader := csv.NewReader(strings.NewReader(firstLine))
	reader.Comma = delimiter
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, apperr.NewFormatError("unreadable header row: %v", err)
	}

	headers = NormalizeHeaders(headers)

	return &FileConfig{
		Delimiter:   delimiter,
		Headers:     headers,
		Fingerprint: generateFingerprint(headers),
	}, nil
}

// DetectDelimiter runs Detect with the default dialect and returns only the delimiter.
func DetectDelimiter(text string) (rune, error) {
	cfg, err := DefaultDialect.Detect(text)
	if err != nil {
		return 0, err
	}
	return cfg.Delimiter, nil
}

// NormalizeHeaders trims and lower-cases every header in place.
func NormalizeHeaders(headers []string) []string {
	for i, h := range headers {
		headers[i] = NormalizeHeader(h)
	}
	return headers
}

// NormalizeHeader trims surrounding whitespace and lower-cases h.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// cleanLine trims surrounding whitespace except tabs, which may be
// delimiters around empty leading or trailing header cells.
func cleanLine(line string) string {
	return strings.TrimFunc(line, func(r rune) bool {
		return r != '\t' && unicode.IsSpace(r)
	})
}

func (d Dialect) detectDelimiter(line string) (rune, int) {
	delimiters := d.Delimiters
	if len(delimiters) == 0 {
		delimiters = DefaultDialect.Delimiters
	}
	bestDelimiter := rune(0)
	bestCount := 0
	for _, r := range delimiters {
		count := strings.Count(line, string(r))
		// strict > keeps the earlier candidate on ties
		if count > bestCount {
			bestCount = count
			bestDelimiter = r
		}
	}
	return bestDelimiter, bestCount
}

// generateFingerprint creates a unique hash from header names
func generateFingerprint(headers []string) string {
	var normalized []string
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}

	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}
