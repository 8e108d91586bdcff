package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/paycycle-budget/pkg/config"
	"github.com/FACorreiaa/paycycle-budget/pkg/storage"
)

const statement = "Bokföringsdatum;Valutadatum;Verifikationsnummer;Text/beteckning;Belopp;Saldo\n" +
	"2024-01-25;2024-01-25;1;LÖN;25000,00;31234,50\n" +
	"2024-01-26;2024-01-26;2;ICA MAXI STOCKHOLM;-456,50;30778,00\n" +
	"x;x;3;BROKEN;-1,00;\n"

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig(archiveDir string) *config.Config {
	return &config.Config{Import: config.ImportConfig{AccountName: "SEB", ArchiveDir: archiveDir}}
}

func TestRun_DryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jan.csv")
	require.NoError(t, os.WriteFile(path, []byte(statement), 0o600))

	var out bytes.Buffer
	err := run(context.Background(), testConfig(""), testLogger, options{file: path, dryRun: true}, &out)
	require.NoError(t, err)

	var got dryRunReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "jan.csv", got.File)
	assert.Equal(t, ";", got.Delimiter)
	assert.Equal(t, 3, got.Rows)
	assert.Equal(t, 2, got.Valid)
	assert.Len(t, got.Skipped, 1)
	assert.Equal(t, "25 000,00 kr", got.Income)
	assert.Equal(t, "456,50 kr", got.Expenses)
}

func TestRun_ReplayArchivedDryRun(t *testing.T) {
	dir := t.TempDir()
	archive, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	info, err := archive.Save(context.Background(), "SEB", "feb.csv", "text/csv", strings.NewReader(statement))
	require.NoError(t, err)

	var out bytes.Buffer
	err = run(context.Background(), testConfig(dir), testLogger, options{archived: info.ID.String(), dryRun: true}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"file": "feb.csv"`)

	out.Reset()
	require.NoError(t, run(context.Background(), testConfig(dir), testLogger, options{list: true}, &out))
	assert.Contains(t, out.String(), info.ID.String())
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer

	assert.Error(t, run(ctx, testConfig(""), testLogger, options{dryRun: true}, &out), "no input")
	assert.Error(t, run(ctx, testConfig(""), testLogger, options{list: true}, &out), "no archive dir")
	assert.Error(t, run(ctx, testConfig(""), testLogger, options{file: "a.csv", archived: "b", dryRun: true}, &out))
	assert.Error(t, run(ctx, testConfig(t.TempDir()), testLogger, options{archived: "not-a-uuid", dryRun: true}, &out))
}

func TestExecute_ExitCodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jan.csv")
	require.NoError(t, os.WriteFile(path, []byte(statement), 0o600))
	t.Setenv("IMPORT_ARCHIVE_DIR", "")

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, execute([]string{"-file", path, "-dry-run"}, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), `"valid": 2`)

	assert.Equal(t, 2, execute([]string{"-no-such-flag"}, &stdout, &stderr))
	assert.Equal(t, 1, execute([]string{"-dry-run"}, &stdout, &stderr), "no input file")

	t.Setenv("PERIOD_START_DAY", "31")
	assert.Equal(t, 1, execute([]string{"-file", path, "-dry-run"}, &stdout, &stderr), "invalid config")
}
