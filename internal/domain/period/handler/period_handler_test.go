package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/paycycle-budget/internal/domain/category"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/period"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/transaction"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type sliceSource []transaction.Transaction

func (s sliceSource) ListByDateRange(ctx context.Context, start, end time.Time) ([]transaction.Transaction, error) {
	var out []transaction.Transaction
	for _, t := range s {
		if !t.Date.Before(start) && !t.Date.After(end) {
			out = append(out, t)
		}
	}
	return out, nil
}

type noCategories struct{}

func (noCategories) ByID(ctx context.Context) (map[int64]category.Category, error) {
	return map[int64]category.Category{}, nil
}

func setup(t *testing.T) http.Handler {
	t.Helper()
	clock := func() time.Time { return time.Date(2024, 1, 24, 18, 0, 0, 0, time.UTC) }
	calc, err := period.NewCalculator(25, period.WithClock(clock), period.WithLocale(period.English))
	require.NoError(t, err)

	txs := sliceSource{
		{Date: time.Date(2023, 12, 27, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(1000)},
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(-200)},
		{Date: time.Date(2024, 1, 24, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(-50)},
	}
	svc := period.NewService(calc, txs, noCategories{}, testLogger)

	r := chi.NewRouter()
	r.Route("/api/periods", NewPeriodHandler(svc, testLogger).Routes)
	return r
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestCurrent(t *testing.T) {
	rec := get(setup(t), "/api/periods/current")
	require.Equal(t, http.StatusOK, rec.Code)

	var s struct {
		StartDate        string `json:"start_date"`
		EndDate          string `json:"end_date"`
		Label            string `json:"label"`
		Net              string `json:"net"`
		TransactionCount int    `json:"transaction_count"`
		Categories       []struct {
			CategoryID   int64  `json:"category_id"`
			CategoryName string `json:"category_name"`
		} `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))

	assert.Equal(t, "2023-12-25T00:00:00Z", s.StartDate)
	assert.Equal(t, "2024-01-24T23:59:59.999999Z", s.EndDate)
	assert.Equal(t, "25 dec - 24 jan 2024", s.Label)
	assert.Equal(t, "750", s.Net)
	assert.Equal(t, 3, s.TransactionCount)
	require.Len(t, s.Categories, 1)
	assert.Equal(t, "Uncategorized", s.Categories[0].CategoryName)
}

func TestSummary(t *testing.T) {
	h := setup(t)

	rec := get(h, "/api/periods/summary?start_date=2024-01-01&end_date=2024-01-02")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"transaction_count":1`)

	assert.Equal(t, http.StatusBadRequest, get(h, "/api/periods/summary?start_date=2024-01-01").Code)
	assert.Equal(t, http.StatusBadRequest, get(h, "/api/periods/summary?start_date=01/01/2024&end_date=2024-01-02").Code)
	assert.Equal(t, http.StatusBadRequest, get(h, "/api/periods/summary?start_date=2024-02-01&end_date=2024-01-02").Code)
}

func TestList(t *testing.T) {
	h := setup(t)

	rec := get(h, "/api/periods/list?limit=3")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []period.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 3)
	assert.Equal(t, "25 nov - 24 dec 2023", list[1].Label)

	assert.Equal(t, http.StatusBadRequest, get(h, "/api/periods/list?limit=1000").Code)
}

func TestExportXLSX(t *testing.T) {
	rec := get(setup(t), "/api/periods/export.xlsx?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	// xlsx files are zip archives
	assert.Equal(t, "PK", rec.Body.String()[:2])
}
