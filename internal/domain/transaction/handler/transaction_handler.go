// Package handler exposes transactions over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/paycycle-budget/internal/apperr"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/categorization"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/period"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/transaction"
	"github.com/FACorreiaa/paycycle-budget/pkg/httpx"
)

const defaultSuggestionLimit = 3

// Suggester ranks likely categories for a description.
type Suggester interface {
	Suggest(ctx context.Context, description string, limit int) ([]categorization.Suggestion, error)
}

type TransactionHandler struct {
	svc       *transaction.Service
	calc      *period.Calculator
	suggester Suggester
	logger    *slog.Logger
}

func NewTransactionHandler(svc *transaction.Service, calc *period.Calculator, suggester Suggester, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{svc: svc, calc: calc, suggester: suggester, logger: logger}
}

// Routes registers the handlers on a router mounted at /api/transactions.
func (h *TransactionHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/current-period", h.CurrentPeriod)
	r.Get("/export.csv", h.ExportCSV)
	r.Post("/bulk-categorize", h.BulkCategorize)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/suggestions", h.Suggestions)
}

type currentPeriodResponse struct {
	Period       period.Period             `json:"period"`
	Transactions []transaction.Transaction `json:"transactions"`
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	txs, err := h.svc.List(r.Context(), f)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, nonNil(txs))
}

// CurrentPeriod lists every transaction of the period containing today.
func (h *TransactionHandler) CurrentPeriod(w http.ResponseWriter, r *http.Request) {
	p := h.calc.Current()
	txs, err := h.svc.List(r.Context(), transaction.Filter{Start: &p.Start, End: &p.End, Limit: transaction.MaxLimit})
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, currentPeriodResponse{Period: p, Transactions: nonNil(txs)})
}

func (h *TransactionHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	if err := h.svc.ExportCSV(r.Context(), w, f); err != nil {
		h.logger.Error("csv export failed", slog.Any("error", err))
	}
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

// Update applies a patch. Rules are learned from category changes unless
// ?learn=false is given.
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	learn, err := httpx.BoolQuery(r, "learn", true)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	var p transaction.Patch
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	res, err := h.svc.Update(r.Context(), id, p, learn)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkRequest struct {
	IDs        []int64 `json:"transaction_ids"`
	CategoryID int64   `json:"category_id"`
	Learn      *bool   `json:"learn,omitempty"`
}

func (h *TransactionHandler) BulkCategorize(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	learn := req.Learn == nil || *req.Learn

	res, err := h.svc.BulkCategorize(r.Context(), req.IDs, req.CategoryID, learn)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *TransactionHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	limit, err := httpx.IntQuery(r, "limit", defaultSuggestionLimit)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	suggestions, err := h.suggester.Suggest(r.Context(), t.Description, limit)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, nonNil(suggestions))
}

func parseFilter(r *http.Request) (transaction.Filter, error) {
	q := r.URL.Query()
	var f transaction.Filter

	if raw := q.Get("start_date"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return f, apperr.Validation("invalid start_date %q", raw)
		}
		f.Start = &d
	}
	if raw := q.Get("end_date"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return f, apperr.Validation("invalid end_date %q", raw)
		}
		_, end := period.DayBounds(d, d)
		f.End = &end
	}
	if raw := q.Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, apperr.Validation("invalid category_id %q", raw)
		}
		f.CategoryID = &id
	}

	var err error
	if f.Uncategorized, err = httpx.BoolQuery(r, "uncategorized", false); err != nil {
		return f, err
	}
	if f.Offset, err = httpx.IntQuery(r, "offset", 0); err != nil {
		return f, err
	}
	if f.Limit, err = httpx.IntQuery(r, "limit", transaction.DefaultLimit); err != nil {
		return f, err
	}
	f.Search = q.Get("search")

	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		return f, apperr.Validation("start_date %s is after end_date", f.Start.Format(time.DateOnly))
	}
	return f, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

