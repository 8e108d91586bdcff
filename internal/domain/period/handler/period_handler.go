// Package handler exposes period summaries over HTTP.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/paycycle-budget/internal/apperr"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/period"
	"github.com/FACorreiaa/paycycle-budget/pkg/httpx"
)

type PeriodHandler struct {
	svc    *period.Service
	logger *slog.Logger
}

func NewPeriodHandler(svc *period.Service, logger *slog.Logger) *PeriodHandler {
	return &PeriodHandler{svc: svc, logger: logger}
}

// Routes registers the handlers on a router mounted at /api/periods.
func (h *PeriodHandler) Routes(r chi.Router) {
	r.Get("/current", h.Current)
	r.Get("/summary", h.Summary)
	r.Get("/list", h.List)
	r.Get("/export.xlsx", h.ExportXLSX)
}

func (h *PeriodHandler) Current(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.CurrentSummary(r.Context())
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}

// Summary summarizes ?start_date=YYYY-MM-DD&end_date=YYYY-MM-DD, both inclusive.
func (h *PeriodHandler) Summary(w http.ResponseWriter, r *http.Request) {
	start, err := dateQuery(r, "start_date")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	end, err := dateQuery(r, "end_date")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	s, err := h.svc.Summary(r.Context(), start, end)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}

func (h *PeriodHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := httpx.IntQuery(r, "limit", period.DefaultListLimit)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	list, err := h.svc.List(r.Context(), limit)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *PeriodHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	limit, err := httpx.IntQuery(r, "limit", period.DefaultListLimit)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="periods.xlsx"`)
	if err := h.svc.ExportXLSX(r.Context(), w, limit); err != nil {
		w.Header().Del("Content-Disposition")
		httpx.Error(w, r, h.logger, err)
	}
}

func dateQuery(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, apperr.Validation("%s is required", name)
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid %s %q", name, raw)
	}
	return d, nil
}
