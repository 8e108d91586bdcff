// Package handler exposes categories and their rules over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/paycycle-budget/internal/domain/categorization"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/category"
	"github.com/FACorreiaa/paycycle-budget/pkg/httpx"
)

// RuleManager manages the categorization rules of a category.
type RuleManager interface {
	ListRules(ctx context.Context, categoryID int64) ([]categorization.CategoryRule, error)
	CreateRule(ctx context.Context, in categorization.RuleInput) (*categorization.CategoryRule, error)
	DeleteRule(ctx context.Context, id int64) error
}

type CategoryHandler struct {
	svc    *category.Service
	rules  RuleManager
	logger *slog.Logger
}

func NewCategoryHandler(svc *category.Service, rules RuleManager, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{svc: svc, rules: rules, logger: logger}
}

// Routes registers the handlers on a router mounted at /api/categories.
func (h *CategoryHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/rules", h.CreateRule)
	r.Delete("/rules/{ruleID}", h.DeleteRule)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/rules", h.ListRules)
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.List(r.Context())
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	if cats == nil {
		cats = []category.Category{}
	}
	httpx.WriteJSON(w, http.StatusOK, cats)
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in category.Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	c, err := h.svc.Create(r.Context(), in)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, c)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	var p category.Patch
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	c, err := h.svc.Update(r.Context(), id, p)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

// Delete removes a category with its rules. Its transactions become uncategorized.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

func (h *CategoryHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	if _, err := h.svc.Get(r.Context(), id); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	rules, err := h.rules.ListRules(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	if rules == nil {
		rules = []categorization.CategoryRule{}
	}
	httpx.WriteJSON(w, http.StatusOK, rules)
}

func (h *CategoryHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var in categorization.RuleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	rule, err := h.rules.CreateRule(r.Context(), in)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, rule)
}

func (h *CategoryHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "ruleID")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	if err := h.rules.DeleteRule(r.Context(), id); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
