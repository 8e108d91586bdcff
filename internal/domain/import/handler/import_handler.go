// Package handler exposes statement import over HTTP.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/paycycle-budget/internal/apperr"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/import/service"
	"github.com/FACorreiaa/paycycle-budget/pkg/httpx"
)

// DefaultMaxFileSize bounds an upload when no limit is configured.
const DefaultMaxFileSize = 10 << 20

type Importer interface {
	Import(ctx context.Context, req service.ImportRequest) (*service.Report, error)
}

// ImportHandler handles import-related HTTP requests
type ImportHandler struct {
	importer    Importer
	maxFileSize int64
	logger      *slog.Logger
}

// NewImportHandler creates a new import handler. A non-positive maxFileSize
// uses DefaultMaxFileSize.
func NewImportHandler(importer Importer, maxFileSize int64, logger *slog.Logger) *ImportHandler {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &ImportHandler{importer: importer, maxFileSize: maxFileSize, logger: logger}
}

// Routes registers the handler on a router mounted at /api/transactions.
func (h *ImportHandler) Routes(r chi.Router) {
	r.Post("/import", h.Import)
}

// Import accepts a multipart "file" field and ?auto_categorize=bool (default true).
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	auto, err := httpx.BoolQuery(r, "auto_categorize", true)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	// multipart overhead on top of the file itself
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+1<<20)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		httpx.Error(w, r, h.logger, apperr.Validation("invalid multipart upload: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Error(w, r, h.logger, apperr.Validation("file is required"))
		return
	}
	defer file.Close()

	if header.Size > h.maxFileSize {
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	report, err := h.importer.Import(r.Context(), service.ImportRequest{
		FileName:       header.Filename,
		Data:           data,
		AutoCategorize: auto,
	})
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, report)
}
