package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/corpdir/adbridge/internal/bridge/service"
	"github.com/corpdir/adbridge/pkg/httpx"
	"github.com/corpdir/adbridge/pkg/slogx"
)

type syncRequest struct {
	Scope  string `json:"scope" validate:"omitempty,max=512"`
	Update bool   `json:"update"`
}

// SyncHandler runs one reconciliation pass over the directory scope and
// reports what was created, updated and skipped. An empty body runs a
// create-only pass over the default scope.
type SyncHandler struct {
	SyncService *service.SyncService
	Validate    *validator.Validate
}

func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	summary, err := h.SyncService.Run(ctx, req.Scope, req.Update)
	if err != nil {
		if errors.Is(err, service.ErrDirectoryUnavailable) {
			httpx.WriteError(w, http.StatusServiceUnavailable, "directory_unavailable", "directory did not answer")
			return
		}
		slogx.FromContext(ctx).Error("sync run failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"created": summary.Created,
		"updated": summary.Updated,
		"skipped": summary.Skipped,
		"total":   summary.Total,
	})
}
