package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/corpdir/adbridge/internal/bridge/domain"
	"github.com/corpdir/adbridge/internal/bridge/service"
	"github.com/corpdir/adbridge/pkg/httpx"
	"github.com/corpdir/adbridge/pkg/slogx"
)

type transferRequest struct {
	Subjects []string `json:"subjects" validate:"required,min=1,dive,required"`
	Target   string   `json:"target" validate:"required"`
}

type transferItemPayload struct {
	Subject string `json:"subject"`
	OldPath string `json:"old_path,omitempty"`
	NewPath string `json:"new_path,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TransferHandler moves one or more subjects into a catalog unit. Items
// are processed independently; the response carries every per-subject
// outcome alongside the summary line.
type TransferHandler struct {
	TransferService *service.TransferService
	Validate        *validator.Validate
}

func (h *TransferHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	actor := httpx.SubjectFromContext(ctx)
	if claims, ok := httpx.ClaimsFromContext(ctx); ok && claims.Username != "" {
		actor = claims.Username
	}

	batch := h.TransferService.TransferBatch(ctx, req.Subjects, req.Target, actor)

	items := make([]transferItemPayload, 0, len(batch.Results))
	for _, res := range batch.Results {
		item := transferItemPayload{
			Subject: res.SubjectKey,
			OldPath: res.OldPath,
			NewPath: res.NewPath,
		}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		items = append(items, item)
	}

	status := http.StatusOK
	if batch.Succeeded < batch.Total {
		// Partial or total failure still reports every item.
		status = http.StatusMultiStatus
	}
	httpx.WriteJSON(w, status, map[string]any{
		"summary":   batch.Summary(),
		"succeeded": batch.Succeeded,
		"total":     batch.Total,
		"results":   items,
	})
}

// AuditHandler queries the transfer audit trail.
type AuditHandler struct {
	AuditService *service.AuditService
}

func (h *AuditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := domain.AuditFilter{
		SubjectKey: q.Get("subject"),
		Outcome:    q.Get("outcome"),
	}

	if raw := q.Get("since"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "since must be RFC 3339")
			return
		}
		filter.Since = ts
	}
	if raw := q.Get("until"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "until must be RFC 3339")
			return
		}
		filter.Until = ts
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	switch filter.Outcome {
	case "", domain.TransferSuccess, domain.TransferFailed, domain.TransferPending:
	default:
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "unknown outcome filter")
		return
	}

	entries, err := h.AuditService.Query(ctx, filter)
	if err != nil {
		slogx.FromContext(ctx).Error("audit query failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	payload := make([]auditEntryPayload, 0, len(entries))
	for _, e := range entries {
		payload = append(payload, auditEntryPayload{
			ID:          e.ID,
			Subject:     e.SubjectKey,
			OldPath:     e.OldPath,
			NewPath:     e.NewPath,
			Actor:       e.Actor,
			Outcome:     e.Outcome,
			ErrorDetail: e.ErrorDetail,
			CreatedAt:   e.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"entries": payload})
}

type auditEntryPayload struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	OldPath     string    `json:"old_path"`
	NewPath     string    `json:"new_path"`
	Actor       string    `json:"actor"`
	Outcome     string    `json:"outcome"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
