package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/corpdir/adbridge/internal/bridge/domain"
	"github.com/corpdir/adbridge/internal/bridge/service"
	"github.com/corpdir/adbridge/pkg/httpx"
	"github.com/corpdir/adbridge/pkg/slogx"
)

// identityPayload is the wire form of a local record.
type identityPayload struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	EmployeeID  string     `json:"employee_id"`
	NationalID  string     `json:"national_id"`
	FirstNameEN string     `json:"first_name_en"`
	LastNameEN  string     `json:"last_name_en"`
	FirstNameAR string     `json:"first_name_ar"`
	LastNameAR  string     `json:"last_name_ar"`
	JobTitle    string     `json:"job_title"`
	Department  string     `json:"department"`
	HireDate    *time.Time `json:"hire_date,omitempty"`
	Active      bool       `json:"active"`
}

func identityToPayload(id domain.Identity) identityPayload {
	return identityPayload{
		ID:          id.ID,
		Username:    id.ExternalKey,
		EmployeeID:  id.EmployeeID,
		NationalID:  id.NationalID,
		FirstNameEN: id.FirstNameEN,
		LastNameEN:  id.LastNameEN,
		FirstNameAR: id.FirstNameAR,
		LastNameAR:  id.LastNameAR,
		JobTitle:    id.JobTitle,
		Department:  id.Department,
		HireDate:    id.HireDate,
		Active:      id.Active,
	}
}

func profilePayload(p domain.Profile) map[string]any {
	out := map[string]any{
		"identity": identityToPayload(p.Identity),
	}
	if p.Directory != nil {
		out["directory"] = map[string]any{
			"distinguished_name": p.Directory.DistinguishedName,
			"org_unit_path":      p.Directory.OrgUnitPath(),
			"display_name":       p.Directory.DisplayName,
			"mail":               p.Directory.Mail,
			"phone":              p.Directory.Phone,
			"title":              p.Directory.Title,
			"department":         p.Directory.Department,
		}
	}
	return out
}

type IdentityListHandler struct {
	IdentityService *service.IdentityService
}

func (h *IdentityListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identities, err := h.IdentityService.List(r.Context())
	if err != nil {
		slogx.FromContext(r.Context()).Error("list identities failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	payload := make([]identityPayload, 0, len(identities))
	for _, id := range identities {
		payload = append(payload, identityToPayload(id))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"identities": payload})
}

type IdentityGetHandler struct {
	IdentityService *service.IdentityService
}

func (h *IdentityGetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	profile, err := h.IdentityService.Profile(r.Context(), r.PathValue("key"))
	if err != nil {
		if errors.Is(err, service.ErrIdentityNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "no such identity")
			return
		}
		slogx.FromContext(r.Context()).Error("load identity failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profilePayload(profile))
}

type identityUpdateRequest struct {
	FirstNameEN *string    `json:"first_name_en" validate:"omitempty,max=150"`
	LastNameEN  *string    `json:"last_name_en" validate:"omitempty,max=150"`
	FirstNameAR *string    `json:"first_name_ar" validate:"omitempty,max=150"`
	LastNameAR  *string    `json:"last_name_ar" validate:"omitempty,max=150"`
	JobTitle    *string    `json:"job_title" validate:"omitempty,max=150"`
	Department  *string    `json:"department" validate:"omitempty,max=150"`
	HireDate    *time.Time `json:"hire_date"`
}

type IdentityUpdateHandler struct {
	IdentityService *service.IdentityService
	Validate        *validator.Validate
}

func (h *IdentityUpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req identityUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	updated, err := h.IdentityService.UpdateProfile(ctx, r.PathValue("key"), domain.ProfileUpdate{
		FirstNameEN: req.FirstNameEN,
		LastNameEN:  req.LastNameEN,
		FirstNameAR: req.FirstNameAR,
		LastNameAR:  req.LastNameAR,
		JobTitle:    req.JobTitle,
		Department:  req.Department,
		HireDate:    req.HireDate,
	})
	if err != nil {
		if errors.Is(err, service.ErrIdentityNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "no such identity")
			return
		}
		slogx.FromContext(ctx).Error("update identity failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, identityToPayload(updated))
}

// ProfileHandler serves the authenticated caller's own merged profile.
type ProfileHandler struct {
	IdentityService *service.IdentityService
}

func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := httpx.ClaimsFromContext(ctx)
	if !ok || claims.Username == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "no authenticated subject")
		return
	}

	profile, err := h.IdentityService.Profile(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, service.ErrIdentityNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "no such identity")
			return
		}
		slogx.FromContext(ctx).Error("load profile failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profilePayload(profile))
}

// OrgUnitsHandler lists the transfer target catalog.
func OrgUnitsHandler(catalog *domain.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"org_units": catalog.Units()})
	}
}
