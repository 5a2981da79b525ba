package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Blaineeey/Planning-Suite-sub000/pkg/httpx"
	"github.com/Blaineeey/Planning-Suite-sub000/services/esign/internal/auth"
	"github.com/Blaineeey/Planning-Suite-sub000/services/esign/internal/esign"
	"github.com/Blaineeey/Planning-Suite-sub000/services/esign/internal/metrics"
)

type Handler struct {
	svc *esign.Service
}

func New(svc *esign.Service) *Handler { return &Handler{svc: svc} }

// StaffRoutes are the organization-internal endpoints; mount behind
// auth.Middleware.
func (h *Handler) StaffRoutes(r chi.Router) {
	r.Post("/contracts/{contract_id}/signature-request", h.CreateSignatureRequest)
	r.Get("/contracts/{contract_id}/signatures", h.ListContractSignatures)
	r.Get("/contracts/{contract_id}/audit", h.ContractAudit)
	r.Get("/signatures/pending", h.PendingSignatures)
	r.Post("/signatures/{signature_request_id}/verify", h.VerifySignature)
	r.Post("/signatures/{signature_request_id}/cancel", h.CancelSignature)
	r.Post("/signatures/{signature_request_id}/remind", h.RemindSignature)
}

// PublicRoutes serve the signing page; the token is the only credential.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Get("/sign/{token}", h.GetSigningView)
	r.Post("/sign/{token}", h.SubmitSignature)
}

func (h *Handler) CreateSignatureRequest(w http.ResponseWriter, r *http.Request) {
	orgID, _ := auth.OrganizationID(r.Context())
	contractID := chi.URLParam(r, "contract_id")
	var req struct {
		RecipientEmail string `json:"recipient_email"`
		RecipientName  string `json:"recipient_name"`
		Message        string `json:"message"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	if strings.TrimSpace(req.RecipientEmail) == "" || strings.TrimSpace(req.RecipientName) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION", "recipient email and name are required", nil)
		return
	}

	created, err := h.svc.CreateRequest(r.Context(), orgID, contractID, req.RecipientEmail, req.RecipientName)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	metrics.SignatureRequestsCreatedTotal.Inc()
	httpx.WriteOK(w, http.StatusCreated, map[string]any{
		"signature_request": created.Request,
		"token":             created.Token,
		"signature_url":     created.SignatureURL,
		"message":           "signature request sent to " + created.Request.RecipientEmail,
	})
}

func (h *Handler) ListContractSignatures(w http.ResponseWriter, r *http.Request) {
	orgID, _ := auth.OrganizationID(r.Context())
	contractID := chi.URLParam(r, "contract_id")
	sigs, err := h.svc.ContractSignatures(r.Context(), orgID, contractID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if sigs == nil {
		sigs = []esign.SignatureRequest{}
	}
	httpx.WriteOK(w, http.StatusOK, map[string]any{"signatures": sigs, "count": len(sigs)})
}

func (h *Handler) ContractAudit(w http.ResponseWriter, r *http.Request) {
	orgID, _ := auth.OrganizationID(r.Context())
	contractID := chi.URLParam(r, "contract_id")
	entries, err := h.svc.AuditTrail(r.Context(), orgID, contractID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []esign.AuditEntry{}
	}
	httpx.WriteOK(w, http.StatusOK, map[string]any{"audit": entries, "count": len(entries)})
}

func (h *Handler) PendingSignatures(w http.ResponseWriter, r *http.Request) {
	orgID, _ := auth.OrganizationID(r.Context())
	pending, err := h.svc.PendingSignatures(r.Context(), orgID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if pending == nil {
		pending = []esign.PendingRequest{}
	}
	httpx.WriteOK(w, http.StatusOK, map[string]any{"signatures": pending, "count": len(pending)})
}

func (h *Handler) VerifySignature(w http.ResponseWriter, r *http.Request) {
	orgID, _ := auth.OrganizationID(r.Context())
	requestID := chi.URLParam(r, "signature_request_id")
	valid, err := h.svc.VerifySignature(r.Context(), orgID, requestID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	message := "signature verification failed"
	if valid {
		message = "signature is valid"
	}
	httpx.WriteOK(w, http.StatusOK, map[string]any{"valid": valid, "message": message})
}

func (h *Handler) CancelSignature(w http.ResponseWriter, r *http.Request) {
	orgID, _ := auth.OrganizationID(r.Context())
	requestID := chi.URLParam(r, "signature_request_id")
	if err := h.svc.CancelRequest(r.Context(), orgID, requestID); err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, map[string]any{"cancelled": true})
}

func (h *Handler) RemindSignature(w http.ResponseWriter, r *http.Request) {
	orgID, _ := auth.OrganizationID(r.Context())
	requestID := chi.URLParam(r, "signature_request_id")
	req, err := h.svc.SendReminder(r.Context(), orgID, requestID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, map[string]any{
		"message":            "reminder sent to " + req.RecipientEmail,
		"last_reminder_sent": req.LastReminderSent,
	})
}

func (h *Handler) GetSigningView(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	req, snapshot, err := h.svc.SigningView(r.Context(), token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Status == esign.StatusSigned {
		httpx.WriteOK(w, http.StatusOK, map[string]any{
			"signed":    true,
			"signed_at": req.SignedAt,
			"message":   "document already signed",
		})
		return
	}
	// Public projection: never the hash, never other requests on the
	// contract.
	httpx.WriteOK(w, http.StatusOK, map[string]any{
		"signature_request": map[string]any{
			"signature_request_id": req.RequestID,
			"recipient_name":       req.RecipientName,
			"recipient_email":      req.RecipientEmail,
			"status":               req.Status,
			"expires_at":           req.ExpiresAt,
		},
		"contract": snapshot,
	})
}

func (h *Handler) SubmitSignature(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var req struct {
		Signature     string `json:"signature"`
		SignatureType string `json:"signature_type"`
		Timestamp     string `json:"timestamp"`
		AgreedToTerms bool   `json:"agreed_to_terms"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	if strings.TrimSpace(req.Signature) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION", "signature is required", nil)
		return
	}
	if !req.AgreedToTerms {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION", "terms must be agreed to before signing", nil)
		return
	}
	if req.SignatureType == "" {
		req.SignatureType = "drawn"
	}

	timer := prometheus.NewTimer(metrics.SignatureProcessingDuration)
	result, err := h.svc.ProcessSignature(r.Context(), token, req.Signature, req.SignatureType, httpx.ClientIP(r))
	timer.ObserveDuration()
	if err != nil {
		metrics.SignatureFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		writeDomainError(w, err)
		return
	}
	metrics.SignaturesCompletedTotal.Inc()
	httpx.WriteOK(w, http.StatusOK, map[string]any{
		"success":        true,
		"contract_id":    result.ContractID,
		"signature_hash": result.SignatureHash,
		"message":        "document signed successfully",
	})
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, esign.ErrRequestNotFound):
		return "not_found"
	case errors.Is(err, esign.ErrRequestExpired):
		return "expired"
	case errors.Is(err, esign.ErrAlreadySigned):
		return "already_signed"
	case errors.Is(err, esign.ErrRequestCancelled):
		return "cancelled"
	default:
		return "internal"
	}
}

// writeDomainError maps the signing error taxonomy onto client-facing
// status codes: 404 bad id/token, 410 expired, 409 terminal-state
// conflicts, 500 otherwise.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, esign.ErrContractNotFound), errors.Is(err, esign.ErrRequestNotFound):
		httpx.WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, esign.ErrRequestExpired):
		httpx.WriteError(w, http.StatusGone, "EXPIRED", err.Error(), nil)
	case errors.Is(err, esign.ErrAlreadySigned):
		httpx.WriteError(w, http.StatusConflict, "ALREADY_SIGNED", err.Error(), nil)
	case errors.Is(err, esign.ErrRequestCancelled),
		errors.Is(err, esign.ErrCannotCancelSigned),
		errors.Is(err, esign.ErrReminderNotPending):
		httpx.WriteError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
