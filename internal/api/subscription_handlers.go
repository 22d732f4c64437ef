package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cosmoexplorer/backend/internal/pkg/logger"
	"github.com/cosmoexplorer/backend/internal/service/subscription"
)

// User-facing copy. Token failures deliberately share one generic message
// so the responses give nothing away to token guessing.
const (
	msgInvalidEmail      = "Please enter a valid email address."
	msgAlreadySubscribed = "This email is already subscribed to our newsletter."
	msgInvalidToken      = "Invalid or expired token."
	msgAlreadyVerified   = "This email is already verified."
	msgInternal          = "Something went wrong. Please try again later."
)

type subscribeRequest struct {
	Email string `json:"email"`
}

type subscribeResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	VerificationLink string `json:"verificationLink,omitempty"`
}

// Subscribe handles POST /api/subscribe.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, subscribeResponse{Success: false, Message: msgInvalidEmail})
		return
	}

	res, err := h.subs.Subscribe(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		switch {
		case errors.Is(err, subscription.ErrInvalidEmail):
			respondJSON(w, http.StatusBadRequest, subscribeResponse{Success: false, Message: msgInvalidEmail})
		case errors.Is(err, subscription.ErrAlreadySubscribed):
			respondJSON(w, http.StatusBadRequest, subscribeResponse{Success: false, Message: msgAlreadySubscribed})
		default:
			logger.Error("subscribe failed", "error", err)
			respondJSON(w, http.StatusInternalServerError, subscribeResponse{Success: false, Message: msgInternal})
		}
		return
	}

	respondJSON(w, http.StatusOK, subscribeResponse{
		Success:          true,
		Message:          res.Message,
		VerificationLink: res.VerificationLink,
	})
}

// Verify handles GET /verify?token=... from the verification email and
// redirects to the success page.
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	err := h.subs.Verify(r.Context(), token)
	switch {
	case err == nil:
		http.Redirect(w, r, h.siteBase+"/verification-success", http.StatusFound)
	case errors.Is(err, subscription.ErrInvalidToken):
		respondError(w, http.StatusBadRequest, msgInvalidToken)
	case errors.Is(err, subscription.ErrAlreadyVerified):
		respondError(w, http.StatusBadRequest, msgAlreadyVerified)
	case errors.Is(err, subscription.ErrNotFound):
		respondError(w, http.StatusNotFound, msgInvalidToken)
	default:
		logger.Error("verify failed", "error", err)
		respondError(w, http.StatusInternalServerError, msgInternal)
	}
}

// Unsubscribe handles GET /unsubscribe?token=... from the email footer
// and redirects to the goodbye page.
func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	err := h.subs.Unsubscribe(r.Context(), token)
	switch {
	case err == nil:
		http.Redirect(w, r, h.siteBase+"/unsubscribe-success", http.StatusFound)
	case errors.Is(err, subscription.ErrInvalidToken):
		respondError(w, http.StatusBadRequest, msgInvalidToken)
	case errors.Is(err, subscription.ErrNotFound):
		respondError(w, http.StatusNotFound, msgInvalidToken)
	default:
		logger.Error("unsubscribe failed", "error", err)
		respondError(w, http.StatusInternalServerError, msgInternal)
	}
}
