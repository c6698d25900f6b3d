package handler

import (
	"net/http"

	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/set-night/cosmiccreator/internal/middleware"
	"github.com/set-night/cosmiccreator/internal/response"
)

type checkoutRequest struct {
	Username string `json:"username"`
	Origin   string `json:"origin"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

// createCheckout starts a Stripe checkout. The username comes from the body
// or, failing that, from the session; the origin from the body or the
// Origin header.
func (h *Handler) createCheckout(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		writeError(w, r, domain.ErrPaymentsDisabled)
		return
	}

	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Username == "" {
		if creator := middleware.GetCreator(r.Context()); creator != nil {
			req.Username = creator.Username
		}
	}
	if req.Origin == "" {
		req.Origin = r.Header.Get("Origin")
	}

	url, err := h.payments.CreateCheckout(r.Context(), req.Username, req.Origin)
	if err != nil {
		writeUpstreamError(w, r, err, "The checkout could not be opened.")
		return
	}
	response.OK(w, checkoutResponse{URL: url})
}

// checkoutStatus confirms the payment for ?session_id=. It answers with
// the payment, which stays pending when Stripe has not settled it yet.
func (h *Handler) checkoutStatus(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		writeError(w, r, domain.ErrPaymentsDisabled)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		response.BadRequest(w, "session_id is required", "")
		return
	}

	payment, err := h.payments.ConfirmPayment(r.Context(), sessionID)
	if err != nil {
		writeUpstreamError(w, r, err, "The payment status could not be checked.")
		return
	}
	response.OK(w, payment)
}
