package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/set-night/cosmiccreator/internal/response"
)

// apiError is the client-facing rendering of a domain error.
type apiError struct {
	status  int
	code    string
	message string
}

var knownErrors = []struct {
	err error
	apiError
}{
	{errBadBody, apiError{http.StatusBadRequest, "BAD_REQUEST", "The request body could not be read."}},
	{domain.ErrUnauthenticated, apiError{http.StatusUnauthorized, "UNAUTHORIZED", "Please enter the sanctuary first."}},
	{domain.ErrInvalidCreatorName, apiError{http.StatusBadRequest, "BAD_REQUEST", "Please enter a name to begin."}},
	{domain.ErrEmptyPrompt, apiError{http.StatusBadRequest, "BAD_REQUEST", "Please enter a prompt to forge a vision from the cosmos."}},
	{domain.ErrInvalidAspectRatio, apiError{http.StatusBadRequest, "BAD_REQUEST", "Unsupported aspect ratio."}},
	{domain.ErrInvalidMedia, apiError{http.StatusBadRequest, "BAD_REQUEST", "The media could not be read."}},
	{domain.ErrNotAnImage, apiError{http.StatusBadRequest, "BAD_REQUEST", "Only symbolic images can be decoded at this time."}},
	{domain.ErrMissingSource, apiError{http.StatusBadRequest, "BAD_REQUEST", "Please upload a source image."}},
	{domain.ErrInvalidOrigin, apiError{http.StatusBadRequest, "BAD_REQUEST", "A valid return origin is required."}},
	{domain.ErrStarNotFound, apiError{http.StatusNotFound, "NOT_FOUND", "This star system is not known to the sanctuary."}},
	{domain.ErrCreatorNotFound, apiError{http.StatusNotFound, "NOT_FOUND", "Creator not found."}},
	{domain.ErrJobNotFound, apiError{http.StatusNotFound, "NOT_FOUND", "Video job not found."}},
	{domain.ErrMediaNotFound, apiError{http.StatusNotFound, "NOT_FOUND", "Media not found."}},
	{domain.ErrPaymentNotFound, apiError{http.StatusNotFound, "NOT_FOUND", "Payment not found."}},
	{domain.ErrJobNotReady, apiError{http.StatusConflict, "CONFLICT", "The video is still being manifested."}},
	{domain.ErrStorageAccessDenied, apiError{http.StatusForbidden, "FORBIDDEN", "Storage bucket access denied. Please configure RLS policies for public read access."}},
	{domain.ErrInvalidAPIKey, apiError{http.StatusBadGateway, "INVALID_API_KEY", "Your API key is invalid. Please select a valid key."}},
	{domain.ErrEmptyNebula, apiError{http.StatusBadGateway, "UPSTREAM_ERROR", "The Celestial Forge returned an empty nebula. The vision could not be formed."}},
	{domain.ErrNoNewReality, apiError{http.StatusBadGateway, "UPSTREAM_ERROR", "The Vision Weaver could not manifest a new reality from your request."}},
	{domain.ErrTransmissionLost, apiError{http.StatusBadGateway, "UPSTREAM_ERROR", "A veil of static obscures the message. The transmission could not be received."}},
	{domain.ErrCloudDisabled, apiError{http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Cloud storage is not configured."}},
	{domain.ErrPaymentsDisabled, apiError{http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Payments are not configured."}},
	{domain.ErrShuttingDown, apiError{http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "The animator is resting. Please try again shortly."}},
	{domain.ErrRateLimited, apiError{http.StatusTooManyRequests, "RATE_LIMITED", "The cosmos needs a moment. Please wait before creating again."}},
}

// classify maps err to its client rendering. Unknown errors use fallback.
func classify(err error, fallback apiError) apiError {
	for _, k := range knownErrors {
		if errors.Is(err, k.err) {
			return k.apiError
		}
	}
	return fallback
}

var internalError = apiError{http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"}

// writeError renders err. Errors without a known mapping are logged and
// hidden behind a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorAs(w, r, err, internalError)
}

// writeUpstreamError renders err, treating unknown errors as a failed call
// to an external service.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error, message string) {
	writeErrorAs(w, r, err, apiError{http.StatusBadGateway, "UPSTREAM_ERROR", message})
}

func writeErrorAs(w http.ResponseWriter, r *http.Request, err error, fallback apiError) {
	e := classify(err, fallback)
	if e.status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", e.status, "error", err)
	}
	details := ""
	if e.status == http.StatusBadGateway && e.code == "UPSTREAM_ERROR" && e == fallback {
		details = err.Error()
	}
	response.JSON(w, e.status, response.Fail(e.code, e.message, details))
}

// writeChamberError renders a failed chamber call. The body keeps the
// chamber status next to the error.
func writeChamberError(w http.ResponseWriter, r *http.Request, err error, message string) {
	e := classify(err, apiError{http.StatusBadGateway, "UPSTREAM_ERROR", message})
	if e.status >= http.StatusInternalServerError {
		slog.Error("chamber failed", "path", r.URL.Path, "error", err)
	}
	resp := response.Fail(e.code, e.message, "")
	resp.Data = map[string]any{"status": domain.ChamberError}
	response.JSON(w, e.status, resp)
}
