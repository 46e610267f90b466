package controllers

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"

	"weddingmemories/internal/delivery/http/helpers"
	"weddingmemories/internal/domain"
)

// uuidRegex matches a canonical UUID string (8-4-4-4-12 hex).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// writeDomainError maps service errors onto the response envelope. Expected
// business rejections are not logged as system errors; unknown failures are.
func writeDomainError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "not found")
	case errors.Is(err, domain.ErrForbidden):
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		helpers.WriteJSONError(w, http.StatusTooManyRequests, helpers.ErrCodeRateLimited, err.Error())
	case errors.Is(err, domain.ErrEventInactive):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeEventInactive, err.Error())
	case errors.Is(err, domain.ErrRSVPClosed):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeRSVPClosed, err.Error())
	case errors.Is(err, domain.ErrDeadlinePassed):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeDeadlinePassed, err.Error())
	default:
		var partial *domain.PartialDeleteError
		if errors.As(err, &partial) {
			logger.ErrorContext(r.Context(), "partial delete", "path", r.URL.Path, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodePartialDelete,
				"the record was removed but some stored files could not be released")
			return
		}
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}

// guestFingerprint identifies a guest session for rate limiting. Guests are
// unauthenticated; the client sends a stable random ID, with the remote
// address as a fallback.
func guestFingerprint(r *http.Request) string {
	if fp := r.Header.Get("X-Guest-Fingerprint"); fp != "" {
		return fp
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
