package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/securefiles/internal/common"
)

// statusFor maps a typed failure to a status code and a message that is safe
// to show the caller.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		// validation messages only describe caller input
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrAuthenticationRequired):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrVersionConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, common.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "status", code)
	}
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", strings.TrimSpace(common.BearerPrefix))
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
