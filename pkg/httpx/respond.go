package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fjod/go_eshop/pkg/apperr"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type SuccessResponse struct {
	IsSuccess bool `json:"isSuccess"`
}

func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

func RespondError(w http.ResponseWriter, status int, code, message string) {
	RespondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// WriteError maps a classified error onto a status code. Unclassified errors
// are logged and hidden behind a generic 500.
func WriteError(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindNotFound:
		RespondError(w, http.StatusNotFound, kind.String(), err.Error())
	case apperr.KindValidation:
		RespondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   err.Error(),
			Code:    kind.String(),
			Details: apperr.FieldsOf(err),
		})
	case apperr.KindBusiness:
		RespondError(w, http.StatusBadRequest, kind.String(), err.Error())
	case apperr.KindTransient:
		log.WarnContext(r.Context(), "dependency unavailable", "path", r.URL.Path, "error", err)
		RespondError(w, http.StatusServiceUnavailable, kind.String(), "service temporarily unavailable")
	default:
		log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		RespondError(w, http.StatusInternalServerError, kind.String(), "internal server error")
	}
}
