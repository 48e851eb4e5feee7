package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/ais-clarity/internal/ledger"
	"github.com/sells-group/ais-clarity/internal/reconcile"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := ErrorBody{Error: err.Error()}
	if k := reconcile.KindOf(err); k != reconcile.KindUnknown {
		body.Kind = k.String()
	}
	if status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorBody{Error: msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch reconcile.KindOf(err) {
	case reconcile.KindEntryNotFound:
		return http.StatusNotFound
	case reconcile.KindAlreadyInFlight, reconcile.KindStaleResult:
		return http.StatusConflict
	case reconcile.KindCollaboratorUnavailable:
		return http.StatusBadGateway
	case reconcile.KindInvalidVerdictStatus, reconcile.KindInvalidVerdict, reconcile.KindInvalidConfidence:
		return http.StatusUnprocessableEntity
	case reconcile.KindPersist:
		return http.StatusInternalServerError
	}

	switch {
	case errors.Is(err, ledger.ErrClientNotFound), errors.Is(err, ledger.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrDuplicateID), errors.Is(err, ledger.ErrStaleGeneration):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
