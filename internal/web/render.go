package web

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hpungsan/calcard/internal/errors"
	"github.com/hpungsan/calcard/internal/logging"
)

// renderJSON writes data as JSON with the given status.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func errorBody(code, message string, status int, details map[string]any) map[string]any {
	obj := map[string]any{
		"code":    code,
		"message": message,
		"status":  status,
	}
	if details != nil {
		obj["details"] = details
	}
	return map[string]any{"error": obj}
}

// renderError maps err to its status code and writes the error envelope.
// Internal errors are logged and replaced by a generic message.
func renderError(w http.ResponseWriter, err error) {
	renderErrorWith(w, err, nil)
}

// renderErrorWith is renderError with extra top-level fields in the body.
func renderErrorWith(w http.ResponseWriter, err error, extra map[string]any) {
	var cErr *errors.Error
	if !stderrors.As(err, &cErr) {
		cErr = errors.NewInternal(err)
	}

	details := cErr.Details
	if cErr.Code == errors.ErrInternal {
		logging.Error("internal error", zap.Error(err))
		details = nil
	}

	body := errorBody(string(cErr.Code), cErr.Message, cErr.Status, details)
	for k, v := range extra {
		body[k] = v
	}
	renderJSON(w, cErr.Status, body)
}
