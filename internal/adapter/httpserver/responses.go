package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kallahq/kalla/internal/model"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, _ *http.Request, err error, details interface{}) {
	code := http.StatusInternalServerError
	codeStr := "INTERNAL"
	switch {
	case errors.Is(err, model.ErrInvalidArgument):
		code = http.StatusBadRequest
		codeStr = "INVALID_ARGUMENT"
	case errors.Is(err, model.ErrQueueFull):
		code = http.StatusServiceUnavailable
		codeStr = "QUEUE_FULL"
	case errors.Is(err, model.ErrSourceRegistration):
		code = http.StatusInternalServerError
		codeStr = "SOURCE_REGISTRATION"
	case errors.Is(err, model.ErrMatchSQL):
		code = http.StatusInternalServerError
		codeStr = "MATCH_SQL"
	case errors.Is(err, model.ErrEvidenceWrite):
		code = http.StatusInternalServerError
		codeStr = "EVIDENCE_WRITE"
	case errors.Is(err, model.ErrCallback):
		code = http.StatusInternalServerError
		codeStr = "CALLBACK"
	case errors.Is(err, model.ErrEngine):
		code = http.StatusInternalServerError
		codeStr = "ENGINE"
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{Code: codeStr, Message: err.Error(), Details: details}})
}

// WriteJSONExported lets other adapter packages (e.g. runner) reuse this
// package's JSON envelope conventions without duplicating them.
func WriteJSONExported(w http.ResponseWriter, status int, v interface{}) {
	writeJSON(w, status, v)
}

// WriteErrorExported lets other adapter packages write an error in this
// package's envelope shape, mapping the same model.Err* sentinels.
func WriteErrorExported(w http.ResponseWriter, r *http.Request, err error, details interface{}) {
	writeError(w, r, err, details)
}
