package api

import (
	"encoding/json"
	"net/http"

	"datalink/internal/errs"
	"datalink/internal/logger"
)

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindValidation, errs.ErrKindEmptyQuery:
		return http.StatusBadRequest
	case errs.ErrKindNoActiveConnection:
		return http.StatusConflict
	case errs.ErrKindOperationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).ErrorWith("request failed", err, map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
		})
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: errs.KindOf(err).String()})
}

// decodeJSON reads the request body into v; a malformed body is a
// validation error.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Validation("invalid request body: %v", err)
	}
	return nil
}
