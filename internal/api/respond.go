package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/logger"
	"github.com/DrNicoArt/scaleviewer/internal/models"
)

// MaxBodySize caps request bodies.
const MaxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnw("Failed to encode response", logger.FieldError, err)
	}
}

// statusFor maps error kinds onto HTTP status codes.
func statusFor(err error) int {
	var metricErr *errors.InvalidMetricError
	var schemaErr *errors.SchemaMismatchError
	switch {
	case errors.As(err, &metricErr):
		return http.StatusBadRequest
	case errors.As(err, &schemaErr):
		return http.StatusUnprocessableEntity
	case errors.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.IsInvalidRequestError(err):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrCanceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := models.ErrorResponse{Error: err.Error(), Hints: errors.GetAllHints(err)}

	var metricErr *errors.InvalidMetricError
	if errors.As(err, &metricErr) {
		body.Metric = metricErr.Name
	}
	var schemaErr *errors.SchemaMismatchError
	if errors.As(err, &schemaErr) {
		body.Properties = schemaErr.Properties
	}

	if status == http.StatusInternalServerError {
		logger.Errorw("Request failed", logger.FieldPath, r.URL.Path, logger.FieldError, err)
		body = models.ErrorResponse{Error: "internal error"}
	} else {
		logger.Debugw("Request rejected", logger.FieldPath, r.URL.Path, "status", status, logger.FieldError, err)
	}
	writeJSON(w, status, body)
}

// decodeBody reads an optional JSON body into dst. An empty body leaves dst
// untouched.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return errors.WithHint(
			errors.NewInvalidRequestError("invalid JSON body: %v", err),
			"send a JSON object with the documented fields",
		)
	}
	return nil
}
