package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"

	"docrag/internal/domain"
)

// retryAfterSeconds is suggested to clients when a provider is saturated.
const retryAfterSeconds = 30

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps an error to its HTTP status and machine-readable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, "unsupported_file_type"
	case errors.Is(err, domain.ErrEmptyDocument):
		return http.StatusUnprocessableEntity, "empty_document"
	case errors.Is(err, domain.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge, "input_too_large"
	case errors.Is(err, domain.ErrUpstreamAuth):
		return http.StatusBadGateway, "upstream_auth"
	case errors.Is(err, domain.ErrQuotaExhausted):
		return http.StatusBadGateway, "upstream_quota"
	case errors.Is(err, domain.ErrUpstreamRejected):
		return http.StatusBadGateway, "upstream_rejected"
	case errors.Is(err, domain.ErrRateLimited), errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, "upstream_unavailable"
	case errors.Is(err, domain.ErrNothingIndexed):
		return http.StatusNotFound, "nothing_indexed"
	case errors.Is(err, domain.ErrIncompatibleCollection):
		return http.StatusConflict, "incompatible_collection"
	case errors.Is(err, domain.ErrDimensionMismatch):
		return http.StatusConflict, "dimension_mismatch"
	case errors.Is(err, domain.ErrStoreLocked):
		return http.StatusServiceUnavailable, "store_locked"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		msg = "internal error"
	}
	if code == "upstream_unavailable" {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	if errors.Is(err, domain.ErrNothingIndexed) {
		msg = "no documents have been ingested yet; upload files to /ingest/upload first"
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
