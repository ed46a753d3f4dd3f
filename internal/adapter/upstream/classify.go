package upstream

import (
	"context"
	"errors"
	"net/http"

	"docrag/internal/domain"
)

// KindForStatus maps an HTTP status code to an upstream failure kind.
func KindForStatus(status int) domain.UpstreamKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.KindAuth
	case status == http.StatusPaymentRequired:
		return domain.KindQuota
	case status == http.StatusTooManyRequests:
		return domain.KindRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusTooEarly:
		return domain.KindUnavailable
	case status >= 500:
		return domain.KindUnavailable
	case status >= 400:
		return domain.KindRejected
	default:
		return domain.KindUnavailable
	}
}

// StatusError builds an UpstreamError from an HTTP status.
func StatusError(service, op string, status int, err error) *domain.UpstreamError {
	return &domain.UpstreamError{
		Service:    service,
		Op:         op,
		StatusCode: status,
		Kind:       KindForStatus(status),
		Err:        err,
	}
}

// Classify converts a transport-level error into an UpstreamError. Errors
// that are already classified pass through, as do cancellations.
func Classify(service, op string, err error) error {
	if err == nil {
		return nil
	}
	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, domain.ErrInputTooLarge) || errors.Is(err, domain.ErrInvalidInput) {
		return err
	}

	// deadlines, connection resets and undecodable replies are all worth another try
	return &domain.UpstreamError{Service: service, Op: op, Kind: domain.KindUnavailable, Err: err}
}
