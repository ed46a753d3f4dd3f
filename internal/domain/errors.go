package domain

import (
	"errors"
	"fmt"
)

// Input errors. Rejected immediately, never retried.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmptyDocument   = errors.New("document has no extractable text")
	ErrInputTooLarge   = errors.New("input too large")
)

// Upstream errors. UpstreamError values match these through errors.Is.
var (
	ErrRateLimited         = errors.New("upstream rate limited")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamAuth        = errors.New("upstream authentication failed")
	ErrQuotaExhausted      = errors.New("upstream quota exhausted")
	ErrUpstreamRejected    = errors.New("upstream rejected request")
)

// State errors.
var (
	// ErrNothingIndexed means the collection holds no records yet. Callers
	// use it to tell an empty store apart from a search with no good match.
	ErrNothingIndexed = errors.New("nothing indexed yet")

	// ErrIncompatibleCollection means an existing collection was built with a
	// different embedding model, dimension or metric.
	ErrIncompatibleCollection = errors.New("incompatible collection")

	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrStoreLocked       = errors.New("store is locked by another process")
)

type UpstreamKind int

const (
	KindUnavailable UpstreamKind = iota
	KindRateLimited
	KindAuth
	KindQuota
	KindRejected
)

func (k UpstreamKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindAuth:
		return "auth"
	case KindQuota:
		return "quota"
	case KindRejected:
		return "rejected"
	default:
		return "unavailable"
	}
}

// UpstreamError describes a failed call to an embedding or generation service.
type UpstreamError struct {
	Service    string
	Op         string
	StatusCode int
	Kind       UpstreamKind
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: %s (status %d): %v", e.Service, e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Service, e.Op, e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	switch e.Kind {
	case KindRateLimited:
		return target == ErrRateLimited
	case KindAuth:
		return target == ErrUpstreamAuth
	case KindQuota:
		return target == ErrQuotaExhausted
	case KindRejected:
		return target == ErrUpstreamRejected
	default:
		return target == ErrUpstreamUnavailable
	}
}

// Retryable reports whether another attempt may succeed.
func (e *UpstreamError) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindUnavailable
}

// IsRetryable reports whether err is a transient upstream failure.
func IsRetryable(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Retryable()
	}
	return false
}
