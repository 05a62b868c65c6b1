// Package provider defines the uniform contract every geocoding backend is
// wrapped behind. Adapters own all provider-specific concerns: wire formats,
// credentials, rate limits, and the mapping of native confidence signals
// onto the shared [0,1] scale.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/couchcryptid/place-resolver/internal/domain"
)

// Settings controls a provider's participation in the chain.
type Settings struct {
	Enabled bool
	// Priority orders providers in the chain; 1 is tried first.
	Priority int
}

// QueryOptions are passed through to the backend call.
type QueryOptions struct {
	// Limit caps how many matches the backend is asked for.
	Limit int
	// Language is an optional BCP 47 hint for result names.
	Language string
}

// Adapter wraps one external geocoding backend. Query returns candidates
// ordered best-match first, confidence already normalized to [0,1]. A
// successful call with zero matches returns an empty slice and a nil error.
type Adapter interface {
	Name() string
	Query(ctx context.Context, text string, opts QueryOptions) ([]domain.Candidate, error)
}

// Kind classifies adapter failures so the chain can log them distinctly.
// All kinds are soft from the chain's perspective; any single provider is
// allowed to be unavailable.
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindUnavailable Kind = "unavailable"
	KindAuth        Kind = "auth"
	KindMalformed   Kind = "malformed"
)

// Error is a classified adapter failure.
type Error struct {
	Provider string
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s provider %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err as a classified provider failure.
func NewError(provider string, kind Kind, err error) *Error {
	return &Error{Provider: provider, Kind: kind, Err: err}
}

// KindOf extracts the failure kind from an adapter error, classifying bare
// transport errors by their timeout behavior.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return ClassifyTransport(err)
}

// ClassifyTransport maps an http.Client.Do error to a failure kind.
func ClassifyTransport(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return KindTimeout
	}
	return KindUnavailable
}
