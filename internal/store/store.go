// Package store implements the posting store accessors the query core reads
// from. Every backend answers Lookup(term) with a URL → term-frequency map;
// an unknown term is an empty map, while transport and auth failures are
// returned as errors wrapping ErrStoreUnavailable so they can never be
// mistaken for a query with no matches.
package store

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

// Store is a posting store with a lifecycle.
type Store interface {
	Lookup(ctx context.Context, term string) (map[string]int, error)
	Close() error
}

// Reason classifies why a store could not be opened.
type Reason string

const (
	ReasonConfigMissing Reason = "config_missing"
	ReasonMalformedURI  Reason = "malformed_uri"
	ReasonAuthRejected  Reason = "auth_rejected"
	ReasonUnreachable   Reason = "unreachable"
)

// OpenError is returned by Open in place of a nil handle.
type OpenError struct {
	Backend string
	Reason  Reason
	Err     error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("opening %s store (%s): %v", e.Backend, e.Reason, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

func newOpenError(backend string, err error) *OpenError {
	reason := ReasonUnreachable
	switch {
	case errors.Is(err, apperrors.ErrConfigMissing):
		reason = ReasonConfigMissing
	case errors.Is(err, apperrors.ErrMalformedURI):
		reason = ReasonMalformedURI
	case errors.Is(err, apperrors.ErrAuthRejected):
		reason = ReasonAuthRejected
	}
	return &OpenError{Backend: backend, Reason: reason, Err: err}
}

func unavailable(backend, term string, err error) error {
	return fmt.Errorf("%w: %s lookup of %q: %v", apperrors.ErrStoreUnavailable, backend, term, err)
}
