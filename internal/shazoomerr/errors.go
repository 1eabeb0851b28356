// Package shazoomerr defines the sentinel error taxonomy shared by every
// stage of the fingerprinting pipeline, so callers can classify a failure
// with errors.Is regardless of which component raised it.
package shazoomerr

import (
	"errors"
	"fmt"

	"github.com/mdobak/go-xerrors"
)

var (
	// ErrEmptySignal means the input contains no non-zero sample.
	ErrEmptySignal = errors.New("shazoom: empty or silent signal")
	// ErrTooShort means the input is shorter than 0.5s.
	ErrTooShort = errors.New("shazoom: audio shorter than minimum duration")
	// ErrDecodeFailure means the container/codec could not be decoded.
	ErrDecodeFailure = errors.New("shazoom: failed to decode audio")
	// ErrInsufficientFingerprints means fewer than 5 hashes survived ingest, even after retry.
	ErrInsufficientFingerprints = errors.New("shazoom: insufficient fingerprints generated")
	// ErrNoMatch means the matcher found no plausible (track, offset) pair.
	ErrNoMatch = errors.New("shazoom: no match found")
	// ErrEmptyQuery means the query fragment produced fewer than 5 hashes.
	ErrEmptyQuery = errors.New("shazoom: query produced too few hashes")
	// ErrStoreError wraps a failure from the FingerprintStore.
	ErrStoreError = errors.New("shazoom: store error")
	// ErrRefinementFailure is never surfaced to callers; logged and swallowed.
	ErrRefinementFailure = errors.New("shazoom: refinement failed")
	// ErrTimeout means the query exceeded its wall-clock budget.
	ErrTimeout = errors.New("shazoom: query timed out")
)

// Wrap attaches a stack trace to err via go-xerrors while keeping sentinel
// sits reachable through errors.Is(wrapped, sentinel).
func Wrap(sentinel error, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", sentinel, xerrors.New(err))
}

// WrapMsg is like Wrap but with a formatted message instead of a wrapped error.
func WrapMsg(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
