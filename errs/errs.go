// Package errs defines the sentinel errors shared across the module.
package errs

import (
	"errors"
)

var (
	// ErrInvalidURL indicates the input could not be parsed as a URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrNoExtractor indicates no registered extractor accepts the URL.
	ErrNoExtractor = errors.New("no suitable extractor found")
	// ErrMissingIdentifier indicates the URL matched an extractor but no
	// content identifier could be derived from it.
	ErrMissingIdentifier = errors.New("missing content identifier")
	// ErrFetch indicates a page or script fetch failed (transport error,
	// non-2xx status, or empty body).
	ErrFetch = errors.New("fetch failed")
	// ErrUnexpectedContentType indicates the watch page body does not
	// look like markup.
	ErrUnexpectedContentType = errors.New("unexpected content type")
	// ErrNoPlayerResponse indicates no known marker yielded a valid
	// player response payload.
	ErrNoPlayerResponse = errors.New("player response not found")
	// ErrNoFormats indicates extraction produced an empty format list.
	ErrNoFormats = errors.New("no formats found")
	// ErrNoSuitableFormat indicates no format satisfies the selection
	// criteria (both codec tags required).
	ErrNoSuitableFormat = errors.New("no suitable format found")
	// ErrCipherFailed indicates a signature or throttle token could
	// not be deciphered at all.
	ErrCipherFailed = errors.New("cipher failed")
	// ErrTooManyRetries indicates the transfer retry ceiling was reached.
	ErrTooManyRetries = errors.New("too many retries")
)
