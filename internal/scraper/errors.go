package scraper

import "errors"

var (
	// ErrUnauthorized is returned when the coordinator rejects the API key.
	ErrUnauthorized = errors.New("coordinator rejected the api key")

	// ErrRejected is returned when the coordinator answers 400 to a submission.
	ErrRejected = errors.New("coordinator rejected the submission")

	// ErrUnexpectedStatus is returned for any other non-success status.
	ErrUnexpectedStatus = errors.New("unexpected status from coordinator")

	// ErrNotBadge is returned when an image is not 88x31 (within tolerance).
	ErrNotBadge = errors.New("image is not a badge")

	// ErrHTTPStatus is returned when a page or image fetch does not answer 2xx.
	ErrHTTPStatus = errors.New("unexpected http status")
)
