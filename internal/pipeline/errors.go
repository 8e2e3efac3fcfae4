package pipeline

import "errors"

// ErrInvalidURL is returned when a submission's orig_url or result_url fails
// canonicalization. Nothing is written when it is returned.
var ErrInvalidURL = errors.New("invalid url in submission")

// ErrUnknownFailurePolicy is returned by ParseFailurePolicy.
var ErrUnknownFailurePolicy = errors.New("unknown failure policy")
