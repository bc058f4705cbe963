package dispatch

import "errors"

// Outcomes of handling a command. Only ErrTransportFailure and ErrUnexpected
// reach the dead-letter path; the rest are dropped after logging.
var (
	ErrNotFound            = errors.New("notification not found")
	ErrAlreadySent         = errors.New("notification already sent")
	ErrNotEligible         = errors.New("notification not eligible for dispatch")
	ErrNoSenderAvailable   = errors.New("no sender available")
	ErrTransportFailure    = errors.New("transport failure")
	ErrConcurrencyConflict = errors.New("concurrent update")
	ErrUnexpected          = errors.New("unexpected failure")
)
