package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so the pipeline can decide between retry, dead-letter
// and fallback without string matching.
//
// - ErrNotFound: entity does not exist in store
// - ErrSequenceConflict: optimistic chain-head update lost the race, re-read and retry
// - ErrTransient: persistence failed for a reason worth retrying (connection, timeout)
// - ErrSigningKeyUnavailable: signing key could not be obtained, fatal for the event
// - ErrClassification: classification service failed, fall back to most conservative label
// - ErrUnavailable: service or resource temporarily unavailable
var (
	ErrNotFound              = errors.New("not found")
	ErrSequenceConflict      = errors.New("sequence conflict")
	ErrTransient             = errors.New("transient persistence failure")
	ErrSigningKeyUnavailable = errors.New("signing key unavailable")
	ErrClassification        = errors.New("classification failed")
	ErrUnavailable           = errors.New("unavailable")
)
