package service

import "errors"

// Delivery failures, one per stage. Callers map them with errors.Is; the
// collaborator error stays wrapped alongside.
var (
	ErrSecrets        = errors.New("secrets unavailable")
	ErrAuthentication = errors.New("webhook authentication failed")
	ErrParse          = errors.New("webhook payload invalid")
	ErrStoreRead      = errors.New("conversation load failed")
	ErrCompletion     = errors.New("completion failed")
	ErrDelivery       = errors.New("reply delivery failed")
	ErrStoreWrite     = errors.New("conversation persist failed")
)
