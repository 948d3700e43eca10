package billing

import "errors"

var (
	ErrActiveSubscription  = errors.New("account already has an active subscription")
	ErrNoSubscription      = errors.New("no active subscription found")
	ErrVerification        = errors.New("payment verification failed")
	ErrProviderUnavailable = errors.New("billing provider unavailable")
	ErrMisconfigured       = errors.New("payment service configuration error")
	ErrActionInProgress    = errors.New("another billing action is in progress")
)
