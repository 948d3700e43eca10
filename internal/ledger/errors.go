package ledger

import "errors"

var (
	ErrNotFound      = errors.New("account not found")
	ErrValidation    = errors.New("invalid ledger request")
	ErrQuotaExceeded = errors.New("monthly token quota exceeded")
)
