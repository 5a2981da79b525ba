package esign

import "errors"

var (
	ErrContractNotFound = errors.New("contract not found")
	ErrRequestNotFound  = errors.New("invalid signature request")
	ErrRequestExpired   = errors.New("signature request has expired")
	ErrAlreadySigned    = errors.New("document already signed")
	ErrRequestCancelled = errors.New("signature request has been cancelled")

	ErrCannotCancelSigned = errors.New("cannot cancel signed document")
	ErrReminderNotPending = errors.New("can only send reminders for pending signatures")

	// ErrDuplicateToken surfaces a token-hash unique violation from the
	// store; the issuer retries with a fresh token.
	ErrDuplicateToken = errors.New("signing token already in use")
)
