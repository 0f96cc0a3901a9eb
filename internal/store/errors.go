package store

import "errors"

// Storage errors callers can test with errors.Is.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateBrokerRef indicates a trade with the same broker
	// reference already exists for the account.
	ErrDuplicateBrokerRef = errors.New("duplicate broker reference")
	// ErrNoCredentials indicates the account has no stored broker credentials.
	ErrNoCredentials = errors.New("no credentials stored for account")
)
