package domain

import (
	"errors"
	"fmt"
)

// Scoring and watchlist errors.
var (
	// ErrInvalidIdentifier is returned for malformed addresses or domains,
	// before any ledger call is made.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrDomainResolutionFailed is returned when a .sol name cannot be resolved.
	ErrDomainResolutionFailed = errors.New("domain resolution failed")

	// ErrNoActivity is returned when no signatures are observed for an account.
	// Such accounts are not scored.
	ErrNoActivity = errors.New("no activity found for account")

	// ErrUnreachable is returned when the ledger query failed.
	ErrUnreachable = errors.New("ledger unreachable")

	// ErrTimeout is returned when a ledger query or a batch exceeded its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrNotFound is returned when the ledger rejects the account key.
	ErrNotFound = errors.New("account not found")

	// ErrBatchTooLarge is returned when a batch exceeds the size cap.
	ErrBatchTooLarge = errors.New("batch too large")

	// ErrAlreadyWatched is returned when adding an account that is already watched.
	ErrAlreadyWatched = errors.New("account already watched")

	// ErrNotWatched is returned when removing an account that is not watched.
	ErrNotWatched = errors.New("account not watched")

	// ErrUnauthorized is returned for administrative calls without a valid credential.
	ErrUnauthorized = errors.New("unauthorized")
)

// AccountError attaches the offending identifier to an error.
type AccountError struct {
	Account string
	Err     error
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("%s: %v", e.Account, e.Err)
}

func (e *AccountError) Unwrap() error {
	return e.Err
}

// WrapAccount wraps err with the identifier unless it already carries one.
func WrapAccount(account string, err error) error {
	if err == nil {
		return nil
	}
	var ae *AccountError
	if errors.As(err, &ae) {
		return err
	}
	return &AccountError{Account: account, Err: err}
}

// IsRetryable reports whether err is a transient ledger condition.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnreachable)
}
