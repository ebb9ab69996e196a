package quota

import (
	"errors"
	"fmt"
)

// Failure taxonomy. Callers classify with errors.Is; only lock timeouts and
// store failures are safe to retry.
var (
	// ErrUnknownQuotaType marks a quota type name that is not in the catalog.
	ErrUnknownQuotaType = errors.New("quota: unknown quota type")
	// ErrInvalidLimit marks a negative limit value.
	ErrInvalidLimit = errors.New("quota: invalid limit")
	// ErrInvalidAmount marks a zero or negative increment amount.
	ErrInvalidAmount = errors.New("quota: invalid amount")
	// ErrQuotaExceeded marks a reservation refused by the guard.
	ErrQuotaExceeded = errors.New("quota: quota exceeded")
	// ErrLockTimeout marks a per-key lock that could not be acquired in time.
	ErrLockTimeout = errors.New("quota: lock timeout")
	// ErrStoreUnavailable marks a transient storage failure.
	ErrStoreUnavailable = errors.New("quota: store unavailable")
)

// IsRetryable reports whether the caller may retry the operation with backoff.
// Quota-exceeded is never retryable and must not be mistaken for contention.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrStoreUnavailable)
}

// QuotaExceededError is returned by the guard when a reservation is rejected.
// The message carries no numbers; the fields do, for logs and admin surfaces.
type QuotaExceededError struct {
	QuotaType string
	Limit     Limit
	Usage     int64
}

// Error implements the error interface.
func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota: limit reached for %s", e.QuotaType)
}

// Is matches the ErrQuotaExceeded sentinel.
func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// storeFailure wraps a storage error so callers can classify it as retryable.
func storeFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
