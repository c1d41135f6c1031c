package domain

import "errors"

var (
	// Record errors
	ErrNegativeAmount       = errors.New("amount must not be negative")
	ErrDuplicateTransaction = errors.New("transaction id is not unique")
	ErrUnknownKind          = errors.New("unknown transaction kind")

	// Account errors
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountLocked     = errors.New("account is locked")
	ErrInsufficientFunds = errors.New("insufficient available funds")

	// Dispute errors
	ErrTransactionNotFound = errors.New("disputed transaction not found")
	ErrClientMismatch      = errors.New("transaction belongs to another client")
	ErrAlreadyDisputed     = errors.New("transaction is already disputed")
	ErrNotDisputed         = errors.New("transaction is not disputed")
	ErrChargedBack         = errors.New("transaction was charged back")

	// Snapshot errors
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// Invariant errors, never caused by input
	ErrInvariantViolation = errors.New("account invariant violated")
	ErrTotalMismatch      = errors.New("total does not equal available plus held")
	ErrNegativeHeld       = errors.New("held funds are negative")
)

// Reason returns a short stable label for a rejection error, suitable
// for metric labels.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrNegativeAmount):
		return "negative_amount"
	case errors.Is(err, ErrDuplicateTransaction):
		return "duplicate_tx"
	case errors.Is(err, ErrUnknownKind):
		return "unknown_kind"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrTransactionNotFound):
		return "tx_not_found"
	case errors.Is(err, ErrClientMismatch):
		return "client_mismatch"
	case errors.Is(err, ErrAlreadyDisputed):
		return "already_disputed"
	case errors.Is(err, ErrNotDisputed):
		return "not_disputed"
	case errors.Is(err, ErrChargedBack):
		return "charged_back"
	default:
		return "other"
	}
}
