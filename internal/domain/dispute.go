package domain

import (
	"github.com/shopspring/decimal"
)

type DisputeStatus string

const (
	DisputeStatusUndisputed  DisputeStatus = "undisputed"
	DisputeStatusDisputed    DisputeStatus = "disputed"
	DisputeStatusChargedBack DisputeStatus = "charged_back"
)

// DisputeEntry tracks an accepted deposit so later dispute-family
// records can act on it.
type DisputeEntry struct {
	Tx     uint32
	Client uint16
	Amount decimal.Decimal
	Status DisputeStatus
}

// NewDisputeEntry records an accepted deposit as undisputed.
func NewDisputeEntry(tx uint32, client uint16, amount decimal.Decimal) *DisputeEntry {
	return &DisputeEntry{
		Tx:     tx,
		Client: client,
		Amount: amount,
		Status: DisputeStatusUndisputed,
	}
}

// ValidateTransition checks that a record of kind may move the entry
// forward for client. Undisputed -> Disputed -> Undisputed|ChargedBack.
func (e *DisputeEntry) ValidateTransition(kind Kind, client uint16) error {
	if e.Client != client {
		return ErrClientMismatch
	}
	if e.Status == DisputeStatusChargedBack {
		return ErrChargedBack
	}

	switch kind {
	case KindDispute:
		if e.Status != DisputeStatusUndisputed {
			return ErrAlreadyDisputed
		}
	case KindResolve, KindChargeback:
		if e.Status != DisputeStatusDisputed {
			return ErrNotDisputed
		}
	default:
		return ErrUnknownKind
	}

	return nil
}

// Next returns the status the entry holds after an accepted record of kind.
func (e *DisputeEntry) Next(kind Kind) DisputeStatus {
	switch kind {
	case KindDispute:
		return DisputeStatusDisputed
	case KindResolve:
		return DisputeStatusUndisputed
	case KindChargeback:
		return DisputeStatusChargedBack
	default:
		return e.Status
	}
}
