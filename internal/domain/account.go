package domain

import (
	"github.com/shopspring/decimal"
)

// OutputPlaces is the number of decimal places amounts are rounded to
// when an account leaves the engine.
const OutputPlaces = 4

// ClientAccount is the balance state of a single client.
type ClientAccount struct {
	ClientID  uint16
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool
}

// NewClientAccount returns an unlocked account with zero balances.
func NewClientAccount(clientID uint16) *ClientAccount {
	return &ClientAccount{
		ClientID:  clientID,
		Available: decimal.Zero,
		Held:      decimal.Zero,
		Total:     decimal.Zero,
	}
}

// ValidateWithdrawal checks if amount can leave the available balance.
func (a *ClientAccount) ValidateWithdrawal(amount decimal.Decimal) error {
	if a.Locked {
		return ErrAccountLocked
	}
	if a.Available.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// Credit adds amount to available and total funds.
func (a *ClientAccount) Credit(amount decimal.Decimal) {
	a.Available = a.Available.Add(amount)
	a.Total = a.Total.Add(amount)
}

// Debit removes amount from available and total funds.
func (a *ClientAccount) Debit(amount decimal.Decimal) {
	a.Available = a.Available.Sub(amount)
	a.Total = a.Total.Sub(amount)
}

// Hold moves amount from available to held funds.
func (a *ClientAccount) Hold(amount decimal.Decimal) {
	a.Available = a.Available.Sub(amount)
	a.Held = a.Held.Add(amount)
}

// Release moves amount from held back to available funds.
func (a *ClientAccount) Release(amount decimal.Decimal) {
	a.Held = a.Held.Sub(amount)
	a.Available = a.Available.Add(amount)
}

// Reverse removes held funds from the account and locks it.
func (a *ClientAccount) Reverse(amount decimal.Decimal) {
	a.Held = a.Held.Sub(amount)
	a.Total = a.Total.Sub(amount)
	a.Locked = true
}

// CheckInvariants verifies total == available + held and held >= 0.
func (a *ClientAccount) CheckInvariants() error {
	if !a.Available.Add(a.Held).Equal(a.Total) {
		return ErrTotalMismatch
	}
	if a.Held.IsNegative() {
		return ErrNegativeHeld
	}
	return nil
}

// Rounded returns a copy with every amount rounded to OutputPlaces.
func (a ClientAccount) Rounded() ClientAccount {
	a.Available = a.Available.Round(OutputPlaces)
	a.Held = a.Held.Round(OutputPlaces)
	a.Total = a.Total.Round(OutputPlaces)
	return a
}

// FormatAmount renders an amount with exactly OutputPlaces decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(OutputPlaces)
}
