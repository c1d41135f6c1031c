package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind identifies which rule set a Record is processed with.
type Kind uint8

const (
	KindDeposit Kind = iota + 1
	KindWithdrawal
	KindDispute
	KindResolve
	KindChargeback
)

// String returns the lowercase wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindDeposit:
		return "deposit"
	case KindWithdrawal:
		return "withdrawal"
	case KindDispute:
		return "dispute"
	case KindResolve:
		return "resolve"
	case KindChargeback:
		return "chargeback"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// CarriesAmount reports whether records of this kind have an amount.
func (k Kind) CarriesAmount() bool {
	return k == KindDeposit || k == KindWithdrawal
}

// Record is one shape-validated input line. Records are values and
// never change after construction.
type Record struct {
	kind      Kind
	client    uint16
	tx        uint32
	amount    decimal.Decimal
	hasAmount bool
}

// NewDeposit creates a deposit record.
func NewDeposit(client uint16, tx uint32, amount decimal.Decimal) Record {
	return Record{kind: KindDeposit, client: client, tx: tx, amount: amount, hasAmount: true}
}

// NewWithdrawal creates a withdrawal record.
func NewWithdrawal(client uint16, tx uint32, amount decimal.Decimal) Record {
	return Record{kind: KindWithdrawal, client: client, tx: tx, amount: amount, hasAmount: true}
}

// NewDispute creates a dispute against the deposit tx.
func NewDispute(client uint16, tx uint32) Record {
	return Record{kind: KindDispute, client: client, tx: tx}
}

// NewResolve creates a resolve for the disputed deposit tx.
func NewResolve(client uint16, tx uint32) Record {
	return Record{kind: KindResolve, client: client, tx: tx}
}

// NewChargeback creates a chargeback for the disputed deposit tx.
func NewChargeback(client uint16, tx uint32) Record {
	return Record{kind: KindChargeback, client: client, tx: tx}
}

func (r Record) Kind() Kind      { return r.kind }
func (r Record) Client() uint16  { return r.client }
func (r Record) Tx() uint32      { return r.tx }
func (r Record) HasAmount() bool { return r.hasAmount }

// Amount returns the record amount and whether it is present.
func (r Record) Amount() (decimal.Decimal, bool) {
	return r.amount, r.hasAmount
}

func (r Record) String() string {
	if r.hasAmount {
		return fmt.Sprintf("%s client=%d tx=%d amount=%s", r.kind, r.client, r.tx, r.amount)
	}
	return fmt.Sprintf("%s client=%d tx=%d", r.kind, r.client, r.tx)
}
