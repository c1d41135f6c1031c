package usecase

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/infrastructure/metrics"
)

// Policy holds the configurable points of the transaction rules.
type Policy struct {
	// AllowDepositOnLocked lets deposits credit a locked account.
	// Withdrawals are always refused once an account is locked.
	AllowDepositOnLocked bool
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{AllowDepositOnLocked: true}
}

// Outcome is the result of processing one record. A nil Reason means
// the record was applied.
type Outcome struct {
	Record domain.Record
	Reason error
}

// Applied reports whether the record changed engine state.
func (o Outcome) Applied() bool {
	return o.Reason == nil
}

// Stats summarises a run.
type Stats struct {
	Applied   int
	Rejected  int
	Malformed int
	Reasons   map[string]int
}

// Engine applies transaction records to client accounts. It owns all
// account and dispute state and is not safe for concurrent use: records
// must be processed one at a time in stream order.
type Engine struct {
	policy   Policy
	reporter RejectionReporter
	metrics  *metrics.Metrics

	accounts map[uint16]*domain.ClientAccount
	seen     []uint16
	disputes map[uint32]*domain.DisputeEntry
	// withdrawals reserves accepted withdrawal ids; they are not disputable.
	withdrawals map[uint32]struct{}

	applied  int
	rejected map[string]int
}

// NewEngine creates an empty Engine. reporter and metrics may be nil.
func NewEngine(policy Policy, reporter RejectionReporter, metrics *metrics.Metrics) *Engine {
	return &Engine{
		policy:      policy,
		reporter:    reporter,
		metrics:     metrics,
		accounts:    make(map[uint16]*domain.ClientAccount),
		disputes:    make(map[uint32]*domain.DisputeEntry),
		withdrawals: make(map[uint32]struct{}),
		rejected:    make(map[string]int),
	}
}

// Process applies rec or rejects it. Rejections never fail the call;
// they are returned in the Outcome and reported to the diagnostics
// reporter. The client account named by rec exists afterwards either way.
func (e *Engine) Process(rec domain.Record) Outcome {
	acc, existed := e.getOrCreateAccount(rec.Client())

	var err error
	switch rec.Kind() {
	case domain.KindDeposit:
		err = e.deposit(acc, rec)
	case domain.KindWithdrawal:
		err = e.withdraw(acc, existed, rec)
	case domain.KindDispute, domain.KindResolve, domain.KindChargeback:
		err = e.settle(acc, rec)
	default:
		err = fmt.Errorf("%w: %s", domain.ErrUnknownKind, rec.Kind())
	}

	if err != nil {
		e.reject(rec, err)
		return Outcome{Record: rec, Reason: err}
	}

	if ierr := acc.CheckInvariants(); ierr != nil {
		panic(fmt.Errorf("%w: client %d after %s: %w", domain.ErrInvariantViolation, acc.ClientID, rec, ierr))
	}

	e.applied++
	if e.metrics != nil {
		e.metrics.RecordsProcessed.WithLabelValues(rec.Kind().String()).Inc()
	}

	return Outcome{Record: rec}
}

func (e *Engine) deposit(acc *domain.ClientAccount, rec domain.Record) error {
	amount, _ := rec.Amount()
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s", domain.ErrNegativeAmount, amount)
	}

	if e.isKnownTx(rec.Tx()) {
		return fmt.Errorf("%w: tx %d", domain.ErrDuplicateTransaction, rec.Tx())
	}

	if acc.Locked && !e.policy.AllowDepositOnLocked {
		return fmt.Errorf("%w: client %d", domain.ErrAccountLocked, acc.ClientID)
	}

	acc.Credit(amount)
	e.disputes[rec.Tx()] = domain.NewDisputeEntry(rec.Tx(), rec.Client(), amount)

	return nil
}

func (e *Engine) withdraw(acc *domain.ClientAccount, existed bool, rec domain.Record) error {
	amount, _ := rec.Amount()
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s", domain.ErrNegativeAmount, amount)
	}

	if e.isKnownTx(rec.Tx()) {
		return fmt.Errorf("%w: tx %d", domain.ErrDuplicateTransaction, rec.Tx())
	}

	if !existed {
		return fmt.Errorf("%w: client %d", domain.ErrAccountNotFound, rec.Client())
	}

	if err := acc.ValidateWithdrawal(amount); err != nil {
		return fmt.Errorf("%w: client %d, available %s, requested %s", err, acc.ClientID, acc.Available, amount)
	}

	acc.Debit(amount)
	e.withdrawals[rec.Tx()] = struct{}{}

	return nil
}

// settle handles dispute, resolve and chargeback records against the
// deposit they reference.
func (e *Engine) settle(acc *domain.ClientAccount, rec domain.Record) error {
	entry, ok := e.disputes[rec.Tx()]
	if !ok {
		return fmt.Errorf("%w: tx %d", domain.ErrTransactionNotFound, rec.Tx())
	}

	if err := entry.ValidateTransition(rec.Kind(), rec.Client()); err != nil {
		return fmt.Errorf("%w: tx %d", err, rec.Tx())
	}

	switch rec.Kind() {
	case domain.KindDispute:
		acc.Hold(entry.Amount)
		if e.metrics != nil {
			e.metrics.OpenDisputes.Inc()
		}
	case domain.KindResolve:
		acc.Release(entry.Amount)
		if e.metrics != nil {
			e.metrics.OpenDisputes.Dec()
		}
	case domain.KindChargeback:
		wasLocked := acc.Locked
		acc.Reverse(entry.Amount)
		if e.metrics != nil {
			e.metrics.OpenDisputes.Dec()
			if !wasLocked {
				e.metrics.AccountsLocked.Inc()
			}
		}
	}

	entry.Status = entry.Next(rec.Kind())

	return nil
}

func (e *Engine) reject(rec domain.Record, err error) {
	reason := domain.Reason(err)
	e.rejected[reason]++

	if e.metrics != nil {
		e.metrics.RecordsRejected.WithLabelValues(rec.Kind().String(), reason).Inc()
	}
	if e.reporter != nil {
		e.reporter.Rejected(rec, err)
	}
}

func (e *Engine) isKnownTx(tx uint32) bool {
	if _, ok := e.disputes[tx]; ok {
		return true
	}
	_, ok := e.withdrawals[tx]
	return ok
}

func (e *Engine) getOrCreateAccount(client uint16) (*domain.ClientAccount, bool) {
	if acc, ok := e.accounts[client]; ok {
		return acc, true
	}

	acc := domain.NewClientAccount(client)
	e.accounts[client] = acc
	e.seen = append(e.seen, client)

	if e.metrics != nil {
		e.metrics.Accounts.Inc()
	}

	return acc, false
}

// Account returns a copy of the account for client.
func (e *Engine) Account(client uint16) (domain.ClientAccount, bool) {
	acc, ok := e.accounts[client]
	if !ok {
		return domain.ClientAccount{}, false
	}
	return *acc, true
}

// Snapshot returns copies of all accounts in the requested order.
// It does not modify engine state.
func (e *Engine) Snapshot(order SnapshotOrder) []domain.ClientAccount {
	accounts := make([]domain.ClientAccount, 0, len(e.seen))
	for _, id := range e.seen {
		accounts = append(accounts, *e.accounts[id])
	}

	if order == SnapshotAscending {
		slices.SortFunc(accounts, func(a, b domain.ClientAccount) int {
			return cmp.Compare(a.ClientID, b.ClientID)
		})
	}

	return accounts
}

// Stats returns the applied and rejected counts so far.
func (e *Engine) Stats() Stats {
	reasons := make(map[string]int, len(e.rejected))
	rejected := 0
	for reason, n := range e.rejected {
		reasons[reason] = n
		rejected += n
	}

	return Stats{
		Applied:  e.applied,
		Rejected: rejected,
		Reasons:  reasons,
	}
}
