package usecase_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/infrastructure/metrics"
	"github.com/iho/txengine/internal/usecase"
	"github.com/iho/txengine/internal/usecase/mocks"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAccount(t *testing.T, e *usecase.Engine, client uint16, available, held, total string, locked bool) {
	t.Helper()

	acc, ok := e.Account(client)
	if !ok {
		t.Fatalf("client %d does not exist", client)
	}
	if !acc.Available.Equal(dec(available)) {
		t.Errorf("client %d: expected available %s, got %s", client, available, acc.Available)
	}
	if !acc.Held.Equal(dec(held)) {
		t.Errorf("client %d: expected held %s, got %s", client, held, acc.Held)
	}
	if !acc.Total.Equal(dec(total)) {
		t.Errorf("client %d: expected total %s, got %s", client, total, acc.Total)
	}
	if acc.Locked != locked {
		t.Errorf("client %d: expected locked=%v, got %v", client, locked, acc.Locked)
	}
}

func processAll(e *usecase.Engine, recs ...domain.Record) []usecase.Outcome {
	outcomes := make([]usecase.Outcome, 0, len(recs))
	for _, rec := range recs {
		outcomes = append(outcomes, e.Process(rec))
	}
	return outcomes
}

func TestEngine_DepositsAndWithdrawals(t *testing.T) {
	e := usecase.NewEngine(usecase.DefaultPolicy(), nil, nil)

	outcomes := processAll(e,
		domain.NewDeposit(1, 1, dec("1.0")),
		domain.NewDeposit(2, 2, dec("2.0")),
		domain.NewDeposit(1, 3, dec("2.0")),
		domain.NewWithdrawal(1, 4, dec("1.5")),
		domain.NewWithdrawal(2, 5, dec("3.0")),
	)

	for i, o := range outcomes[:4] {
		if !o.Applied() {
			t.Fatalf("record %d unexpectedly rejected: %v", i, o.Reason)
		}
	}
	if !errors.Is(outcomes[4].Reason, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", outcomes[4].Reason)
	}

	assertAccount(t, e, 1, "1.5", "0", "1.5", false)
	assertAccount(t, e, 2, "2.0", "0", "2.0", false)
}

func TestEngine_DisputeHoldsFunds(t *testing.T) {
	e := usecase.NewEngine(usecase.DefaultPolicy(), nil, nil)

	processAll(e,
		domain.NewDeposit(1, 1, dec("5.0")),
		domain.NewDispute(1, 1),
	)

	assertAccount(t, e, 1, "0", "5.0", "5.0", false)
}

func TestEngine_ChargebackLocksAccount(t *testing.T) {
	tests := []struct {
		name      string
		policy    usecase.Policy
		available string
		total     string
		depositOK bool
	}{
		{
			name:      "deposits allowed on locked account",
			policy:    usecase.DefaultPolicy(),
			available: "10",
			total:     "10",
			depositOK: true,
		},
		{
			name:      "deposits refused on locked account",
			policy:    usecase.Policy{AllowDepositOnLocked: false},
			available: "0",
			total:     "0",
			depositOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := usecase.NewEngine(tt.policy, nil, nil)

			outcomes := processAll(e,
				domain.NewDeposit(1, 1, dec("5.0")),
				domain.NewDispute(1, 1),
				domain.NewChargeback(1, 1),
				domain.NewDeposit(1, 2, dec("10.0")),
				domain.NewWithdrawal(1, 3, dec("1.0")),
			)

			if !outcomes[2].Applied() {
				t.Fatalf("chargeback rejected: %v", outcomes[2].Reason)
			}
			if outcomes[3].Applied() != tt.depositOK {
				t.Fatalf("expected deposit applied=%v, got reason %v", tt.depositOK, outcomes[3].Reason)
			}
			if !tt.depositOK && !errors.Is(outcomes[3].Reason, domain.ErrAccountLocked) {
				t.Fatalf("expected ErrAccountLocked for deposit, got %v", outcomes[3].Reason)
			}
			if !errors.Is(outcomes[4].Reason, domain.ErrAccountLocked) {
				t.Fatalf("expected ErrAccountLocked for withdrawal, got %v", outcomes[4].Reason)
			}

			assertAccount(t, e, 1, tt.available, "0", tt.total, true)
		})
	}
}

func TestEngine_DisputeWithoutDepositCreatesEmptyAccount(t *testing.T) {
	e := usecase.NewEngine(usecase.DefaultPolicy(), nil, nil)

	out := e.Process(domain.NewDispute(9, 999))

	if !errors.Is(out.Reason, domain.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", out.Reason)
	}
	assertAccount(t, e, 9, "0", "0", "0", false)
}

func TestEngine_ResolveUndisputedIsNoop(t *testing.T) {
	e := usecase.NewEngine(usecase.DefaultPolicy(), nil, nil)

	e.Process(domain.NewDeposit(1, 1, dec("3.25")))
	out := e.Process(domain.NewResolve(1, 1))

	if !errors.Is(out.Reason, domain.ErrNotDisputed) {
		t.Fatalf("expected ErrNotDisputed, got %v", out.Reason)
	}
	assertAccount(t, e, 1, "3.25", "0", "3.25", false)
}

func TestEngine_ChargebackWithoutDisputeIsNoop(t *testing.T) {
	e := usecase.NewEngine(usecase.DefaultPolicy(), nil, nil)

	e.Process(domain.NewDeposit(1, 1, dec("3")))
	out := e.Process(domain.NewChargeback(1, 1))

	if !errors.Is(out.Reason, domain.ErrNotDisputed) {
		t.Fatalf("expected ErrNotDisputed, got %v", out.Reason)
	}
	assertAccount(t, e, 1, "3", "0", "3", false)
}

func TestEngine_RejectedRecords(t *testing.T) {
	tests := []struct {
		name     string
		setup    []domain.Record
		record   domain.Record
		expected error
	}{
		{
			name:     "negative deposit",
			record:   domain.NewDeposit(1, 1, dec("-1")),
			expected: domain.ErrNegativeAmount,
		},
		{
			name:     "negative withdrawal",
			setup:    []domain.Record{domain.NewDeposit(1, 1, dec("5"))},
			record:   domain.NewWithdrawal(1, 2, dec("-1")),
			expected: domain.ErrNegativeAmount,
		},
		{
			name:     "duplicate deposit id",
			setup:    []domain.Record{domain.NewDeposit(1, 1, dec("5"))},
			record:   domain.NewDeposit(1, 1, dec("5")),
			expected: domain.ErrDuplicateTransaction,
		},
		{
			name: "withdrawal reusing a withdrawal id",
			setup: []domain.Record{
				domain.NewDeposit(1, 1, dec("5")),
				domain.NewWithdrawal(1, 2, dec("1")),
			},
			record:   domain.NewWithdrawal(1, 2, dec("1")),
			expected: domain.ErrDuplicateTransaction,
		},
		{
			name: "deposit reusing a withdrawal id",
			setup: []domain.Record{
				domain.NewDeposit(1, 1, dec("5")),
				domain.NewWithdrawal(1, 2, dec("1")),
			},
			record:   domain.NewDeposit(1, 2, dec("1")),
			expected: domain.ErrDuplicateTransaction,
		},
		{
			name:     "withdrawal for unknown client",
			record:   domain.NewWithdrawal(4, 1, dec("0")),
			expected: domain.ErrAccountNotFound,
		},
		{
			name: "withdrawal is not disputable",
			setup: []domain.Record{
				domain.NewDeposit(1, 1, dec("5")),
				domain.NewWithdrawal(1, 2, dec("1")),
			},
			record:   domain.NewDispute(1, 2),
			expected: domain.ErrTransactionNotFound,
		},
		{
			name:     "dispute from another client",
			setup:    []domain.Record{domain.NewDeposit(1, 1, dec("5"))},
			record:   domain.NewDispute(2, 1),
			expected: domain.ErrClientMismatch,
		},
		{
			name: "second dispute",
			setup: []domain.Record{
				domain.NewDeposit(1, 1, dec("5")),
				domain.NewDispute(1, 1),
			},
			record:   domain.NewDispute(1, 1),
			expected: domain.ErrAlreadyDisputed,
		},
		{
			name: "dispute after chargeback",
			setup: []domain.Record{
				domain.NewDeposit(1, 1, dec("5")),
				domain.NewDispute(1, 1),
				domain.NewChargeback(1, 1),
			},
			record:   domain.NewDispute(1, 1),
			expected: domain.ErrChargedBack,
		},
		{
			name: "resolve after chargeback",
			setup: []domain.Record{
				domain.NewDeposit(1, 1, dec("5")),
				domain.NewDispute(1, 1),
				domain.NewChargeback(1, 1),
			},
			record:   domain.NewResolve(1, 1),
			expected: domain.ErrChargedBack,
		},
		{
			name:     "zero value record",
			record:   domain.Record{},
			expected: domain.ErrUnknownKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := usecase.NewEngine(usecase.DefaultPolicy(), nil, nil)
			processAll(e, tt.setup...)
			before := e.Snapshot(usecase.SnapshotAscending)

			out := e.Process(tt.record)

			if out.Applied() {
				t.Fatalf("expected rejection, record was applied")
			}
			if !errors.Is(out.Reason, tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, out.Reason)
			}

			after := e.Snapshot(usecase.SnapshotAscending)
			for _, prev := range before {
				acc, _ := e.Account(prev.ClientID)
				if !acc.Available.Equal(prev.Available) || !acc.Held.Equal(prev.Held) ||
					!acc.Total.Equal(prev.Total) || acc.Locked != prev.Locked {
					t.Fatalf("rejected record changed client %d: before %+v after %+v", prev.ClientID, prev, acc)
				}
			}
			if len(after) < len(before) {
				t.Fatalf("accounts disappeared: before %d after %d", len(before), len(after))
			}
		})
	}
}

func TestEngine_RepeatedRejectionNeverChangesState(t *testing.T) {
	e := usecase.NewEngine(usecase.DefaultPolicy(), nil, nil)
	processAll(e,
		domain.NewDeposit(1, 1, dec("7.5")),
		domain.NewDispute(1, 1),
	)

	for i := 0; i < 50; i++ {
		if out := e.Process(domain.NewDispute(1, 1)); out.Applied() {
			t.Fatalf("replay %d: duplicate dispute applied", i)
		}
		if out := e.Process(domain.NewWithdrawal(1, 2, dec("1"))); out.Applied() {
			t.Fatalf("replay %d: withdrawal of held funds applied", i)
		}
		assertAccount(t, e, 1, "0", "7.5", "7.5", false)
	}

	stats := e.Stats()
	if stats.Rejected != 100 || stats.Reasons["already_disputed"] != 50 || stats.Reasons["insufficient_funds"] != 50 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestEngine_DisputeResolveRoundTrip(t *testing.T) {
	e := usecase.NewEngine(usecase.DefaultPolicy(), nil, nil)
	processAll(e,
		domain.NewDeposit(3, 1, dec("0.1")),
		domain.NewDeposit(3, 2, dec("0.2")),
		domain.NewDeposit(3, 3, dec("1234.56789")),
	)

	for i := 0; i < 1000; i++ {
		tx := uint32(i%3 + 1)
		if out := e.Process(domain.NewDispute(3, tx)); !out.Applied() {
			t.Fatalf("cycle %d: dispute rejected: %v", i, out.Reason)
		}
		acc, _ := e.Account(3)
		if !acc.Total.Equal(dec("1234.86789")) {
			t.Fatalf("cycle %d: total changed during dispute: %s", i, acc.Total)
		}
		if out := e.Process(domain.NewResolve(3, tx)); !out.Applied() {
			t.Fatalf("cycle %d: resolve rejected: %v", i, out.Reason)
		}
	}

	assertAccount(t, e, 3, "1234.86789", "0", "1234.86789", false)
}

func TestEngine_InvariantsHoldOnRandomStreams(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	kinds := []domain.Kind{
		domain.KindDeposit, domain.KindWithdrawal, domain.KindDispute,
		domain.KindResolve, domain.KindChargeback,
	}

	for run := 0; run < 20; run++ {
		e := usecase.NewEngine(usecase.DefaultPolicy(), nil, nil)
		locked := make(map[uint16]bool)

		for i := 0; i < 500; i++ {
			client := uint16(rng.Intn(5) + 1)
			tx := uint32(rng.Intn(80) + 1)
			amount := decimal.New(int64(rng.Intn(2_000_000)), -4)

			var rec domain.Record
			switch kinds[rng.Intn(len(kinds))] {
			case domain.KindDeposit:
				rec = domain.NewDeposit(client, tx, amount)
			case domain.KindWithdrawal:
				rec = domain.NewWithdrawal(client, tx, amount)
			case domain.KindDispute:
				rec = domain.NewDispute(client, tx)
			case domain.KindResolve:
				rec = domain.NewResolve(client, tx)
			case domain.KindChargeback:
				rec = domain.NewChargeback(client, tx)
			}

			before, existed := e.Account(client)
			out := e.Process(rec)

			for _, acc := range e.Snapshot(usecase.SnapshotFirstSeen) {
				if !acc.Available.Add(acc.Held).Equal(acc.Total) {
					t.Fatalf("run %d step %d: total mismatch for client %d: %+v", run, i, acc.ClientID, acc)
				}
				if acc.Held.IsNegative() {
					t.Fatalf("run %d step %d: negative held for client %d", run, i, acc.ClientID)
				}
				if locked[acc.ClientID] && !acc.Locked {
					t.Fatalf("run %d step %d: client %d unlocked", run, i, acc.ClientID)
				}
				if acc.Locked && !locked[acc.ClientID] && rec.Kind() != domain.KindChargeback {
					t.Fatalf("run %d step %d: client %d locked by %s", run, i, acc.ClientID, rec.Kind())
				}
				locked[acc.ClientID] = acc.Locked
			}

			after, _ := e.Account(client)
			if existed && before.Locked && rec.Kind() == domain.KindWithdrawal && out.Applied() {
				t.Fatalf("run %d step %d: withdrawal applied to locked client %d", run, i, client)
			}
			if !out.Applied() && existed &&
				(!after.Available.Equal(before.Available) || !after.Held.Equal(before.Held) || !after.Total.Equal(before.Total)) {
				t.Fatalf("run %d step %d: rejected %s changed state", run, i, rec)
			}
		}
	}
}

func TestEngine_SnapshotOrder(t *testing.T) {
	e := usecase.NewEngine(usecase.DefaultPolicy(), nil, nil)
	processAll(e,
		domain.NewDeposit(30, 1, dec("1")),
		domain.NewDeposit(2, 2, dec("1")),
		domain.NewDispute(17, 3),
	)

	asc := e.Snapshot(usecase.SnapshotAscending)
	seen := e.Snapshot(usecase.SnapshotFirstSeen)

	wantAsc := []uint16{2, 17, 30}
	wantSeen := []uint16{30, 2, 17}
	for i := range wantAsc {
		if asc[i].ClientID != wantAsc[i] {
			t.Errorf("ascending[%d] = %d, want %d", i, asc[i].ClientID, wantAsc[i])
		}
		if seen[i].ClientID != wantSeen[i] {
			t.Errorf("first-seen[%d] = %d, want %d", i, seen[i].ClientID, wantSeen[i])
		}
	}

	asc[0].Available = dec("999")
	if acc, _ := e.Account(2); !acc.Available.Equal(dec("1")) {
		t.Fatal("mutating a snapshot must not change the engine")
	}
}

func TestEngine_ReportsRejections(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reporter := mocks.NewMockRejectionReporter(ctrl)
	rejected := domain.NewWithdrawal(1, 2, dec("10"))
	reporter.EXPECT().Rejected(rejected, gomock.Any()).Do(func(_ domain.Record, reason error) {
		if !errors.Is(reason, domain.ErrInsufficientFunds) {
			t.Errorf("expected ErrInsufficientFunds, got %v", reason)
		}
	}).Times(1)

	e := usecase.NewEngine(usecase.DefaultPolicy(), reporter, nil)
	processAll(e,
		domain.NewDeposit(1, 1, dec("5")),
		rejected,
	)
}

func TestEngine_Metrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	e := usecase.NewEngine(usecase.DefaultPolicy(), nil, m)

	processAll(e,
		domain.NewDeposit(1, 1, dec("5")),
		domain.NewDeposit(2, 2, dec("5")),
		domain.NewDispute(1, 1),
		domain.NewDispute(2, 2),
		domain.NewResolve(2, 2),
		domain.NewChargeback(1, 1),
		domain.NewWithdrawal(1, 3, dec("1")),
	)

	if got := testutil.ToFloat64(m.RecordsProcessed.WithLabelValues("deposit")); got != 2 {
		t.Errorf("expected 2 deposits, got %v", got)
	}
	if got := testutil.ToFloat64(m.RecordsRejected.WithLabelValues("withdrawal", "account_locked")); got != 1 {
		t.Errorf("expected 1 locked withdrawal rejection, got %v", got)
	}
	if got := testutil.ToFloat64(m.Accounts); got != 2 {
		t.Errorf("expected 2 accounts, got %v", got)
	}
	if got := testutil.ToFloat64(m.AccountsLocked); got != 1 {
		t.Errorf("expected 1 locked account, got %v", got)
	}
	if got := testutil.ToFloat64(m.OpenDisputes); got != 0 {
		t.Errorf("expected no open disputes, got %v", got)
	}
}

func TestParseSnapshotOrder(t *testing.T) {
	tests := []struct {
		input   string
		want    usecase.SnapshotOrder
		wantErr bool
	}{
		{"", usecase.SnapshotAscending, false},
		{"ascending", usecase.SnapshotAscending, false},
		{"first-seen", usecase.SnapshotFirstSeen, false},
		{"random", usecase.SnapshotAscending, true},
	}

	for _, tt := range tests {
		got, err := usecase.ParseSnapshotOrder(tt.input)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseSnapshotOrder(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseSnapshotOrder(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
