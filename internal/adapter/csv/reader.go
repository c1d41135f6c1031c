// Package csv decodes transaction records from CSV input and encodes
// account tables for output.
package csv

import (
	encsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/usecase"
)

// Structural errors. They are always returned inside a *ParseError.
var (
	ErrFieldCount       = errors.New("wrong number of fields")
	ErrUnknownKind      = errors.New("unknown transaction type")
	ErrInvalidClient    = errors.New("invalid client id")
	ErrInvalidTx        = errors.New("invalid transaction id")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrMissingAmount    = errors.New("missing amount")
	ErrUnexpectedAmount = errors.New("unexpected amount")
	ErrSyntax           = errors.New("csv syntax error")
)

// ParseError reports a line that could not be decoded into a record.
// It matches usecase.ErrMalformedRecord and the specific cause.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{usecase.ErrMalformedRecord, e.Err}
}

const byteOrderMark = "\ufeff"

var kinds = map[string]domain.Kind{
	"deposit":    domain.KindDeposit,
	"withdrawal": domain.KindWithdrawal,
	"withdraw":   domain.KindWithdrawal,
	"dispute":    domain.KindDispute,
	"resolve":    domain.KindResolve,
	"chargeback": domain.KindChargeback,
}

// Reader decodes records from `type,client,tx,amount` rows.
type Reader struct {
	r     *encsv.Reader
	first bool
}

// NewReader creates a Reader. A leading header row is skipped.
func NewReader(r io.Reader) *Reader {
	cr := encsv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	return &Reader{r: cr, first: true}
}

// Next returns the next record, a *ParseError for an undecodable line,
// or io.EOF at the end of input.
func (r *Reader) Next() (domain.Record, error) {
	for {
		fields, err := r.r.Read()
		if err != nil {
			var perr *encsv.ParseError
			if errors.As(err, &perr) {
				return domain.Record{}, &ParseError{
					Line: perr.StartLine,
					Err:  fmt.Errorf("%w: %v", ErrSyntax, perr.Err),
				}
			}
			return domain.Record{}, err
		}

		line, _ := r.r.FieldPos(0)
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		if r.first {
			r.first = false
			fields[0] = strings.TrimPrefix(fields[0], byteOrderMark)
			if strings.EqualFold(fields[0], "type") {
				continue
			}
		}

		rec, err := decode(fields)
		if err != nil {
			return domain.Record{}, &ParseError{Line: line, Err: err}
		}
		return rec, nil
	}
}

func decode(fields []string) (domain.Record, error) {
	if len(fields) < 3 || len(fields) > 4 {
		return domain.Record{}, fmt.Errorf("%w: got %d", ErrFieldCount, len(fields))
	}

	kind, ok := kinds[fields[0]]
	if !ok {
		return domain.Record{}, fmt.Errorf("%w: %q", ErrUnknownKind, fields[0])
	}

	client, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return domain.Record{}, fmt.Errorf("%w: %q", ErrInvalidClient, fields[1])
	}

	tx, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return domain.Record{}, fmt.Errorf("%w: %q", ErrInvalidTx, fields[2])
	}

	raw := ""
	if len(fields) == 4 {
		raw = fields[3]
	}

	if !kind.CarriesAmount() {
		if raw != "" {
			return domain.Record{}, fmt.Errorf("%w: %s carries %q", ErrUnexpectedAmount, kind, raw)
		}
		switch kind {
		case domain.KindDispute:
			return domain.NewDispute(uint16(client), uint32(tx)), nil
		case domain.KindResolve:
			return domain.NewResolve(uint16(client), uint32(tx)), nil
		default:
			return domain.NewChargeback(uint16(client), uint32(tx)), nil
		}
	}

	if raw == "" {
		return domain.Record{}, fmt.Errorf("%w: %s", ErrMissingAmount, kind)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return domain.Record{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	if kind == domain.KindDeposit {
		return domain.NewDeposit(uint16(client), uint32(tx), amount), nil
	}
	return domain.NewWithdrawal(uint16(client), uint32(tx), amount), nil
}
