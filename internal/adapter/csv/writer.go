package csv

import (
	encsv "encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/iho/txengine/internal/domain"
)

var header = []string{"client", "available", "held", "total", "locked"}

// Writer encodes an account table as CSV.
type Writer struct {
	w *encsv.Writer
}

// NewWriter creates a new Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: encsv.NewWriter(w)}
}

// Write emits the header followed by one row per account, in the order given.
func (w *Writer) Write(accounts []domain.ClientAccount) error {
	if err := w.w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(header))
	for _, acc := range accounts {
		row[0] = strconv.FormatUint(uint64(acc.ClientID), 10)
		row[1] = domain.FormatAmount(acc.Available)
		row[2] = domain.FormatAmount(acc.Held)
		row[3] = domain.FormatAmount(acc.Total)
		row[4] = strconv.FormatBool(acc.Locked)

		if err := w.w.Write(row); err != nil {
			return fmt.Errorf("failed to write client %d: %w", acc.ClientID, err)
		}
	}

	w.w.Flush()
	return w.w.Error()
}

// AccountRow is the serialized form of one account.
type AccountRow struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// NewAccountRow renders acc with fixed-precision amounts.
func NewAccountRow(acc domain.ClientAccount) AccountRow {
	return AccountRow{
		Client:    acc.ClientID,
		Available: domain.FormatAmount(acc.Available),
		Held:      domain.FormatAmount(acc.Held),
		Total:     domain.FormatAmount(acc.Total),
		Locked:    acc.Locked,
	}
}

// JSONWriter encodes an account table as a JSON array.
type JSONWriter struct {
	enc *json.Encoder
}

// NewJSONWriter creates a new JSONWriter.
func NewJSONWriter(w io.Writer) *JSONWriter {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return &JSONWriter{enc: enc}
}

// Write emits accounts as a single JSON array.
func (w *JSONWriter) Write(accounts []domain.ClientAccount) error {
	rows := make([]AccountRow, 0, len(accounts))
	for _, acc := range accounts {
		rows = append(rows, NewAccountRow(acc))
	}

	if err := w.enc.Encode(rows); err != nil {
		return fmt.Errorf("failed to encode accounts: %w", err)
	}
	return nil
}
