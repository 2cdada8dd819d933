package validation

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Header rows for the partition tables. Always written, even when the
// partition is empty.
var (
	validHeader   = []string{"Email", "Status"}
	invalidHeader = []string{"Email", "Status", "Reason"}
)

// Partition splits verification outcomes into the valid and invalid tables.
// Addresses are emitted in first-occurrence input order; the outcome map
// already reflects last-write-wins for duplicates.
func Partition(order []string, outcomes map[string]Outcome) (valid, invalid []ResultRow) {
	seen := make(map[string]struct{}, len(order))
	for _, email := range order {
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		out, ok := outcomes[email]
		if !ok {
			continue
		}
		row := ResultRow{Email: email, Status: out.Status, Reason: out.Reason}
		if out.Status == OutcomeValid {
			valid = append(valid, row)
		} else {
			invalid = append(invalid, row)
		}
	}
	return valid, invalid
}

// EncodeCSV renders a partition as a CSV table with its fixed header. The
// valid table carries (Email, Status); the invalid table adds the Reason.
func EncodeCSV(kind ResultKind, rows []ResultRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	switch kind {
	case KindValid:
		if err := w.Write(validHeader); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		for _, row := range rows {
			if err := w.Write([]string{row.Email, row.Status}); err != nil {
				return nil, fmt.Errorf("write row: %w", err)
			}
		}
	case KindInvalid:
		if err := w.Write(invalidHeader); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		for _, row := range rows {
			if err := w.Write([]string{row.Email, row.Status, row.Reason}); err != nil {
				return nil, fmt.Errorf("write row: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
