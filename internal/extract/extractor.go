// Package extract parses uploaded tabular files into candidate email lists.
package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format identifies a supported upload format.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnsupportedFormat is returned for uploads that are neither CSV nor a
// spreadsheet.
var ErrUnsupportedFormat = errors.New("unsupported file type, please upload a CSV or Excel file")

// Result is the outcome of extraction. Addresses is truncated to the caller's
// maximum; TotalFound carries the pre-truncation count so the gateway can
// reject oversized uploads instead of silently dropping rows.
type Result struct {
	Addresses  []string
	TotalFound int
}

// FormatFromFilename derives the Format from the upload's extension.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xls":
		return FormatXLSX, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Extract reads the tabular content and returns the ordered address list.
// The first column whose header contains "email" (case-insensitive) is
// selected; if none matches, the first column is used. Rows with an empty
// selected cell are dropped.
func Extract(r io.Reader, format Format, max int) (Result, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = readCSV(r)
	case FormatXLSX:
		rows, err = readXLSX(r)
	default:
		return Result{}, ErrUnsupportedFormat
	}
	if err != nil {
		return Result{}, err
	}
	if len(rows) == 0 {
		return Result{}, nil
	}

	col := selectColumn(rows[0])
	addresses := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[col])
		if value == "" {
			continue
		}
		addresses = append(addresses, value)
	}

	res := Result{Addresses: addresses, TotalFound: len(addresses)}
	if max > 0 && len(res.Addresses) > max {
		res.Addresses = res.Addresses[:max]
	}
	return res, nil
}

func selectColumn(header []string) int {
	for i, name := range header {
		if strings.Contains(strings.ToLower(name), "email") {
			return i
		}
	}
	return 0
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	// Uploads frequently have ragged rows; keep whatever is present.
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse spreadsheet: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}
