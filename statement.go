/*
Copyright 2025 Ledgerkeep Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ledgerkeep

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledgerkeep/ledgerkeep/internal/apierror"
	"github.com/ledgerkeep/ledgerkeep/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Statement formats accepted by the upload endpoint.
const (
	FormatCSV = "csv"
	FormatOFX = "ofx"
)

// SkippedRow records one statement line the parser could not turn into a
// bank entry. Skips are reported, never fatal; only a statement yielding
// zero entries fails the upload.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ParseResult carries the parsed bank entries plus per-row diagnostics.
type ParseResult struct {
	Entries     []model.BankEntry `json:"entries"`
	SkippedRows []SkippedRow      `json:"skipped_rows,omitempty"`
}

// DetectFormat decides how to parse an uploaded statement. The file
// extension wins when recognized; otherwise the content is sniffed for an
// OFX envelope and CSV is the fallback.
func DetectFormat(filename string, data []byte) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ofx", ".qfx":
		return FormatOFX
	case ".csv":
		return FormatCSV
	}
	head := strings.ToUpper(string(data[:min(len(data), 512)]))
	if strings.Contains(head, "<OFX") || strings.Contains(head, "OFXHEADER") {
		return FormatOFX
	}
	return FormatCSV
}

// ParseStatement parses an uploaded statement in the given format.
func ParseStatement(format string, data []byte) (*ParseResult, error) {
	switch format {
	case FormatCSV:
		return ParseCSVStatement(data)
	case FormatOFX:
		return ParseOFXStatement(data)
	default:
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("unsupported statement format: %s", format), nil)
	}
}

// CSV column layouts seen in the wild. Signed layouts carry one amount
// column with debits negative; split layouts carry separate debit and
// credit columns and the entry amount is credit minus debit.
type csvLayout struct {
	dateCol        int
	descriptionCol int
	amountCol      int
	debitCol       int
	creditCol      int
	balanceCol     int
	referenceCol   int
	split          bool
}

// dateFormats is tried in order. The list resolves ambiguous all-numeric
// dates such as 01/02/2025 in favor of the US convention; statements using
// day-first dates for days <= 12 will be misread, which callers should
// handle by reviewing the parsed statement date range.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"01-02-2006",
	"2006/01/02",
	"Jan 2, 2006",
	"2 Jan 2006",
	"20060102",
}

// ParseCSVStatement parses a CSV bank statement. The header row is located
// within the first ten lines by keyword, so bank-specific preamble lines
// (account holder, statement period) are tolerated. Rows that fail to parse
// are skipped and reported; a statement yielding zero entries is rejected.
func ParseCSVStatement(data []byte) (*ParseResult, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	var rows [][]string
	line := 0
	for {
		record, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			// malformed quoting past this point is unrecoverable for
			// the csv reader, stop consuming
			logrus.WithError(err).Warnf("csv read stopped at line %d", line)
			break
		}
		rows = append(rows, record)
	}

	headerIdx, layout := locateCSVHeader(rows)
	if headerIdx < 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			"could not locate a statement header row with date, description and amount columns", nil)
	}

	result := &ParseResult{Entries: []model.BankEntry{}}
	for i, row := range rows[headerIdx+1:] {
		lineNo := headerIdx + 2 + i
		entry, reason := parseCSVRow(row, layout)
		if reason != "" {
			logrus.Warnf("skipping statement line %d: %s", lineNo, reason)
			result.SkippedRows = append(result.SkippedRows, SkippedRow{Line: lineNo, Reason: reason})
			continue
		}
		result.Entries = append(result.Entries, *entry)
	}

	if len(result.Entries) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			"statement contains no parseable entries", result.SkippedRows)
	}
	return result, nil
}

const csvHeaderScanLimit = 10

// locateCSVHeader scans the leading rows for one that names the required
// columns. Returns the row index and the resolved column layout, or -1.
func locateCSVHeader(rows [][]string) (int, csvLayout) {
	limit := len(rows)
	if limit > csvHeaderScanLimit {
		limit = csvHeaderScanLimit
	}
	for i := 0; i < limit; i++ {
		if layout, ok := resolveCSVLayout(rows[i]); ok {
			return i, layout
		}
	}
	return -1, csvLayout{}
}

func resolveCSVLayout(header []string) (csvLayout, bool) {
	layout := csvLayout{dateCol: -1, descriptionCol: -1, amountCol: -1,
		debitCol: -1, creditCol: -1, balanceCol: -1, referenceCol: -1}

	for i, raw := range header {
		col := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case layout.dateCol < 0 && strings.Contains(col, "date"):
			layout.dateCol = i
		case layout.descriptionCol < 0 &&
			(strings.Contains(col, "description") || strings.Contains(col, "narrative") ||
				strings.Contains(col, "details") || strings.Contains(col, "memo") ||
				strings.Contains(col, "payee") || strings.Contains(col, "transaction")):
			layout.descriptionCol = i
		case layout.debitCol < 0 && strings.Contains(col, "debit"):
			layout.debitCol = i
		case layout.creditCol < 0 && strings.Contains(col, "credit"):
			layout.creditCol = i
		case layout.amountCol < 0 && strings.Contains(col, "amount"):
			layout.amountCol = i
		case layout.balanceCol < 0 && strings.Contains(col, "balance"):
			layout.balanceCol = i
		case layout.referenceCol < 0 && (strings.Contains(col, "reference") || col == "ref"):
			layout.referenceCol = i
		}
	}

	if layout.dateCol < 0 || layout.descriptionCol < 0 {
		return layout, false
	}
	if layout.amountCol >= 0 {
		return layout, true
	}
	if layout.debitCol >= 0 && layout.creditCol >= 0 {
		layout.split = true
		return layout, true
	}
	return layout, false
}

// parseCSVRow converts one data row into a bank entry. The returned reason
// is empty on success.
func parseCSVRow(row []string, layout csvLayout) (*model.BankEntry, string) {
	cell := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	if isBlankRow(row) {
		return nil, "blank row"
	}

	date, err := parseStatementDate(cell(layout.dateCol))
	if err != nil {
		return nil, fmt.Sprintf("unparseable date %q", cell(layout.dateCol))
	}

	var amount decimal.Decimal
	if layout.split {
		debit, derr := parseStatementAmount(cell(layout.debitCol))
		credit, cerr := parseStatementAmount(cell(layout.creditCol))
		if derr != nil && cerr != nil {
			return nil, "row has neither a debit nor a credit amount"
		}
		if derr != nil {
			debit = decimal.Zero
		}
		if cerr != nil {
			credit = decimal.Zero
		}
		amount = credit.Sub(debit)
	} else {
		amount, err = parseStatementAmount(cell(layout.amountCol))
		if err != nil {
			return nil, fmt.Sprintf("unparseable amount %q", cell(layout.amountCol))
		}
	}

	entry := &model.BankEntry{
		EntryID:     model.GenerateUUIDWithSuffix("entry"),
		Date:        date,
		Description: cell(layout.descriptionCol),
		Amount:      amount,
		Reference:   cell(layout.referenceCol),
	}
	if balance, err := parseStatementAmount(cell(layout.balanceCol)); err == nil && layout.balanceCol >= 0 {
		entry.Balance = &balance
	}
	return entry, ""
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseStatementDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no known date format matches %q", value)
}

var amountCleaner = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "")

// parseStatementAmount parses a currency cell, tolerating currency symbols,
// thousands separators and accounting-style parentheses for negatives.
func parseStatementAmount(value string) (decimal.Decimal, error) {
	cleaned := amountCleaner.Replace(value)
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + cleaned[1:len(cleaned)-1]
	}
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	return decimal.NewFromString(cleaned)
}
