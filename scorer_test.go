package ledgerkeep

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ledgerkeep/ledgerkeep/model"
)

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func entryFor(amount string, date, description string) *model.BankEntry {
	return &model.BankEntry{
		EntryID:     model.GenerateUUIDWithSuffix("entry"),
		Date:        day(date),
		Description: description,
		Amount:      decimal.RequireFromString(amount),
	}
}

func txnFor(amount string, date, description, txnType string) *model.Transaction {
	return &model.Transaction{
		TransactionID:   model.GenerateUUIDWithSuffix("txn"),
		TransactionDate: day(date),
		Description:     description,
		Amount:          decimal.RequireFromString(amount),
		Type:            txnType,
	}
}

func TestScoreMatchPerfect(t *testing.T) {
	entry := entryFor("-125.50", "2025-10-02", "Amazon Purchase")
	txn := txnFor("125.50", "2025-10-02", "Amazon Purchase", model.TypeDebit)

	assert.Equal(t, 1.0, scoreMatch(entry, txn))
}

func TestScoreMatchAutoMatchBoundary(t *testing.T) {
	// exact amount and same-day date with zero description overlap lands
	// exactly on the auto-match boundary
	entry := entryFor("-125.50", "2025-10-02", "POS 99213")
	txn := txnFor("125.50", "2025-10-02", "Office chairs", model.TypeDebit)

	score := scoreMatch(entry, txn)
	assert.Equal(t, 0.8, score)
	assert.GreaterOrEqual(t, score, float64(AutoMatchThreshold))
}

func TestScoreMatchAmountBands(t *testing.T) {
	tests := []struct {
		name      string
		txnAmount string
		expected  float64
	}{
		{"exact", "100.00", 0.5},
		{"within one cent", "100.01", 0.4},
		{"within five cents", "100.05", 0.2},
		{"outside tolerance", "100.06", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := entryFor("-100.00", "2025-10-02", "x")
			txn := txnFor(tt.txnAmount, "2025-09-01", "y", model.TypeDebit)
			assert.Equal(t, tt.expected, scoreMatch(entry, txn))
		})
	}
}

func TestScoreMatchDateBands(t *testing.T) {
	tests := []struct {
		name     string
		txnDate  string
		expected float64
	}{
		{"same day", "2025-10-10", 0.3},
		{"two days out", "2025-10-08", 0.2},
		{"four days out", "2025-10-14", 0.1},
		{"five days out", "2025-10-15", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := entryFor("-100.00", "2025-10-10", "x")
			txn := txnFor("55.55", tt.txnDate, "y", model.TypeDebit)
			assert.Equal(t, tt.expected, scoreMatch(entry, txn))
		})
	}
}

func TestScoreMatchDescriptionOverlap(t *testing.T) {
	entry := entryFor("-10.00", "2025-10-02", "Amazon Purchase")
	txn := txnFor("99.99", "2025-01-01", "Amazon", model.TypeDebit)

	// one shared token over a larger set of two
	assert.Equal(t, 0.1, scoreMatch(entry, txn))
}

func TestScoreMatchDescriptionCaseAndPunctuation(t *testing.T) {
	entry := entryFor("-10.00", "2025-10-02", "AMAZON.COM*ORDER")
	txn := txnFor("99.99", "2025-01-01", "amazon com order", model.TypeDebit)

	assert.Equal(t, 0.2, scoreMatch(entry, txn))
}

func TestScoreMatchEmptyDescription(t *testing.T) {
	entry := entryFor("-10.00", "2025-10-02", "")
	txn := txnFor("10.00", "2025-10-02", "anything", model.TypeCredit)

	assert.Equal(t, 0.8, scoreMatch(entry, txn))
}

func TestScoreMatchRoundsToThreeDecimals(t *testing.T) {
	// one of three tokens shared: 1/3 * 0.2 = 0.0666... which must round,
	// not truncate
	entry := entryFor("-10.00", "2025-10-02", "alpha beta gamma")
	txn := txnFor("10.00", "2025-10-02", "alpha", model.TypeDebit)

	assert.Equal(t, 0.867, scoreMatch(entry, txn))
}

func TestScoreMatchIgnoresSign(t *testing.T) {
	entry := entryFor("250.00", "2025-10-02", "Client payment")
	txn := txnFor("250.00", "2025-10-02", "Client payment", model.TypeCredit)

	assert.Equal(t, 1.0, scoreMatch(entry, txn))
}

func TestCalendarDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	a := time.Date(2025, 10, 2, 23, 59, 0, 0, time.UTC)
	b := time.Date(2025, 10, 3, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 1, calendarDaysBetween(a, b))
	assert.Equal(t, 1, calendarDaysBetween(b, a))
}
