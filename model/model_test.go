package model

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestGenerateUUIDWithSuffix(t *testing.T) {
	id := GenerateUUIDWithSuffix("recon")
	assert.True(t, strings.HasPrefix(id, "recon_"))
	assert.NotEqual(t, id, GenerateUUIDWithSuffix("recon"))
}

func TestSessionEntry(t *testing.T) {
	session := &ReconciliationSession{
		BankEntries: []BankEntry{
			{EntryID: "entry_1"},
			{EntryID: "entry_2"},
		},
	}

	entry := session.Entry("entry_2")
	assert.NotNil(t, entry)
	assert.Equal(t, "entry_2", entry.EntryID)

	// mutations through the pointer land on the embedded entry
	entry.Matched = true
	assert.True(t, session.BankEntries[1].Matched)

	assert.Nil(t, session.Entry("entry_ghost"))
}

func TestSignedAmount(t *testing.T) {
	debit := &Transaction{Amount: decimal.RequireFromString("125.50"), Type: TypeDebit}
	credit := &Transaction{Amount: decimal.RequireFromString("890.00"), Type: TypeCredit}

	assert.Equal(t, "-125.5", debit.SignedAmount().String())
	assert.Equal(t, "890", credit.SignedAmount().String())
}

func TestSessionCounterInvariant(t *testing.T) {
	session := &ReconciliationSession{
		BankEntries:    []BankEntry{{EntryID: "entry_1", Matched: true}, {EntryID: "entry_2"}},
		MatchedCount:   1,
		UnmatchedCount: 1,
		CreatedAt:      time.Now(),
	}
	assert.Equal(t, len(session.BankEntries), session.MatchedCount+session.UnmatchedCount)
}
