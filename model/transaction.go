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
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction type values as recorded by the ledger.
const (
	TypeDebit  = "debit"
	TypeCredit = "credit"
)

// StatusVoid marks ledger transactions excluded from candidate search.
const StatusVoid = "void"

// Transaction is a ledger transaction owned by the ledger service. The
// reconciliation engine reads them for candidate search and requests a
// reconciled-flag flip on session completion; it never writes amount,
// description or status.
type Transaction struct {
	TransactionID   string          `json:"transaction_id"`
	CompanyID       string          `json:"company_id"`
	TransactionDate time.Time       `json:"transaction_date"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	Type            string          `json:"type"`
	Status          string          `json:"status"`
	IsReconciled    bool            `json:"is_reconciled"`
}

// SignedAmount returns the transaction amount with a sign matching bank
// statement conventions: credits positive, debits negative.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TypeDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}
