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

package database

import (
	"context"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/ledgerkeep/ledgerkeep/internal/apierror"
	"github.com/ledgerkeep/ledgerkeep/model"
)

const transactionColumns = `transaction_id, company_id, transaction_date, description,
		amount, type, status, is_reconciled`

// GetUnreconciledTransactions fetches the candidate pool for matching: all
// of a company's unreconciled, non-void ledger transactions inside the date
// window. The matcher calls this once per statement upload, never per entry.
func (d Datasource) GetUnreconciledTransactions(ctx context.Context, companyID string, from, to time.Time) ([]*model.Transaction, error) {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Fetching unreconciled transactions")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM ledger_transactions
		WHERE company_id = $1
			AND transaction_date BETWEEN $2 AND $3
			AND NOT is_reconciled
			AND status != $4
		ORDER BY transaction_date, transaction_id
	`, companyID, from, to, model.StatusVoid)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to fetch candidate transactions", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetTransactionsByIDs fetches ledger transactions by ID in one query.
func (d Datasource) GetTransactionsByIDs(ctx context.Context, transactionIDs []string) ([]*model.Transaction, error) {
	ctx, span := otel.Tracer("Transaction").Start(ctx, "Fetching transactions by IDs")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM ledger_transactions
		WHERE transaction_id = ANY($1)
	`, pq.Array(transactionIDs))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to fetch transactions", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}) ([]*model.Transaction, error) {
	transactions := []*model.Transaction{}
	for rows.Next() {
		txn := &model.Transaction{}
		err := rows.Scan(&txn.TransactionID, &txn.CompanyID, &txn.TransactionDate, &txn.Description,
			&txn.Amount, &txn.Type, &txn.Status, &txn.IsReconciled)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to scan transaction", err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to iterate transactions", err)
	}
	return transactions, nil
}
