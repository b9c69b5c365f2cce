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
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/ledgerkeep/ledgerkeep/internal/apierror"
	"github.com/ledgerkeep/ledgerkeep/model"
)

// GetAccount retrieves an account by its ID.
func (d Datasource) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	ctx, span := otel.Tracer("Account").Start(ctx, "Fetching account from db")
	defer span.End()

	account := &model.Account{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT account_id, company_id, name, currency, created_at
		FROM accounts
		WHERE account_id = $1
	`, accountID).Scan(&account.AccountID, &account.CompanyID, &account.Name, &account.Currency, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound,
				fmt.Sprintf("account %s not found", accountID), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to fetch account", err)
	}
	return account, nil
}
