package database

import (
	"context"
	"time"

	"github.com/ledgerkeep/ledgerkeep/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	reconciliation
	transaction
	account
}

type reconciliation interface {
	RecordReconciliationSession(ctx context.Context, session *model.ReconciliationSession, autoMatches []model.Match) error
	GetReconciliationSession(ctx context.Context, sessionID string) (*model.ReconciliationSession, error)
	GetReconciliationSessions(ctx context.Context, companyID string, limit, offset int) ([]*model.ReconciliationSession, error)
	RecordSessionMatches(ctx context.Context, sessionID string, matches []model.Match) (int, error)
	DeleteSessionMatch(ctx context.Context, sessionID, bankEntryID string) (bool, error)
	CompleteReconciliationSession(ctx context.Context, sessionID, completedBy, notes string) (*model.ReconciliationSession, error)
	DeleteReconciliationSession(ctx context.Context, sessionID string) error
	GetMatchesBySessionID(ctx context.Context, sessionID string) ([]*model.Match, error)
}

type transaction interface {
	GetUnreconciledTransactions(ctx context.Context, companyID string, from, to time.Time) ([]*model.Transaction, error)
	GetTransactionsByIDs(ctx context.Context, transactionIDs []string) ([]*model.Transaction, error)
}

type account interface {
	GetAccount(ctx context.Context, accountID string) (*model.Account, error)
}
