package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ledgerkeep/ledgerkeep/model"
)

// MockDataSource is a testify mock of database.IDataSource.
type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) RecordReconciliationSession(ctx context.Context, session *model.ReconciliationSession, autoMatches []model.Match) error {
	args := m.Called(ctx, session, autoMatches)
	return args.Error(0)
}

func (m *MockDataSource) GetReconciliationSession(ctx context.Context, sessionID string) (*model.ReconciliationSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReconciliationSession), args.Error(1)
}

func (m *MockDataSource) GetReconciliationSessions(ctx context.Context, companyID string, limit, offset int) ([]*model.ReconciliationSession, error) {
	args := m.Called(ctx, companyID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ReconciliationSession), args.Error(1)
}

func (m *MockDataSource) RecordSessionMatches(ctx context.Context, sessionID string, matches []model.Match) (int, error) {
	args := m.Called(ctx, sessionID, matches)
	return args.Int(0), args.Error(1)
}

func (m *MockDataSource) DeleteSessionMatch(ctx context.Context, sessionID, bankEntryID string) (bool, error) {
	args := m.Called(ctx, sessionID, bankEntryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) CompleteReconciliationSession(ctx context.Context, sessionID, completedBy, notes string) (*model.ReconciliationSession, error) {
	args := m.Called(ctx, sessionID, completedBy, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReconciliationSession), args.Error(1)
}

func (m *MockDataSource) DeleteReconciliationSession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockDataSource) GetMatchesBySessionID(ctx context.Context, sessionID string) ([]*model.Match, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Match), args.Error(1)
}

func (m *MockDataSource) GetUnreconciledTransactions(ctx context.Context, companyID string, from, to time.Time) ([]*model.Transaction, error) {
	args := m.Called(ctx, companyID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockDataSource) GetTransactionsByIDs(ctx context.Context, transactionIDs []string) ([]*model.Transaction, error) {
	args := m.Called(ctx, transactionIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockDataSource) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}
