package database

import (
	"database/sql"
	"log"
	"sync"

	_ "github.com/lib/pq"

	"github.com/ledgerkeep/ledgerkeep/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	err = createReconSchema(db)
	if err != nil {
		return nil, err
	}
	err = createLedgerTransactionTable(db)
	if err != nil {
		return nil, err
	}
	err = createAccountTable(db)
	if err != nil {
		return nil, err
	}
	err = createReconciliationSessionTable(db)
	if err != nil {
		return nil, err
	}
	err = createReconciliationMatchTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func createReconSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE SCHEMA IF NOT EXISTS recon`)
	if err != nil {
		log.Printf("Error creating recon schema: %v", err)
	}
	return err
}

// createLedgerTransactionTable creates the ledger transactions table. In a
// full deployment this table is owned and written by the ledger service;
// creating it here keeps single-binary and dev setups self-contained.
func createLedgerTransactionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ledger_transactions (
			id SERIAL PRIMARY KEY,
			transaction_id TEXT NOT NULL UNIQUE,
			company_id TEXT NOT NULL,
			transaction_date TIMESTAMP NOT NULL,
			description TEXT,
			amount NUMERIC(20, 4) NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('debit', 'credit')),
			status TEXT NOT NULL DEFAULT 'posted',
			is_reconciled BOOLEAN NOT NULL DEFAULT FALSE,
			reconciled_at TIMESTAMP,
			reconciled_by TEXT,
			reconciliation_session_id TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_transactions_candidate_search
			ON ledger_transactions (company_id, transaction_date)
			WHERE NOT is_reconciled
	`)
	log.Println(err)
	return err
}

// createAccountTable creates the accounts table, also owned by the ledger
// service in a full deployment.
func createAccountTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id SERIAL PRIMARY KEY,
			account_id TEXT NOT NULL UNIQUE,
			company_id TEXT NOT NULL,
			name TEXT NOT NULL,
			currency TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating accounts table: %v", err)
	}
	return err
}

// createReconciliationSessionTable creates the sessions table. Bank entries
// are embedded as JSONB: entries never move between sessions and are always
// read as a whole, so a child table would only add join cost.
func createReconciliationSessionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS recon.reconciliation_sessions (
			id SERIAL PRIMARY KEY,
			reconciliation_session_id TEXT NOT NULL UNIQUE,
			company_id TEXT NOT NULL,
			account_id TEXT NOT NULL REFERENCES accounts(account_id),
			account_name TEXT NOT NULL,
			statement_date TIMESTAMP NOT NULL,
			opening_balance NUMERIC(20, 4) NOT NULL,
			closing_balance NUMERIC(20, 4) NOT NULL,
			auto_match BOOLEAN NOT NULL DEFAULT FALSE,
			bank_entries JSONB NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('in_progress', 'completed')),
			matched_count INTEGER NOT NULL DEFAULT 0,
			unmatched_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMP,
			completed_by TEXT,
			notes TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_reconciliation_sessions_company
			ON recon.reconciliation_sessions (company_id, created_at DESC)
	`)
	log.Println(err)
	return err
}

// createReconciliationMatchTable creates the matches table. The unique
// constraint on (session, entry) is what makes match recording idempotent.
func createReconciliationMatchTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS recon.reconciliation_matches (
			id SERIAL PRIMARY KEY,
			match_id TEXT NOT NULL UNIQUE,
			reconciliation_session_id TEXT NOT NULL REFERENCES recon.reconciliation_sessions(reconciliation_session_id) ON DELETE CASCADE,
			bank_entry_id TEXT NOT NULL,
			transaction_id TEXT NOT NULL REFERENCES ledger_transactions(transaction_id),
			confidence_score NUMERIC(4, 3) NOT NULL,
			match_type TEXT NOT NULL CHECK (match_type IN ('automatic', 'manual')),
			matched_at TIMESTAMP NOT NULL DEFAULT NOW(),
			matched_by TEXT,
			UNIQUE (reconciliation_session_id, bank_entry_id)
		)
	`)
	log.Println(err)
	return err
}
