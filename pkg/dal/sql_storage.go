package dal

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/minibank/minibank/pkg/bank"

	// This has to be here to let go mods work work
	_ "github.com/mattn/go-sqlite3"
)

type sqlStorage struct {
	db *sql.DB
}

func (s *sqlStorage) Setup(ctx context.Context) error {
	logger.Info(ctx, "Setup SQL storage")
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS counters(
	name nvarchar(64) NOT NULL PRIMARY KEY,
	value INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS accounts(
	account_id nvarchar(32) NOT NULL PRIMARY KEY,
	owner_name nvarchar(255) NOT NULL,
	pin_code nvarchar(8) NOT NULL,
	balance INTEGER NOT NULL,
	created_at nvarchar(32) NOT NULL
);
CREATE TABLE IF NOT EXISTS transactions(
	transaction_id nvarchar(32) NOT NULL PRIMARY KEY,
	transaction_type nvarchar(16) NOT NULL,
	amount INTEGER NOT NULL,
	time_text nvarchar(32) NOT NULL,
	note NTEXT NOT NULL,
	from_account_id nvarchar(32) NULL,
	to_account_id nvarchar(32) NULL
);
`)
	return errors.Wrap(err, "Failed to setup storage")
}

func (s *sqlStorage) loadCounters(ctx context.Context, snapshot *bank.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM counters`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return err
		}
		switch name {
		case "next_account_id":
			snapshot.NextAccountID = value
		case "next_transaction_number":
			snapshot.NextTransactionNumber = value
		}
	}
	return rows.Err()
}

func (s *sqlStorage) loadAccounts(ctx context.Context, snapshot *bank.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `
	SELECT
		account_id, owner_name, pin_code, balance, created_at
	FROM accounts ORDER BY account_id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		account := bank.Account{}
		if err := rows.Scan(
			&account.AccountID,
			&account.OwnerName,
			&account.PINCode,
			&account.Balance,
			&account.CreatedAt,
		); err != nil {
			return err
		}
		snapshot.Accounts = append(snapshot.Accounts, account)
	}
	return rows.Err()
}

func (s *sqlStorage) loadTransactions(ctx context.Context, snapshot *bank.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `
	SELECT
		transaction_id, transaction_type, amount, time_text, note, from_account_id, to_account_id
	FROM transactions ORDER BY transaction_id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		transaction := bank.Transaction{}
		var fromAccountID, toAccountID sql.NullString
		if err := rows.Scan(
			&transaction.TransactionID,
			&transaction.Type,
			&transaction.Amount,
			&transaction.TimeText,
			&transaction.Note,
			&fromAccountID,
			&toAccountID,
		); err != nil {
			return err
		}
		transaction.FromAccountID = fromAccountID.String
		transaction.ToAccountID = toAccountID.String
		snapshot.Transactions = append(snapshot.Transactions, transaction)
	}
	return rows.Err()
}

func (s *sqlStorage) Load(ctx context.Context) (*bank.Snapshot, error) {
	snapshot := defaultSnapshot()
	if err := s.loadCounters(ctx, snapshot); err != nil {
		return nil, errors.Wrap(err, "Failed to load counters")
	}
	if err := s.loadAccounts(ctx, snapshot); err != nil {
		return nil, errors.Wrap(err, "Failed to load accounts")
	}
	if err := s.loadTransactions(ctx, snapshot); err != nil {
		return nil, errors.Wrap(err, "Failed to load transactions")
	}
	return snapshot, nil
}

func nullableID(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

// Save rewrites the whole snapshot within a single transaction
func (s *sqlStorage) Save(ctx context.Context, snapshot *bank.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "Failed to begin save transaction")
	}
	defer tx.Rollback()

	for _, table := range []string{"counters", "accounts", "transactions"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return errors.Wrapf(err, "Failed to clear %v", table)
		}
	}

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO counters(name, value) VALUES
		('next_account_id', $1),
		('next_transaction_number', $2)
	`, snapshot.NextAccountID, snapshot.NextTransactionNumber); err != nil {
		return errors.Wrap(err, "Failed to save counters")
	}

	for _, account := range snapshot.Accounts {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO accounts(account_id, owner_name, pin_code, balance, created_at)
		VALUES($1, $2, $3, $4, $5)
		`, account.AccountID, account.OwnerName, account.PINCode, account.Balance, account.CreatedAt); err != nil {
			return errors.Wrapf(err, "Failed to save account %v", account.AccountID)
		}
	}

	for _, transaction := range snapshot.Transactions {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions(
			transaction_id,
			transaction_type,
			amount,
			time_text,
			note,
			from_account_id,
			to_account_id
		)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		`, transaction.TransactionID, string(transaction.Type), transaction.Amount,
			transaction.TimeText, transaction.Note,
			nullableID(transaction.FromAccountID), nullableID(transaction.ToAccountID)); err != nil {
			return errors.Wrapf(err, "Failed to save transaction %v", transaction.TransactionID)
		}
	}

	return errors.Wrap(tx.Commit(), "Failed to commit snapshot")
}

// SQLStorageOpt is an option of SQL storage
type SQLStorageOpt func(s *sqlStorage)

// WithSQLDb will set an explicit db instance for a storage
func WithSQLDb(db *sql.DB) SQLStorageOpt {
	return func(s *sqlStorage) {
		s.db = db
	}
}

// NewSQLStorage returns an instance of a local storage
func NewSQLStorage(opts ...SQLStorageOpt) (Storage, error) {
	storage := &sqlStorage{}
	for _, opt := range opts {
		opt(storage)
	}
	return storage, nil
}
