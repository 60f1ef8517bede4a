package dal

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/minibank/minibank/pkg/bank"
	"github.com/minibank/minibank/pkg/diag"
)

var logger = diag.CreateLogger()

// Storage is a persistance layer for whole ledger snapshots
type Storage interface {
	Setup(ctx context.Context) error
	Load(ctx context.Context) (*bank.Snapshot, error)
	Save(ctx context.Context, snapshot *bank.Snapshot) error
}

// flexString tolerates numeric looking values in persisted documents
// (e.g. account ids or PINs written as numbers) and decodes them as strings
type flexString string

// UnmarshalJSON implements lenient string decoding
func (s *flexString) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch val := raw.(type) {
	case nil:
		*s = ""
	case string:
		*s = flexString(val)
	case float64:
		*s = flexString(strconv.FormatFloat(val, 'f', -1, 64))
	case bool:
		*s = flexString(strconv.FormatBool(val))
	default:
		// Arrays and objects have no string meaning here
		*s = ""
	}
	return nil
}

type accountRecord struct {
	AccountID flexString `json:"account_id"`
	OwnerName flexString `json:"owner_name"`
	PINCode   flexString `json:"pin_code"`
	Balance   int64      `json:"balance"`
	CreatedAt string     `json:"created_at"`
}

type transactionRecord struct {
	TransactionID   flexString  `json:"transaction_id"`
	TransactionType flexString  `json:"transaction_type"`
	Amount          int64       `json:"amount"`
	TimeText        string      `json:"time_text"`
	Note            string      `json:"note"`
	FromAccountID   *flexString `json:"from_account_id"`
	ToAccountID     *flexString `json:"to_account_id"`
}

type accountList []accountRecord

// UnmarshalJSON replaces a non-array accounts value with an empty list
// rather than rejecting the whole document
func (l *accountList) UnmarshalJSON(data []byte) error {
	var items []accountRecord
	if err := json.Unmarshal(data, &items); err != nil {
		*l = accountList{}
		return nil
	}
	*l = items
	return nil
}

type transactionList []transactionRecord

// UnmarshalJSON replaces a non-array transactions value with an empty list
// rather than rejecting the whole document
func (l *transactionList) UnmarshalJSON(data []byte) error {
	var items []transactionRecord
	if err := json.Unmarshal(data, &items); err != nil {
		*l = transactionList{}
		return nil
	}
	*l = items
	return nil
}

type snapshotDocument struct {
	NextAccountID         int64           `json:"next_account_id"`
	NextTransactionNumber int64           `json:"next_transaction_number"`
	Accounts              accountList     `json:"accounts"`
	Transactions          transactionList `json:"transactions"`
}

func optionalID(value string) *flexString {
	if value == "" {
		return nil
	}
	id := flexString(value)
	return &id
}

func idValue(value *flexString) string {
	if value == nil {
		return ""
	}
	return string(*value)
}

func newSnapshotDocument(snapshot *bank.Snapshot) *snapshotDocument {
	doc := &snapshotDocument{
		NextAccountID:         snapshot.NextAccountID,
		NextTransactionNumber: snapshot.NextTransactionNumber,
		Accounts:              make(accountList, 0, len(snapshot.Accounts)),
		Transactions:          make(transactionList, 0, len(snapshot.Transactions)),
	}
	for _, account := range snapshot.Accounts {
		doc.Accounts = append(doc.Accounts, accountRecord{
			AccountID: flexString(account.AccountID),
			OwnerName: flexString(account.OwnerName),
			PINCode:   flexString(account.PINCode),
			Balance:   account.Balance,
			CreatedAt: account.CreatedAt,
		})
	}
	for _, transaction := range snapshot.Transactions {
		doc.Transactions = append(doc.Transactions, transactionRecord{
			TransactionID:   flexString(transaction.TransactionID),
			TransactionType: flexString(transaction.Type),
			Amount:          transaction.Amount,
			TimeText:        transaction.TimeText,
			Note:            transaction.Note,
			FromAccountID:   optionalID(transaction.FromAccountID),
			ToAccountID:     optionalID(transaction.ToAccountID),
		})
	}
	return doc
}

// toSnapshot converts a decoded document to ledger state applying the
// documented defaults: zero balance, current timestamp, empty note
func (doc *snapshotDocument) toSnapshot(now bank.NowService) *bank.Snapshot {
	defaultTimeText := now.Now().Format(bank.TimeTextFormat)

	snapshot := &bank.Snapshot{
		NextAccountID:         doc.NextAccountID,
		NextTransactionNumber: doc.NextTransactionNumber,
		Accounts:              make([]bank.Account, 0, len(doc.Accounts)),
		Transactions:          make([]bank.Transaction, 0, len(doc.Transactions)),
	}
	if snapshot.NextAccountID <= 0 {
		snapshot.NextAccountID = bank.DefaultNextAccountID
	}
	if snapshot.NextTransactionNumber <= 0 {
		snapshot.NextTransactionNumber = bank.DefaultNextTransactionNumber
	}
	for _, record := range doc.Accounts {
		createdAt := record.CreatedAt
		if createdAt == "" {
			createdAt = defaultTimeText
		}
		snapshot.Accounts = append(snapshot.Accounts, bank.Account{
			AccountID: string(record.AccountID),
			OwnerName: string(record.OwnerName),
			PINCode:   string(record.PINCode),
			Balance:   record.Balance,
			CreatedAt: createdAt,
		})
	}
	for _, record := range doc.Transactions {
		timeText := record.TimeText
		if timeText == "" {
			timeText = defaultTimeText
		}
		snapshot.Transactions = append(snapshot.Transactions, bank.Transaction{
			TransactionID: string(record.TransactionID),
			Type:          bank.TransactionType(record.TransactionType),
			Amount:        record.Amount,
			TimeText:      timeText,
			Note:          record.Note,
			FromAccountID: idValue(record.FromAccountID),
			ToAccountID:   idValue(record.ToAccountID),
		})
	}
	return snapshot
}

func defaultSnapshot() *bank.Snapshot {
	return &bank.Snapshot{
		NextAccountID:         bank.DefaultNextAccountID,
		NextTransactionNumber: bank.DefaultNextTransactionNumber,
		Accounts:              []bank.Account{},
		Transactions:          []bank.Transaction{},
	}
}
