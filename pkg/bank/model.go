package bank

import "time"

// TimeTextFormat is a layout of all timestamps recorded by the ledger
const TimeTextFormat = "2006-01-02 15:04:05"

// Initial counter values of an empty ledger
const (
	DefaultNextAccountID         = 100001
	DefaultNextTransactionNumber = 1
)

// NowService is an abstraction of a current time provider
type NowService interface {
	Now() time.Time
}

type systemNowService struct{}

func (svc systemNowService) Now() time.Time {
	return time.Now()
}

// NewSystemNowService returns a now service backed by the system clock
func NewSystemNowService() NowService {
	return systemNowService{}
}

// TransactionType holds a kind of a recorded money movement
type TransactionType string

// Supported transaction types
const (
	TransactionTypeDeposit     TransactionType = "DEPOSIT"
	TransactionTypeWithdraw    TransactionType = "WITHDRAW"
	TransactionTypeTransferOut TransactionType = "TRANSFER_OUT"
	TransactionTypeTransferIn  TransactionType = "TRANSFER_IN"
)

// Account represents a bank account. Balance is kept in a smallest
// currency unit and never goes negative.
type Account struct {
	AccountID string
	OwnerName string
	PINCode   string
	Balance   int64
	CreatedAt string
}

// Transaction represents a single recorded money movement.
// Transactions are immutable once appended to the log.
// FromAccountID/ToAccountID are empty when not applicable, except for
// transfers which carry the full account pair on both legs.
type Transaction struct {
	TransactionID string
	Type          TransactionType
	Amount        int64
	TimeText      string
	Note          string
	FromAccountID string
	ToAccountID   string
}

// Snapshot is a full serializable copy of the ledger state
type Snapshot struct {
	NextAccountID         int64
	NextTransactionNumber int64
	Accounts              []Account
	Transactions          []Transaction
}
