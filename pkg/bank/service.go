package bank

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/minibank/minibank/pkg/diag"
)

var logger = diag.CreateLogger()

var pinCodePattern = regexp.MustCompile(`^[0-9]{4,6}$`)

// Service is a ledger service abstraction. It owns the account table and
// the append-only transaction log and enforces balance invariants.
type Service interface {
	CreateAccount(ctx context.Context, ownerName string, pinCode string, initialBalance int64) (string, error)
	Authenticate(ctx context.Context, accountID string, pinCode string) error
	GetAccount(ctx context.Context, accountID string) (*Account, bool)
	GetBalance(ctx context.Context, accountID string) (int64, error)
	Deposit(ctx context.Context, accountID string, amount int64, note string) error
	Withdraw(ctx context.Context, accountID string, amount int64, note string) error
	Transfer(ctx context.Context, fromAccountID string, toAccountID string, amount int64, note string) error
	GetHistory(ctx context.Context, accountID string) []Transaction
	Export(ctx context.Context) *Snapshot
}

type service struct {
	mu  sync.Mutex
	now NowService

	nextAccountID         int64
	nextTransactionNumber int64
	accountsByID          map[string]*Account
	transactions          []Transaction
}

func (svc *service) timeText() string {
	return svc.now.Now().Format(TimeTextFormat)
}

// newAccountID consumes the account counter. Callers must hold the lock
// and must have passed all validations so the counter never advances on
// a failed operation.
func (svc *service) newAccountID() string {
	id := strconv.FormatInt(svc.nextAccountID, 10)
	svc.nextAccountID++
	return id
}

func (svc *service) newTransactionID() string {
	id := fmt.Sprintf("TRANSACTION_%08d", svc.nextTransactionNumber)
	svc.nextTransactionNumber++
	return id
}

func isAmountValid(amount int64) bool {
	return amount > 0
}

// appendTransaction records a money movement. Callers must hold the lock.
func (svc *service) appendTransaction(
	transactionType TransactionType,
	amount int64,
	note string,
	fromAccountID string,
	toAccountID string,
) {
	svc.transactions = append(svc.transactions, Transaction{
		TransactionID: svc.newTransactionID(),
		Type:          transactionType,
		Amount:        amount,
		TimeText:      svc.timeText(),
		Note:          strings.TrimSpace(note),
		FromAccountID: fromAccountID,
		ToAccountID:   toAccountID,
	})
}

func (svc *service) CreateAccount(ctx context.Context, ownerName string, pinCode string, initialBalance int64) (string, error) {
	ownerName = strings.TrimSpace(ownerName)
	if ownerName == "" {
		return "", errors.Wrap(ErrInvalidInput, "owner name must not be empty")
	}
	if !pinCodePattern.MatchString(pinCode) {
		return "", errors.Wrap(ErrInvalidInput, "PIN must be 4 to 6 digits")
	}
	if initialBalance < 0 {
		return "", errors.Wrap(ErrInvalidInput, "initial balance must not be negative")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	accountID := svc.newAccountID()
	svc.accountsByID[accountID] = &Account{
		AccountID: accountID,
		OwnerName: ownerName,
		PINCode:   pinCode,
		Balance:   initialBalance,
		CreatedAt: svc.timeText(),
	}
	if initialBalance > 0 {
		svc.appendTransaction(TransactionTypeDeposit, initialBalance, "initial deposit", "", accountID)
	}

	logger.WithData(diag.MsgData{"accountID": accountID}).Info(ctx, "Created account")
	return accountID, nil
}

func (svc *service) Authenticate(ctx context.Context, accountID string, pinCode string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	account, ok := svc.accountsByID[accountID]
	if !ok {
		return errors.Wrapf(ErrNotFound, "authenticate %v", accountID)
	}
	if account.PINCode != pinCode {
		logger.WithData(diag.MsgData{"accountID": accountID}).Warn(ctx, "PIN mismatch")
		return errors.Wrapf(ErrInvalidCredential, "authenticate %v", accountID)
	}
	return nil
}

func (svc *service) GetAccount(ctx context.Context, accountID string) (*Account, bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	account, ok := svc.accountsByID[accountID]
	if !ok {
		return nil, false
	}
	cp := *account
	return &cp, true
}

func (svc *service) GetBalance(ctx context.Context, accountID string) (int64, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	account, ok := svc.accountsByID[accountID]
	if !ok {
		return 0, errors.Wrapf(ErrNotFound, "get balance of %v", accountID)
	}
	return account.Balance, nil
}

func (svc *service) Deposit(ctx context.Context, accountID string, amount int64, note string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	account, ok := svc.accountsByID[accountID]
	if !ok {
		return errors.Wrapf(ErrNotFound, "deposit to %v", accountID)
	}
	if !isAmountValid(amount) {
		return errors.Wrap(ErrInvalidInput, "deposit amount must be positive")
	}

	account.Balance += amount
	svc.appendTransaction(TransactionTypeDeposit, amount, note, "", account.AccountID)

	logger.WithData(diag.MsgData{"accountID": accountID, "amount": amount}).Info(ctx, "Deposit recorded")
	return nil
}

func (svc *service) Withdraw(ctx context.Context, accountID string, amount int64, note string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	account, ok := svc.accountsByID[accountID]
	if !ok {
		return errors.Wrapf(ErrNotFound, "withdraw from %v", accountID)
	}
	if !isAmountValid(amount) {
		return errors.Wrap(ErrInvalidInput, "withdraw amount must be positive")
	}
	if amount > account.Balance {
		return errors.Wrapf(ErrInsufficientFunds, "withdraw %v from %v", amount, accountID)
	}

	account.Balance -= amount
	svc.appendTransaction(TransactionTypeWithdraw, amount, note, account.AccountID, "")

	logger.WithData(diag.MsgData{"accountID": accountID, "amount": amount}).Info(ctx, "Withdrawal recorded")
	return nil
}

// Transfer debits the sender, credits the receiver and appends a
// TRANSFER_OUT/TRANSFER_IN pair within a single critical section. Both
// legs carry the full account pair, so no intermediate state is ever
// observable and the aggregate balance is conserved.
func (svc *service) Transfer(ctx context.Context, fromAccountID string, toAccountID string, amount int64, note string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	fromAccount, ok := svc.accountsByID[fromAccountID]
	if !ok {
		return errors.Wrapf(ErrNotFound, "transfer from %v", fromAccountID)
	}
	toAccount, ok := svc.accountsByID[toAccountID]
	if !ok {
		return errors.Wrapf(ErrNotFound, "transfer to %v", toAccountID)
	}
	if fromAccountID == toAccountID {
		return errors.Wrapf(ErrSameAccount, "transfer within %v", fromAccountID)
	}
	if !isAmountValid(amount) {
		return errors.Wrap(ErrInvalidInput, "transfer amount must be positive")
	}
	if amount > fromAccount.Balance {
		return errors.Wrapf(ErrInsufficientFunds, "transfer %v from %v", amount, fromAccountID)
	}

	fromAccount.Balance -= amount
	toAccount.Balance += amount
	svc.appendTransaction(TransactionTypeTransferOut, amount, note, fromAccount.AccountID, toAccount.AccountID)
	svc.appendTransaction(TransactionTypeTransferIn, amount, note, fromAccount.AccountID, toAccount.AccountID)

	logger.WithData(diag.MsgData{
		"fromAccountID": fromAccountID,
		"toAccountID":   toAccountID,
		"amount":        amount,
	}).Info(ctx, "Transfer recorded")
	return nil
}

// GetHistory returns transactions where the account is either side,
// most recent first. The sort is stable so entries with equal time text
// keep their append order.
func (svc *service) GetHistory(ctx context.Context, accountID string) []Transaction {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	var history []Transaction
	for _, transaction := range svc.transactions {
		if transaction.FromAccountID == accountID || transaction.ToAccountID == accountID {
			history = append(history, transaction)
		}
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].TimeText > history[j].TimeText
	})
	return history
}

// Export flattens the ledger state into a snapshot. Accounts are sorted
// by id so the output is deterministic.
func (svc *service) Export(ctx context.Context) *Snapshot {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	snapshot := &Snapshot{
		NextAccountID:         svc.nextAccountID,
		NextTransactionNumber: svc.nextTransactionNumber,
		Accounts:              make([]Account, 0, len(svc.accountsByID)),
		Transactions:          make([]Transaction, len(svc.transactions)),
	}
	for _, account := range svc.accountsByID {
		snapshot.Accounts = append(snapshot.Accounts, *account)
	}
	sort.Slice(snapshot.Accounts, func(i, j int) bool {
		return snapshot.Accounts[i].AccountID < snapshot.Accounts[j].AccountID
	})
	copy(snapshot.Transactions, svc.transactions)
	return snapshot
}

func (svc *service) restore(snapshot *Snapshot) {
	if snapshot.NextAccountID > 0 {
		svc.nextAccountID = snapshot.NextAccountID
	}
	if snapshot.NextTransactionNumber > 0 {
		svc.nextTransactionNumber = snapshot.NextTransactionNumber
	}
	for _, account := range snapshot.Accounts {
		cp := account
		svc.accountsByID[cp.AccountID] = &cp
	}
	svc.transactions = append(svc.transactions, snapshot.Transactions...)
}

// ServiceOpt is an option of a ledger service
type ServiceOpt func(*service)

// WithNowService will init the service with a custom time provider
func WithNowService(now NowService) ServiceOpt {
	return func(svc *service) {
		svc.now = now
	}
}

// WithSnapshot will restore the service state from a snapshot
func WithSnapshot(snapshot *Snapshot) ServiceOpt {
	return func(svc *service) {
		svc.restore(snapshot)
	}
}

// NewService returns an instance of a ledger service
func NewService(opts ...ServiceOpt) Service {
	svc := &service{
		now:                   NewSystemNowService(),
		nextAccountID:         DefaultNextAccountID,
		nextTransactionNumber: DefaultNextTransactionNumber,
		accountsByID:          make(map[string]*Account),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return Service(svc)
}
