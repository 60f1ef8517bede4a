package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/minibank/minibank/pkg/bank"
	"github.com/minibank/minibank/pkg/diag"
)

var logger = diag.CreateLogger()

const defaultHistoryLimit = 10

// PersistFunc saves the current ledger snapshot
type PersistFunc func(ctx context.Context) error

// App is an interactive console application abstraction
type App interface {
	Run(ctx context.Context) error
}

type app struct {
	svc     bank.Service
	persist PersistFunc
	in      *bufio.Reader
	out     io.Writer
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) readLine(prompt string) (string, error) {
	a.printf("%s", prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPositiveInt reads a strictly positive integer. Empty or malformed
// input yields ok=false, matching single-shot prompt validation.
func (a *app) readPositiveInt(prompt string) (int64, bool, error) {
	text, err := a.readLine(prompt)
	if err != nil {
		return 0, false, err
	}
	value, parseErr := strconv.ParseInt(text, 10, 64)
	if parseErr != nil || value <= 0 {
		return 0, false, nil
	}
	return value, true, nil
}

// formatAmount renders an amount with thousands separators
func formatAmount(amount int64) string {
	text := strconv.FormatInt(amount, 10)
	negative := strings.HasPrefix(text, "-")
	if negative {
		text = text[1:]
	}
	var parts []string
	for len(text) > 3 {
		parts = append([]string{text[len(text)-3:]}, parts...)
		text = text[:len(text)-3]
	}
	parts = append([]string{text}, parts...)
	result := strings.Join(parts, ",")
	if negative {
		result = "-" + result
	}
	return result
}

// errorMessage maps domain errors to user facing text
func errorMessage(err error) string {
	switch errors.Cause(err) {
	case bank.ErrNotFound:
		return "Account does not exist."
	case bank.ErrInvalidCredential:
		return "Wrong PIN."
	case bank.ErrInvalidInput:
		return "Invalid input: " + err.Error()
	case bank.ErrInsufficientFunds:
		return "Insufficient funds."
	case bank.ErrSameAccount:
		return "Cannot transfer to the same account."
	default:
		return "Operation failed: " + err.Error()
	}
}

func (a *app) save(ctx context.Context) {
	if err := a.persist(ctx); err != nil {
		logger.WithError(err).Error(ctx, "Failed to save snapshot")
		a.printf("Warning: failed to save data: %v\n", err)
	}
}

func (a *app) Run(ctx context.Context) error {
	for {
		opCtx := diag.ContextWithOperationID(ctx, diag.NewOperationID())

		a.printf("\n%s\n", strings.Repeat("=", 60))
		a.printf("MINI BANK - console banking\n")
		a.printf("%s\n", strings.Repeat("=", 60))
		a.printf("1) Create account\n")
		a.printf("2) Log in\n")
		a.printf("3) Exit\n")

		choice, err := a.readLine("Select an option: ")
		if err != nil {
			return a.shutdown(ctx, err)
		}

		switch choice {
		case "1":
			if err := a.createAccountScreen(opCtx); err != nil {
				return a.shutdown(ctx, err)
			}
		case "2":
			if err := a.loginScreen(opCtx); err != nil {
				return a.shutdown(ctx, err)
			}
		case "3":
			return a.shutdown(ctx, nil)
		default:
			a.printf("Unknown option.\n")
		}
	}
}

// shutdown saves the snapshot before leaving the loop. Input errors other
// than a closed stream are reported to the caller.
func (a *app) shutdown(ctx context.Context, err error) error {
	a.save(ctx)
	a.printf("Data saved. Goodbye.\n")
	if err == io.EOF {
		return nil
	}
	return err
}

func (a *app) createAccountScreen(ctx context.Context) error {
	a.printf("\n--- CREATE ACCOUNT ---\n")
	ownerName, err := a.readLine("Owner name: ")
	if err != nil {
		return err
	}
	pinCode, err := a.readLine("PIN (4-6 digits): ")
	if err != nil {
		return err
	}
	balanceText, err := a.readLine("Initial balance (Enter for 0): ")
	if err != nil {
		return err
	}

	var initialBalance int64
	if balanceText != "" {
		value, parseErr := strconv.ParseInt(balanceText, 10, 64)
		if parseErr != nil || value < 0 {
			a.printf("Invalid initial balance. Defaulting to 0.\n")
		} else {
			initialBalance = value
		}
	}

	accountID, createErr := a.svc.CreateAccount(ctx, ownerName, pinCode, initialBalance)
	if createErr != nil {
		a.printf("%s\n", errorMessage(createErr))
		return nil
	}
	a.printf("Account created. Account number: %s\n", accountID)

	if balance, balanceErr := a.svc.GetBalance(ctx, accountID); balanceErr == nil {
		a.printf("Current balance: %s\n", formatAmount(balance))
	}
	a.save(ctx)
	return nil
}

func (a *app) loginScreen(ctx context.Context) error {
	a.printf("\n--- LOG IN ---\n")
	accountID, err := a.readLine("Account number: ")
	if err != nil {
		return err
	}
	pinCode, err := a.readLine("PIN: ")
	if err != nil {
		return err
	}

	if authErr := a.svc.Authenticate(ctx, accountID, pinCode); authErr != nil {
		a.printf("%s\n", errorMessage(authErr))
		return nil
	}
	a.printf("Logged in.\n")
	return a.sessionMenu(ctx, accountID)
}

func (a *app) sessionMenu(ctx context.Context, accountID string) error {
	for {
		account, ok := a.svc.GetAccount(ctx, accountID)
		if !ok {
			a.printf("Account no longer available.\n")
			return nil
		}

		a.printf("\n%s\n", strings.Repeat("-", 60))
		a.printf("ACCOUNT: %s | OWNER: %s\n", account.AccountID, account.OwnerName)
		a.printf("BALANCE: %s\n", formatAmount(account.Balance))
		a.printf("%s\n", strings.Repeat("-", 60))
		a.printf("1) Deposit\n")
		a.printf("2) Withdraw\n")
		a.printf("3) Transfer\n")
		a.printf("4) Balance\n")
		a.printf("5) History\n")
		a.printf("6) Log out\n")

		choice, err := a.readLine("Select an option: ")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			if err := a.depositScreen(ctx, accountID); err != nil {
				return err
			}
		case "2":
			if err := a.withdrawScreen(ctx, accountID); err != nil {
				return err
			}
		case "3":
			if err := a.transferScreen(ctx, accountID); err != nil {
				return err
			}
		case "4":
			if balance, balanceErr := a.svc.GetBalance(ctx, accountID); balanceErr == nil {
				a.printf("Current balance: %s\n", formatAmount(balance))
			}
		case "5":
			if err := a.historyScreen(ctx, accountID); err != nil {
				return err
			}
		case "6":
			a.printf("Logged out.\n")
			return nil
		default:
			a.printf("Unknown option.\n")
		}
	}
}

func (a *app) depositScreen(ctx context.Context, accountID string) error {
	a.printf("\n--- DEPOSIT ---\n")
	amount, ok, err := a.readPositiveInt("Amount: ")
	if err != nil {
		return err
	}
	if !ok {
		a.printf("Invalid amount.\n")
		return nil
	}
	note, err := a.readLine("Note (Enter to skip): ")
	if err != nil {
		return err
	}
	if depositErr := a.svc.Deposit(ctx, accountID, amount, note); depositErr != nil {
		a.printf("%s\n", errorMessage(depositErr))
		return nil
	}
	a.printf("Deposit successful.\n")
	a.save(ctx)
	return nil
}

func (a *app) withdrawScreen(ctx context.Context, accountID string) error {
	a.printf("\n--- WITHDRAW ---\n")
	amount, ok, err := a.readPositiveInt("Amount: ")
	if err != nil {
		return err
	}
	if !ok {
		a.printf("Invalid amount.\n")
		return nil
	}
	note, err := a.readLine("Note (Enter to skip): ")
	if err != nil {
		return err
	}
	if withdrawErr := a.svc.Withdraw(ctx, accountID, amount, note); withdrawErr != nil {
		a.printf("%s\n", errorMessage(withdrawErr))
		return nil
	}
	a.printf("Withdrawal successful.\n")
	a.save(ctx)
	return nil
}

func (a *app) transferScreen(ctx context.Context, fromAccountID string) error {
	a.printf("\n--- TRANSFER ---\n")
	toAccountID, err := a.readLine("Receiving account number: ")
	if err != nil {
		return err
	}
	amount, ok, err := a.readPositiveInt("Amount: ")
	if err != nil {
		return err
	}
	if !ok {
		a.printf("Invalid amount.\n")
		return nil
	}
	note, err := a.readLine("Note (Enter to skip): ")
	if err != nil {
		return err
	}
	if transferErr := a.svc.Transfer(ctx, fromAccountID, toAccountID, amount, note); transferErr != nil {
		a.printf("%s\n", errorMessage(transferErr))
		return nil
	}
	a.printf("Transfer successful.\n")
	a.save(ctx)
	return nil
}

func (a *app) historyScreen(ctx context.Context, accountID string) error {
	a.printf("\n--- TRANSACTION HISTORY (most recent first) ---\n")
	history := a.svc.GetHistory(ctx, accountID)
	if len(history) == 0 {
		a.printf("No transactions yet.\n")
		return nil
	}

	limitText, err := a.readLine(fmt.Sprintf("How many transactions? (Enter = %d): ", defaultHistoryLimit))
	if err != nil {
		return err
	}
	limit := int64(defaultHistoryLimit)
	if limitText != "" {
		if value, parseErr := strconv.ParseInt(limitText, 10, 64); parseErr == nil && value >= 1 {
			limit = value
		}
	}
	if limit > int64(len(history)) {
		limit = int64(len(history))
	}

	for index, transaction := range history[:limit] {
		counterparty := ""
		switch transaction.Type {
		case bank.TransactionTypeTransferOut, bank.TransactionTypeTransferIn:
			counterparty = fmt.Sprintf(" %s -> %s", transaction.FromAccountID, transaction.ToAccountID)
		}
		a.printf("%d) %s | %s | %s%s | %s\n",
			index+1,
			transaction.TimeText,
			transaction.Type,
			formatAmount(transaction.Amount),
			counterparty,
			transaction.Note,
		)
	}
	return nil
}

// AppOpt is an option of a console app
type AppOpt func(*app)

// WithService will init the app with a ledger service
func WithService(svc bank.Service) AppOpt {
	return func(a *app) {
		a.svc = svc
	}
}

// WithPersist will init the app with a snapshot save hook
func WithPersist(persist PersistFunc) AppOpt {
	return func(a *app) {
		a.persist = persist
	}
}

// WithInput will set an input stream of the app
func WithInput(in io.Reader) AppOpt {
	return func(a *app) {
		a.in = bufio.NewReader(in)
	}
}

// WithOutput will set an output stream of the app
func WithOutput(out io.Writer) AppOpt {
	return func(a *app) {
		a.out = out
	}
}

// NewApp returns an instance of a console app
func NewApp(opts ...AppOpt) App {
	a := &app{}
	for _, opt := range opts {
		opt(a)
	}
	return App(a)
}
