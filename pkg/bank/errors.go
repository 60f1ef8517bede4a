package bank

import "errors"

// Domain errors returned by the ledger service. Specific failures are
// wrapped with github.com/pkg/errors so callers classify via errors.Cause.
var (
	// ErrNotFound is returned when an account id is not known to the ledger
	ErrNotFound = errors.New("account not found")

	// ErrInvalidCredential is returned when a PIN does not match the stored value
	ErrInvalidCredential = errors.New("invalid PIN")

	// ErrInvalidInput is returned for malformed input: empty owner name,
	// malformed PIN, negative initial balance or a non-positive amount
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientFunds is returned when a withdrawal or transfer exceeds the balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSameAccount is returned when a transfer target equals its source
	ErrSameAccount = errors.New("transfer to same account")
)
