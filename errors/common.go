package errors

import "fmt"

func InvalidParamsErr(err error) error {
	return E(Invalid, "invalid params", err)
}

func ValidationFailedErr(err error) error {
	return E(Invalid, "validation failed", err)
}

func EmptyParamErr(field string) error {
	ve := ValidationErrs()
	ve.Add(field, "cannot be empty")
	return E(Invalid, "validation failed", ve.Err())
}

// TransactionNotFoundErr returns a NotFound error for a missing transaction
func TransactionNotFoundErr(txID string) error {
	return E(NotFound, fmt.Sprintf("transaction %s not found", txID), nil)
}

// GatewayNotFoundErr returns a NotFound error for an unknown gateway id
func GatewayNotFoundErr(gatewayID string) error {
	return E(NotFound, fmt.Sprintf("gateway %s not found", gatewayID), nil)
}

// NoEligibleGatewayErr is fatal: no configured gateway can take the request
func NoEligibleGatewayErr(amount, currency string) error {
	return E(Config, fmt.Sprintf("no eligible gateway for %s %s", amount, currency), nil)
}

// DuplicateTransactionErr is raised when a duplicate is detected outside the
// idempotency TTL window, via the store's unique reference index.
func DuplicateTransactionErr(internalRef string, err error) error {
	return E(Conflict, fmt.Sprintf("duplicate transaction for reference %s", internalRef), err)
}

// ConflictErr reports a lost optimistic-concurrency race on a transaction.
func ConflictErr(txID string, err error) error {
	return E(Conflict, fmt.Sprintf("concurrent update on transaction %s", txID), err)
}
