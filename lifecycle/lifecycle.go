package lifecycle

import (
	// Go Internal Packages
	"fmt"
	"time"

	// Local Packages
	errors "payflow/errors"
	models "payflow/models"
)

// transitions is the full status transition table. A status missing from the
// map, or mapped to an empty set, is terminal.
var transitions = map[models.TransactionStatus][]models.TransactionStatus{
	models.StatusPending:           {models.StatusProcessing, models.StatusCancelled, models.StatusFailed},
	models.StatusProcessing:        {models.StatusSucceeded, models.StatusFailed, models.StatusCancelled, models.StatusRequiresAction},
	models.StatusRequiresAction:    {models.StatusProcessing, models.StatusFailed, models.StatusCancelled},
	models.StatusSucceeded:         {models.StatusRefunded, models.StatusPartiallyRefunded, models.StatusDisputed},
	models.StatusPartiallyRefunded: {models.StatusRefunded, models.StatusDisputed},
	models.StatusRefunded:          {models.StatusDisputed},
	models.StatusFailed:            {},
	models.StatusCancelled:         {},
	models.StatusDisputed:          {},
	models.StatusExpired:           {},
}

// Known reports whether s is a defined transaction status.
func Known(s models.TransactionStatus) bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether s has no outbound transitions.
func Terminal(s models.TransactionStatus) bool {
	return Known(s) && len(transitions[s]) == 0
}

// CanTransition reports whether from -> to is in the table.
func CanTransition(from, to models.TransactionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Stamps are the timestamps a transition sets as a side effect.
type Stamps struct {
	ProcessedAt *time.Time
	SettledAt   *time.Time
}

// StampsFor computes the timestamps entering a status sets. Succeeded stamps
// both processedAt and settledAt; failed and cancelled stamp processedAt
// only. Everything else stamps nothing.
func StampsFor(to models.TransactionStatus, now time.Time) Stamps {
	switch to {
	case models.StatusSucceeded:
		return Stamps{ProcessedAt: &now, SettledAt: &now}
	case models.StatusFailed, models.StatusCancelled:
		return Stamps{ProcessedAt: &now}
	}
	return Stamps{}
}

// Transition validates and applies a status change in place. On an invalid
// transition the transaction is left untouched and an Invalid error is
// returned. Timestamps already set are never overwritten.
func Transition(tx *models.Transaction, to models.TransactionStatus, now time.Time) error {
	if !Known(to) {
		return errors.E(errors.Invalid, fmt.Sprintf("unknown status %q", to), nil)
	}
	if !CanTransition(tx.Status, to) {
		return errors.E(errors.Invalid,
			fmt.Sprintf("invalid transition %s -> %s for transaction %s", tx.Status, to, tx.ID), nil)
	}

	stamps := StampsFor(to, now)
	if stamps.ProcessedAt != nil && tx.ProcessedAt == nil {
		tx.ProcessedAt = stamps.ProcessedAt
	}
	if stamps.SettledAt != nil && tx.SettledAt == nil {
		tx.SettledAt = stamps.SettledAt
	}

	tx.Status = to
	tx.UpdatedAt = now
	return nil
}
