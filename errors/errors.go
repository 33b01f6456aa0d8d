package errors

import (
	// Go Internal Packages
	"errors"
	"fmt"
)

// Kind classifies an error so that callers can make retry and failover
// decisions from data instead of matching message text.
type Kind uint8

const (
	Other             Kind = iota // unclassified
	Invalid                       // bad input or invalid state transition
	NotFound                      // entity does not exist
	Conflict                      // concurrent update lost or duplicate record
	Declined                      // gateway declined the card, definitive
	InsufficientFunds             // gateway reported insufficient funds, definitive
	Fraud                         // blocked before dispatch by fraud assessment
	Unavailable                   // gateway infrastructure failure (5xx, connection)
	RateLimited                   // gateway rate limit hit
	Timeout                       // attempt exceeded its deadline
	Config                        // no eligible gateway or bad static configuration
	Internal                      // bug or broken invariant on our side
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Declined:
		return "declined"
	case InsufficientFunds:
		return "insufficient_funds"
	case Fraud:
		return "fraud"
	case Unavailable:
		return "unavailable"
	case RateLimited:
		return "rate_limited"
	case Timeout:
		return "timeout"
	case Config:
		return "config"
	case Internal:
		return "internal"
	}
	return "other"
}

// Error is the concrete error type used across the module.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// E builds an *Error. A nil err is allowed.
func E(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf walks the unwrap chain and returns the kind of the outermost
// *Error, or Other if no *Error is present.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}

// Is reports whether err carries the given kind.
func Is(kind Kind, err error) bool {
	return KindOf(err) == kind
}

// MessageOf returns the message of the outermost *Error, or err.Error()
// when no *Error is present.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Retryable reports whether err represents a transient infrastructure
// failure. Definitive gateway decisions (Declined, InsufficientFunds) and
// validation failures are never retryable.
func Retryable(err error) bool {
	switch KindOf(err) {
	case Unavailable, RateLimited, Timeout:
		return true
	}
	return false
}
