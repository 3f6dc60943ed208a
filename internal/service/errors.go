package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies workflow failures by what the caller should do about them.
type Kind int

const (
	// KindValidation means the input itself is wrong; fix it, do not retry.
	KindValidation Kind = iota + 1
	// KindPrecondition means the current state forbids the call; resolve the
	// state before retrying.
	KindPrecondition
	// KindInvariant means a write workflow produced an inconsistent result.
	// The transaction was aborted; this is a defect, not user error.
	KindInvariant
	// KindTransient means the store failed in a retryable way. The engine
	// performs no automatic retries; safe re-attachment is guaranteed by the
	// precondition checks, not by at-most-once delivery.
	KindTransient
)

// Error is the typed failure every engine operation returns.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is what callers may show. Validation and precondition failures
// are actionable; everything else is deliberately generic.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindValidation, KindPrecondition:
		return e.Message
	default:
		return "internal error, please retry later"
	}
}

func validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func preconditionf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

func invariantf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvariant, Message: fmt.Sprintf(format, args...)}
}

func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsValidation reports whether err is a bad-input rejection.
func IsValidation(err error) bool { return kindOf(err) == KindValidation }

// IsPrecondition reports whether err is a state rejection.
func IsPrecondition(err error) bool { return kindOf(err) == KindPrecondition }

// IsInvariant reports whether err is a post-write consistency violation.
func IsInvariant(err error) bool { return kindOf(err) == KindInvariant }

// IsTransient reports whether err is safe to retry with backoff.
func IsTransient(err error) bool { return kindOf(err) == KindTransient }

// classify wraps store-level failures that escaped the workflow untyped.
// Serialization conflicts, cancelled statements and connection failures are
// retryable; anything else surfaces as-is.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTransient, Message: "store timeout", Err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"57014", // query_canceled
			"08000", "08003", "08006": // connection failures
			return &Error{Kind: KindTransient, Message: "transient store failure", Err: err}
		}
	}
	return err
}
