package errors

import stderrors "errors"

// Kind sentinels classify every error the engine returns. Module errors wrap
// exactly one of them so callers can branch with errors.Is.
var (
	ErrValidation   = stderrors.New("validation")
	ErrNotFound     = stderrors.New("not found")
	ErrUnauthorized = stderrors.New("unauthorized")
	ErrArithmetic   = stderrors.New("arithmetic")
)

// Kind names the class of an error.
type Kind string

const (
	KindNone         Kind = ""
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindArithmetic   Kind = "arithmetic"
	KindInternal     Kind = "internal"
)

// KindOf classifies err. Errors that wrap none of the sentinels are internal
// failures (storage, codec).
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case stderrors.Is(err, ErrValidation):
		return KindValidation
	case stderrors.Is(err, ErrNotFound):
		return KindNotFound
	case stderrors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case stderrors.Is(err, ErrArithmetic):
		return KindArithmetic
	default:
		return KindInternal
	}
}

// Shared request-level errors used by more than one module.
var (
	ErrFundsNotAllowed = Wrap(ErrValidation, "funds must not be attached")
	ErrEmptyFunds      = Wrap(ErrValidation, "funds required")
	ErrMultipleDenoms  = Wrap(ErrValidation, "exactly one denomination required")
	ErrZeroAmount      = Wrap(ErrValidation, "amount must be positive")
	ErrNegativeAmount  = Wrap(ErrValidation, "amounts must not be negative")
	ErrAdminOnly       = Wrap(ErrUnauthorized, "admin only")
)

type wrapped struct {
	kind error
	msg  string
}

func (w *wrapped) Error() string { return w.msg }
func (w *wrapped) Unwrap() error { return w.kind }

// Wrap creates a sentinel of the given kind with its own message.
func Wrap(kind error, msg string) error {
	return &wrapped{kind: kind, msg: msg}
}
