package services

import (
	"errors"
	"fmt"
)

const (
	AUTHENTICATION_REQUIRED          = "authenticated caller is required"
	ACCESS_DENIED                    = "this user doesnot have access to the record"
	PATIENT_NOT_FOUND                = "patient not found"
	CONSULTATION_NOT_FOUND           = "consultation not found"
	CONSULTATION_WITHIN_WINDOW       = "consultation already exists within ±%d minutes"
	INITIAL_CONSULTATION_DATE_LOCKED = "the date of the initial consultation cannot be changed"
	INITIAL_CONSULTATION_NOT_FOUND   = "no initial consultation for this patient"
	INVOICES_NEED_REVIEW             = "%d invoices flagged for manual review"
	STORAGE_FAILURE                  = "storage operation failed"
	INVALID_FIELD_TYPE               = "invalid field type"
)

type Kind int

const (
	KindAuthenticationRequired Kind = iota + 1
	KindAuthorizationDenied
	KindNotFound
	KindValidationConflict
	KindInvalidInput
	KindReviewRequired
	KindStorageFailure
)

func (k Kind) String() string {
	switch k {
	case KindAuthenticationRequired:
		return "AuthenticationRequired"
	case KindAuthorizationDenied:
		return "AuthorizationDenied"
	case KindNotFound:
		return "NotFound"
	case KindValidationConflict:
		return "ValidationConflict"
	case KindInvalidInput:
		return "InvalidInput"
	case KindReviewRequired:
		return "ReviewRequired"
	case KindStorageFailure:
		return "StorageFailure"
	}
	return "Unknown"
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can test against the
// sentinels below with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Msg == "" && t.Kind == e.Kind
}

var (
	ErrAuthenticationRequired = &Error{Kind: KindAuthenticationRequired}
	ErrAuthorizationDenied    = &Error{Kind: KindAuthorizationDenied}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrValidationConflict     = &Error{Kind: KindValidationConflict}
	ErrInvalidInput           = &Error{Kind: KindInvalidInput}
	ErrReviewRequired         = &Error{Kind: KindReviewRequired}
	ErrStorageFailure         = &Error{Kind: KindStorageFailure}
)

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func storageError(err error) *Error {
	return &Error{Kind: KindStorageFailure, Msg: STORAGE_FAILURE, Err: err}
}

// KindOf returns the kind of a service error, or 0 for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
