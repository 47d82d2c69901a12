package common

import (
	"errors"
	"fmt"
)

// ErrorKind classifies domain errors so the transport layer can map
// them to status codes without inspecting messages.
type ErrorKind int

const (
	KindValidation ErrorKind = 1000 + iota
	KindConflict
	KindNotFound
	KindAccessDenied
	KindTransientStore
)

// DomainError is the error type returned by all core services.
type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewValidationError(message string) *DomainError {
	return &DomainError{Kind: KindValidation, Message: message}
}

func NewConflictError(message string) *DomainError {
	return &DomainError{Kind: KindConflict, Message: message}
}

func NewNotFoundError(message string) *DomainError {
	return &DomainError{Kind: KindNotFound, Message: message}
}

func NewAccessDeniedError(message string) *DomainError {
	return &DomainError{Kind: KindAccessDenied, Message: message}
}

// NewTransientStoreError wraps a persistence failure. The enclosing
// transaction is rolled back and the caller may retry the whole event.
func NewTransientStoreError(message string, err error) *DomainError {
	return &DomainError{Kind: KindTransientStore, Message: message, Err: err}
}

func kindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

func IsValidation(err error) bool     { return kindOf(err) == KindValidation }
func IsConflict(err error) bool       { return kindOf(err) == KindConflict }
func IsNotFound(err error) bool       { return kindOf(err) == KindNotFound }
func IsAccessDenied(err error) bool   { return kindOf(err) == KindAccessDenied }
func IsTransientStore(err error) bool { return kindOf(err) == KindTransientStore }
