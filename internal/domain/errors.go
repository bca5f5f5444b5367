package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrProviderNotFound = errors.New("provider not found")
	// ErrStaleStatus is returned by a conditional update when the stored
	// status no longer matches the expected one.
	ErrStaleStatus = errors.New("provider status changed concurrently")
)

// NameConflictError is returned when a provider name is already in use.
type NameConflictError struct {
	Name string
}

func (e *NameConflictError) Error() string {
	return fmt.Sprintf("provider name %q is already in use", e.Name)
}

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// ValidationError reports a field that violates a creation invariant.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// FatalImportKind classifies request-level import failures.
type FatalImportKind string

const (
	FatalBadExtension FatalImportKind = "bad_extension"
	FatalTooLarge     FatalImportKind = "too_large"
	FatalEncoding     FatalImportKind = "invalid_encoding"
	FatalMalformed    FatalImportKind = "malformed_csv"
	FatalHeader       FatalImportKind = "invalid_header"
)

// FatalImportError aborts an import before any row is processed.
type FatalImportError struct {
	Kind    FatalImportKind
	Message string
	Err     error
}

func (e *FatalImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *FatalImportError) Unwrap() error {
	return e.Err
}

// ErrActorRequired is returned when a mutation is attempted without an actor.
var ErrActorRequired = errors.New("actor is required")
