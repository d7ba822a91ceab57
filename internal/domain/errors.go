package domain

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a cleanup run did not complete normally.
type FailureKind int

const (
	KindUnknown FailureKind = iota
	KindInvalidConfiguration
	KindNoIndicesToDelete
	KindConnection
	KindDeletionFailed
	KindMalformedIndexName
)

const (
	MsgNoIndices      = "No Indices to be deleted"
	MsgDeletionFailed = "Failed to delete Indices, validate client connection"
	MsgConnection     = "failed to reach index endpoint, validate client connection"
)

func (k FailureKind) String() string {
	switch k {
	case KindInvalidConfiguration:
		return "invalid_configuration"
	case KindNoIndicesToDelete:
		return "no_indices_to_delete"
	case KindConnection:
		return "connection_error"
	case KindDeletionFailed:
		return "deletion_failed"
	case KindMalformedIndexName:
		return "malformed_index_name"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    FailureKind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func InvalidField(field, reason string) *Error {
	return &Error{
		Kind:    KindInvalidConfiguration,
		Field:   field,
		Message: fmt.Sprintf("invalid %s: %s", field, reason),
	}
}

func ConnectionError(err error) *Error {
	return &Error{Kind: KindConnection, Message: MsgConnection, Err: err}
}

func DeletionFailed(err error) *Error {
	return &Error{Kind: KindDeletionFailed, Message: MsgDeletionFailed, Err: err}
}

func MalformedIndexName(name string) *Error {
	return &Error{
		Kind:    KindMalformedIndexName,
		Field:   "index",
		Message: fmt.Sprintf("index %q has no %s date stamp", name, IndexDateLayout),
	}
}

// KindOf returns the failure kind carried by err, or KindUnknown.
func KindOf(err error) FailureKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// FieldOf returns the offending configuration field, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}
