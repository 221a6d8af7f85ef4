package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection matches every *ConnectionError
	ErrConnection = errors.New("connection error")
	// ErrInvalidQuery matches every *InvalidQueryError
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNotConnected matches every *NotConnectedError
	ErrNotConnected = errors.New("not connected")
	// ErrInvalidDocument is returned when insert data is not a document or a list of documents
	ErrInvalidDocument = errors.New("invalid document")
)

// ConnectionError reports a namespace that could not be opened or persisted.
type ConnectionError struct {
	Database string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database %q: %v", e.Database, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// InvalidQueryError reports an unknown or malformed query operator.
type InvalidQueryError struct {
	Field    string
	Operator string
	Reason   string
}

func (e *InvalidQueryError) Error() string {
	if e.Operator != "" {
		return fmt.Sprintf("invalid query on field %q: operator %s: %s", e.Field, e.Operator, e.Reason)
	}
	return fmt.Sprintf("invalid query on field %q: %s", e.Field, e.Reason)
}

func (e *InvalidQueryError) Is(target error) bool { return target == ErrInvalidQuery }

// NotConnectedError reports an operation issued before connect completed.
type NotConnectedError struct {
	Operation string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("%s: not connected to a database", e.Operation)
}

func (e *NotConnectedError) Is(target error) bool { return target == ErrNotConnected }
