package service

import "errors"

var (
	ErrFormNotFound       = errors.New("form not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrFormSlugTaken      = errors.New("form id already in use")
	ErrInvalidInput       = errors.New("invalid input")

	// ErrTransactionAborted wraps any store failure that rolled a write back.
	ErrTransactionAborted = errors.New("transaction aborted")
)
