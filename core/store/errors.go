package store

import "errors"

var (
	// ErrNotFound is returned when the referenced report or organization
	// does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyClaimed is returned when a claim races against an existing
	// assignment. The winning assignment is never altered.
	ErrAlreadyClaimed = errors.New("already claimed")
	// ErrAlreadyResolved is returned when an operation targets a report
	// whose resolution has already been written.
	ErrAlreadyResolved = errors.New("already resolved")
	// ErrDuplicateAccessCode is returned when a registration reuses an
	// access code. Access codes are the sole login credential and must be
	// unique.
	ErrDuplicateAccessCode = errors.New("duplicate access code")
)
