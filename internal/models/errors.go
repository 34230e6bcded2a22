package models

import "errors"

var (
	// ErrNotFound is returned by repositories when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrMalformedBalance marks a stored ledger whose shape is corrupt.
	// It is never a user input problem.
	ErrMalformedBalance = errors.New("malformed balance state")
)
