package repository

import "errors"

var (
	// ErrNotFound is returned when no row matches the requested id
	ErrNotFound = errors.New("record not found")

	// ErrUsernameTaken and ErrEmailTaken are returned when an insert hits the
	// matching unique index
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already exists")

	// ErrPatientNotFound is returned when an order references a patient that
	// does not exist
	ErrPatientNotFound = errors.New("patient not found")
)
