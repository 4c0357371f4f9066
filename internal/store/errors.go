package store

import "errors"

var (
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrDuplicateNumber = errors.New("appointment number already in use")
	ErrDuplicateRoom   = errors.New("room number already in use")
)
