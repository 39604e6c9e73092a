package service

import "errors"

// Sentinel errors the handlers translate into HTTP status codes.
var (
	// ErrValidation: malformed or out-of-bound input, client must correct it.
	ErrValidation = errors.New("validation failed")
	// ErrAlreadyInLibrary: the caller already has a progress row on the book.
	ErrAlreadyInLibrary = errors.New("book already in library")
	// ErrPageOutOfRange: current page negative or beyond the book's page count.
	ErrPageOutOfRange = errors.New("current page out of range")
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
)
