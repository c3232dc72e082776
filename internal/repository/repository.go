package repository

import "errors"

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres, memory) inside this directory.

var (
	// ErrNotFound is returned when no record exists for the requested id.
	ErrNotFound = errors.New("metadata record not found")
	// ErrCatalogUnavailable wraps any failure of the underlying metadata store.
	ErrCatalogUnavailable = errors.New("metadata catalog unavailable")
)
