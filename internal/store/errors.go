package store

import "errors"

// Sentinel errors translated from the gorm driver so callers test outcomes
// without importing gorm.
var (
	// ErrRecordNotFound reports a lookup that matched no ledger row.
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateKey reports a unique-constraint violation, e.g. an
	// already-issued download token.
	ErrDuplicateKey = errors.New("already exists")
)
