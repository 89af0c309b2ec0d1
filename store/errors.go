package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error taxonomy shared by stores, resolver and HTTP handlers. Callers match
// with errors.Is; stores wrap the underlying cause so it stays inspectable.
var (
	// ErrNotFound: referenced user, group, permission or grant does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation: malformed input, e.g. an expiry in the past at grant time.
	ErrValidation = errors.New("validation failed")
	// ErrConflict: reserved for administratively locked groups.
	ErrConflict = errors.New("conflict")
	// ErrDependency: storage unavailable; retryable by the caller.
	ErrDependency = errors.New("dependency unavailable")
)

// wrapDB maps a gorm/database error onto the taxonomy. Record-not-found means
// the referenced row is missing; anything else is a dependency failure.
func wrapDB(err error) error {
	if err == nil {
		return nil
	}
	if isTaxonomy(err) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrDependency, err)
}

// isTaxonomy reports whether err already carries one of the sentinels, so a
// transaction callback's typed error is not re-wrapped as ErrDependency.
func isTaxonomy(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) || errors.Is(err, ErrDependency)
}
