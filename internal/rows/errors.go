package rows

import "errors"

var (
	// ErrNotFound is returned when no row has the requested identity.
	ErrNotFound = errors.New("row not found")
	// ErrMalformedInput is returned when a snapshot does not decode to rows.
	ErrMalformedInput = errors.New("malformed snapshot")
	// ErrInvalidEdit is returned for an unknown field or a value the field cannot hold.
	ErrInvalidEdit = errors.New("invalid edit")
	// ErrPersist is returned when a mutation could not be saved. The store is unchanged.
	ErrPersist = errors.New("failed to persist snapshot")
	// ErrInvalidPredicate is returned when a filter expression does not compile.
	ErrInvalidPredicate = errors.New("invalid predicate")
)
