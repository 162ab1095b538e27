package core

import "errors"

var (
	// ErrParse is returned for unknown factor/strategy names and malformed
	// name or param literals.
	ErrParse = errors.New("parse error")
	// ErrSchema is returned when a referenced column is absent from a frame
	// or has an unusable type.
	ErrSchema = errors.New("schema error")
	// ErrShape is returned on length mismatches: alignment of inconsistent
	// keys, tcut label/bin mismatch, binary ops on unequal columns.
	ErrShape = errors.New("shape error")
	// ErrRegistry is returned on duplicate factor or strategy registration.
	ErrRegistry = errors.New("registry error")
	// ErrEngine wraps failures bubbled up from the underlying dataframe engine.
	ErrEngine = errors.New("engine error")
	// ErrDomain is returned for unsupported rules or data types.
	ErrDomain = errors.New("domain error")
)
