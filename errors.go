package attrstore

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrKeyNotFound is returned when a record type has no field tagged as the key.
	ErrKeyNotFound = errors.New("attrstore: key field not found")

	// ErrMultipleKeys is returned when a record type has more than one field tagged as the key.
	ErrMultipleKeys = errors.New("attrstore: multiple key fields found")

	// ErrNotStruct is returned when a record type is not a struct.
	ErrNotStruct = errors.New("attrstore: record type must be a struct")

	// ErrUnsupportedType is returned when a field's type has no string conversion.
	ErrUnsupportedType = errors.New("attrstore: unsupported field type")

	// ErrKeyType is returned when a provider's identifier type differs from the key field type.
	ErrKeyType = errors.New("attrstore: identifier type does not match key field")

	// ErrEmptyKey is returned when a record is saved with an empty identifier.
	ErrEmptyKey = errors.New("attrstore: empty item name")

	// ErrChunkOrder is returned when the chunks stored for an attribute cannot be reassembled.
	ErrChunkOrder = errors.New("attrstore: invalid chunk sequence")
)

// MappingError reports a record type that cannot be mapped to store items.
type MappingError struct {
	Type  reflect.Type // The record type
	Field string       // The offending field, if any
	Err   error        // The underlying cause
}

func (e *MappingError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("cannot map %v field %s: %v", e.Type, e.Field, e.Err)
	}
	return fmt.Sprintf("cannot map %v: %v", e.Type, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

// ConversionError reports a value that cannot be converted to or from a field's type.
type ConversionError struct {
	Field string // The attribute name
	Value string // The raw value that failed to convert
	Err   error  // The underlying cause
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert field %s value %q: %v", e.Field, e.Value, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// StoreError reports a failed store operation. Err is the collaborator's error, unchanged.
type StoreError struct {
	Op     string // The store operation, e.g. "BatchPut"
	Domain string // The domain the operation targeted
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s on domain %s failed: %v", e.Op, e.Domain, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// TimeoutError reports a paginated select that was cancelled or timed out before the
// store reported the final page. No partial results accompany it.
type TimeoutError struct {
	Domain string // The domain being queried
	Pages  int    // Pages fetched before the abort
	Err    error  // context.Canceled or context.DeadlineExceeded
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("select on domain %s aborted after %d pages: %v", e.Domain, e.Pages, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }
