package updater

import (
	"bytes"
	"encoding/json"
)

// Value is a reading taken during a refresh. Known is false when the value
// could not be determined, so "0 commits behind" and "unknown" stay distinct.
type Value[T any] struct {
	V     T
	Known bool
}

// Known wraps a determined value
func Known[T any](v T) Value[T] {
	return Value[T]{V: v, Known: true}
}

// Unknown returns a value that could not be determined
func Unknown[T any]() Value[T] {
	return Value[T]{}
}

// Get returns the value and whether it is known
func (v Value[T]) Get() (T, bool) {
	return v.V, v.Known
}

// Or returns the value when known, otherwise fallback
func (v Value[T]) Or(fallback T) T {
	if v.Known {
		return v.V
	}
	return fallback
}

// MarshalJSON encodes unknown values as null
func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.Known {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

// UnmarshalJSON decodes null as unknown
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Value[T]{}
		return nil
	}
	var inner T
	if err := json.Unmarshal(data, &inner); err != nil {
		return err
	}
	*v = Known(inner)
	return nil
}
