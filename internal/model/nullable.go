package model

import (
	"bytes"
	"encoding/json"
)

// Nullable tracks whether a JSON field was present at all and, if so,
// whether it was null.
type Nullable[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: v}
}

func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true, Null: true}
}

// Ptr returns nil for an explicit null, otherwise a pointer to a copy of Value.
func (n Nullable[T]) Ptr() *T {
	if n.Null {
		return nil
	}
	v := n.Value
	return &v
}

// UnmarshalJSON is only invoked for keys present in the payload, null included.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Null = true
		var zero T
		n.Value = zero
		return nil
	}
	n.Null = false
	return json.Unmarshal(data, &n.Value)
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Set || n.Null {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}
