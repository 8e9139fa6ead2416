package models

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrNullValue is returned when a JSON null is decoded into an Optional.
// Null would mean "clear the field", which is not supported.
var ErrNullValue = errors.New("null is not allowed; omit the field to leave it unchanged")

// Optional distinguishes a value that was supplied from one that was absent.
type Optional[T any] struct {
	value   T
	present bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) Present() bool {
	return o.present
}

// Get returns the value and whether it was present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// UnmarshalJSON marks the value present. A missing key never reaches this
// method, so absence is the zero Optional.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return ErrNullValue
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.value = v
	o.present = true
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.present {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}
