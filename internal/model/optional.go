package model

import (
	"bytes"
	"encoding/json"
)

type optionalState uint8

const (
	stateUnset optionalState = iota
	stateClear
	stateSet
)

// Optional is a field that can be left untouched, cleared or set.
// The zero value is unset. Decoding JSON null yields Clear; an absent
// JSON key never reaches UnmarshalJSON and stays unset.
type Optional[T any] struct {
	state optionalState
	value T
}

func Unset[T any]() Optional[T] {
	return Optional[T]{}
}

func Clear[T any]() Optional[T] {
	return Optional[T]{state: stateClear}
}

func Set[T any](value T) Optional[T] {
	return Optional[T]{state: stateSet, value: value}
}

// FromPtr maps nil to Clear and a value to Set.
func FromPtr[T any](value *T) Optional[T] {
	if value == nil {
		return Clear[T]()
	}
	return Set(*value)
}

func (o Optional[T]) IsUnset() bool { return o.state == stateUnset }
func (o Optional[T]) IsClear() bool { return o.state == stateClear }
func (o Optional[T]) IsSet() bool   { return o.state == stateSet }

// Present reports whether the field carries an instruction (Clear or Set).
func (o Optional[T]) Present() bool { return o.state != stateUnset }

// Get returns the value and whether it is Set.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.state == stateSet
}

// Ptr returns a pointer to the value when Set and nil otherwise.
func (o Optional[T]) Ptr() *T {
	if o.state != stateSet {
		return nil
	}
	value := o.value
	return &value
}

// Apply writes the instruction onto target: Set replaces, Clear nils, Unset keeps.
func (o Optional[T]) Apply(target **T) {
	switch o.state {
	case stateSet:
		*target = o.Ptr()
	case stateClear:
		*target = nil
	}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Clear[T]()
		return nil
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*o = Set(value)
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.state != stateSet {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}
