// Package util contains small helpers shared across forge's packages.
package util

import "bytes"

// Errors implements error and aggregates a list of errors raised
// concurrently, e.g. by multiple BinaryGroups building at once.
type Errors []error

// NewErrors returns a new Errors from a slice of error
func NewErrors(errors []error) Errors {
	return errors
}

var _ error = Errors{}

// Error implements the error interface
func (e Errors) Error() string {
	var buff bytes.Buffer
	for _, err := range e {
		buff.WriteString(err.Error())
		buff.WriteRune('\n')
	}
	return buff.String()
}

// Errors returns the slice of errors contained by Errors
func (e Errors) Errors() []error {
	return e
}

// Flatten recursively flattens any nested Errors to a single top level Errors
func Flatten(errors Errors) Errors {
	flat := []error{}
	for _, err := range errors {
		if v, ok := err.(Errors); ok {
			flat = append(flat, Flatten(v)...)
		} else {
			flat = append(flat, err)
		}
	}
	return flat
}
