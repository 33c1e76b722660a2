package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("access denied")
	ErrNotAdmin           = fmt.Errorf("not an admin: %w", ErrForbidden)
)

const (
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldPassword = "password"
)

// ValidationError names the fields of a request that were missing or
// rejected. Err carries the reason when it is more than "missing".
type ValidationError struct {
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %v", strings.Join(e.Fields, ", "), e.Err)
	}
	return "missing " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Has reports whether field is one of the rejected fields.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}
