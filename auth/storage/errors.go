package storage

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

const (
	FieldUsername = "username"
	FieldEmail    = "email"
)

// DuplicateKeyError reports which unique field rejected an insert.
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}
