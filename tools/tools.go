//go:build tools

// Package tools pins the versions of the build tools mage.go compiles.
package tools

import (
	_ "github.com/go-jet/jet/v2/cmd/jet"
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
)
