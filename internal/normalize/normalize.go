package normalize

import (
	"strings"

	"golang.org/x/text/cases"
)

// Email trims and case-folds an address so lookups ignore case.
func Email(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

func Name(name string) string {
	return strings.TrimSpace(name)
}
