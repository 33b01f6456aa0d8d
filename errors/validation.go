package errors

import (
	// Go Internal Packages
	"fmt"
	"sort"
	"strings"
)

// ValidationErrors accumulates field-level validation failures so a caller
// sees every bad field at once instead of the first one hit.
type ValidationErrors struct {
	fields map[string]string
}

// ValidationErrs returns an empty accumulator.
func ValidationErrs() *ValidationErrors {
	return &ValidationErrors{fields: make(map[string]string)}
}

// Add records a failure for a field. The first message for a field wins.
func (v *ValidationErrors) Add(field, message string) {
	if _, ok := v.fields[field]; !ok {
		v.fields[field] = message
	}
}

// Err returns nil when no failures were recorded, otherwise an Invalid-kind
// error listing every field.
func (v *ValidationErrors) Err() error {
	if len(v.fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(v.fields))
	for k := range v.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v.fields[k]))
	}
	return E(Invalid, strings.Join(parts, "; "), nil)
}
