// Package apperrors defines the sentinel error taxonomy shared across the
// calculation engine. Every package wraps one of these with fmt.Errorf's
// %w verb so callers can classify failures with errors.Is.
package apperrors

import "errors"

var (
	// ErrParse marks a failure to parse a formula, template, or transformation document.
	ErrParse = errors.New("parse error")

	// ErrDependency marks a dependency-graph failure: a cycle or an unresolvable reference.
	ErrDependency = errors.New("dependency error")

	// ErrResolution marks a value provider's failure to resolve an identifier to a value.
	ErrResolution = errors.New("resolution error")

	// ErrDomain marks a domain-rule violation (unit mismatch, unknown strategy, invalid range).
	ErrDomain = errors.New("domain error")

	// ErrValidation marks a validation rule failure at ERROR severity.
	ErrValidation = errors.New("validation failure")

	// ErrStore marks a persistent-state failure (not found, write failure).
	ErrStore = errors.New("store error")
)
