// Package apperr defines the typed error kinds used across the search,
// ranking and personalization core so handlers can map failures to status
// codes with errors.As instead of string matching.
package apperr

import "fmt"

// InvalidInputError marks a malformed or missing request field.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Message)
	}
	return "invalid input: " + e.Message
}

// UnauthorizedError marks a missing or invalid bearer token.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return "unauthorized: " + e.Reason
}

// NotFoundError marks an absent resource, e.g. preferences for a user.
type NotFoundError struct {
	Resource string
	Guidance string
}

func (e *NotFoundError) Error() string {
	if e.Guidance != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.Guidance)
	}
	return e.Resource + " not found"
}

// UpstreamError wraps a failure talking to a catalog provider.
type UpstreamError struct {
	Provider string
	Kind     string // "timeout", "status", "parse"
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s error (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

const (
	UpstreamTimeout = "timeout"
	UpstreamStatus  = "status"
	UpstreamParse   = "parse"
)

// StoreError wraps a failure of a derived-aggregate write. The primary
// activity append is not a StoreError; only the derived-node fan-out is.
type StoreError struct {
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error at %s: %v", e.Path, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// RankerError wraps a failure of the personalized reranker. Callers fall
// back to the rule-scored list rather than failing the request.
type RankerError struct {
	Stage string
	Err   error
}

func (e *RankerError) Error() string {
	return fmt.Sprintf("ranker error at %s: %v", e.Stage, e.Err)
}

func (e *RankerError) Unwrap() error { return e.Err }
