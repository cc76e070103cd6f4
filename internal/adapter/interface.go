// Package adapter wraps generative-model backend processes behind a single
// Execute interface, classifying their failures into a fixed set of error
// kinds so the fallback chain (internal/fallback) can decide whether to
// retry on the next backend or surface the error.
package adapter

import (
	"context"
	"time"
)

// ErrorKind classifies why Execute failed.
type ErrorKind string

const (
	ErrorNone            ErrorKind = ""
	ErrorRateLimit       ErrorKind = "rate-limit"
	ErrorContextExceeded ErrorKind = "context-exceeded"
	ErrorTimeout         ErrorKind = "timeout"
	ErrorAPIError        ErrorKind = "api-error"
	ErrorGeneric         ErrorKind = "generic"
)

// ExecuteRequest is the input to one backend invocation.
type ExecuteRequest struct {
	Prompt     string
	OutputPath string // optional; if set, successful stdout is also written here
	WorkingDir string
}

// ExecuteResult is the outcome of one backend invocation.
type ExecuteResult struct {
	Success    bool
	Duration   time.Duration
	OutputPath string
	Text       string
	ErrorKind  ErrorKind
}

// AdapterInfo is static metadata about a backend.
type AdapterInfo struct {
	Name     string
	Model    string
	Provider string
}

// Adapter translates (prompt, optional output path, working directory) into
// a classified result. Implementations must never leave zombie child
// processes: cancellation must always signal termination and await exit
// with a grace period.
type Adapter interface {
	// Execute runs prompt against the backend, honoring ctx cancellation.
	Execute(ctx context.Context, req ExecuteRequest) (ExecuteResult, error)

	// IsAvailable is a cheap probe: binary-on-PATH or credential-present,
	// depending on adapter kind. Never blocks on a full round-trip call.
	IsAvailable(ctx context.Context) bool

	// Info returns static metadata about the backend.
	Info() AdapterInfo
}
