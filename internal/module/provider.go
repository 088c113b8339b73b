// Package module is the generic plugin framework the pipeline layers use
// to delegate analytic sub-tasks to LLM-backed providers. A Provider
// wraps one capability behind a uniform contract; a Manager is a named
// registry of interchangeable providers for that capability.
package module

import (
	"context"
	"errors"
)

var (
	// ErrNotInitialized is returned by Process when Initialize has not
	// succeeded. This is an API misuse, not an environmental failure, and
	// is the only error Process propagates.
	ErrNotInitialized = errors.New("provider not initialized")

	// ErrProviderNotFound is returned by Manager.Process when neither the
	// requested name nor a default resolves to a registered provider.
	ErrProviderNotFound = errors.New("provider not found")
)

// Provider is the contract for one analytic capability. Implementations
// convert input plus optional call context into prompt variables, call a
// backing model, and map the structured response into R. Any failure
// after initialization degrades to a typed fallback result with
// confidence at or below 0.3; it never surfaces as an error.
type Provider[I any, R any] interface {
	Name() string

	// Initialize validates that the backing model connection is
	// configured. Returns false (and logs why) instead of erroring.
	Initialize(ctx context.Context) bool

	// Process runs the capability. pctx carries optional caller context
	// merged into the prompt variables.
	Process(ctx context.Context, input I, pctx map[string]any) (R, error)

	Cleanup(ctx context.Context) error
}
