// Package observability provides hooks for progress reporting and metrics.
//
// This package lets callers instrument a build without the build engine
// depending on a particular backend. Hooks are registered at startup, or
// passed to a single pipeline runner, and receive events about diagram
// planning, step execution and renderer processes.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetBuildHooks(&myBuildHooks{})
//	    observability.SetRenderHooks(&myRenderHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Render().OnRenderStart(ctx, binary, args)
//	// ... run the renderer ...
//	observability.Render().OnRenderComplete(ctx, binary, exitCode, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Build Hooks
// =============================================================================

// BuildHooks receives events from the build orchestrator. Calls for different
// diagrams may arrive concurrently; calls for one diagram are sequential.
type BuildHooks interface {
	// OnDiagramPlanned is called once per diagram after planning, with the
	// number of steps and how many of them will be rendered. A diagram that
	// failed to plan reports zero steps and a non-nil err.
	OnDiagramPlanned(ctx context.Context, diagram string, steps, stale int, err error)

	// Step events
	OnStepStart(ctx context.Context, diagram, step string)
	OnStepComplete(ctx context.Context, diagram, step string, rendered bool, duration time.Duration, err error)

	// OnDiagramComplete is called after the last step of a diagram.
	OnDiagramComplete(ctx context.Context, diagram, outcome string, duration time.Duration)
}

// =============================================================================
// Render Hooks
// =============================================================================

// RenderHooks receives events from renderer processes.
type RenderHooks interface {
	// OnRenderStart records a renderer invocation.
	OnRenderStart(ctx context.Context, binary string, args []string)

	// OnRenderComplete records the end of a renderer invocation. exitCode is
	// -1 when the process did not run to completion.
	OnRenderComplete(ctx context.Context, binary string, exitCode int, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopBuildHooks is a no-op implementation of BuildHooks.
type NoopBuildHooks struct{}

func (NoopBuildHooks) OnDiagramPlanned(context.Context, string, int, int, error) {}
func (NoopBuildHooks) OnStepStart(context.Context, string, string)               {}
func (NoopBuildHooks) OnStepComplete(context.Context, string, string, bool, time.Duration, error) {
}
func (NoopBuildHooks) OnDiagramComplete(context.Context, string, string, time.Duration) {}

// NoopRenderHooks is a no-op implementation of RenderHooks.
type NoopRenderHooks struct{}

func (NoopRenderHooks) OnRenderStart(context.Context, string, []string)                     {}
func (NoopRenderHooks) OnRenderComplete(context.Context, string, int, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	buildHooks  BuildHooks  = NoopBuildHooks{}
	renderHooks RenderHooks = NoopRenderHooks{}
	hooksMu     sync.RWMutex
)

// SetBuildHooks registers custom build hooks.
// This should be called once at application startup before any build runs.
func SetBuildHooks(h BuildHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		buildHooks = h
	}
}

// SetRenderHooks registers custom render hooks.
// This should be called once at application startup before any build runs.
func SetRenderHooks(h RenderHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		renderHooks = h
	}
}

// Build returns the registered build hooks.
func Build() BuildHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return buildHooks
}

// Render returns the registered render hooks.
func Render() RenderHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return renderHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	buildHooks = NoopBuildHooks{}
	renderHooks = NoopRenderHooks{}
}
