// Package observability provides hooks for metrics, tracing, and logging.
//
// Instrumentation is optional: libraries report events through the hooks
// registered here and default to no-op implementations, so no observability
// backend becomes a hard dependency.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetStoreHooks(&myStoreHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnSheetStart(ctx, name, frames)
//	// ... build the sheet ...
//	observability.Pipeline().OnSheetComplete(ctx, name, size, time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from graph execution.
type PipelineHooks interface {
	// Run events, emitted once per pipeline execution.
	OnRunStart(ctx context.Context, sinks int)
	OnRunComplete(ctx context.Context, duration time.Duration, err error)

	// Sheet events, emitted for every sprite sheet the combinator builds.
	OnSheetStart(ctx context.Context, name string, frames int)
	OnSheetComplete(ctx context.Context, name string, size int, duration time.Duration, err error)
}

// =============================================================================
// Export Hooks
// =============================================================================

// ExportHooks receives events from sink nodes.
type ExportHooks interface {
	// OnExport records a value persisted by a sink.
	OnExport(ctx context.Context, node, key string, size int, err error)

	// OnStreamError records an error signal that reached a sink.
	OnStreamError(ctx context.Context, node string, err error)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from storage backends.
type StoreHooks interface {
	OnStoreHit(ctx context.Context, backend string)
	OnStoreMiss(ctx context.Context, backend string)
	OnStorePut(ctx context.Context, backend string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnRunStart(context.Context, int)                                    {}
func (NoopPipelineHooks) OnRunComplete(context.Context, time.Duration, error)                {}
func (NoopPipelineHooks) OnSheetStart(context.Context, string, int)                          {}
func (NoopPipelineHooks) OnSheetComplete(context.Context, string, int, time.Duration, error) {}

// NoopExportHooks is a no-op implementation of ExportHooks.
type NoopExportHooks struct{}

func (NoopExportHooks) OnExport(context.Context, string, string, int, error) {}
func (NoopExportHooks) OnStreamError(context.Context, string, error)         {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnStoreHit(context.Context, string)      {}
func (NoopStoreHooks) OnStoreMiss(context.Context, string)     {}
func (NoopStoreHooks) OnStorePut(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	exportHooks   ExportHooks   = NoopExportHooks{}
	storeHooks    StoreHooks    = NoopStoreHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline runs.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetExportHooks registers custom export hooks.
func SetExportHooks(h ExportHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		exportHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Export returns the registered export hooks.
func Export() ExportHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return exportHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	exportHooks = NoopExportHooks{}
	storeHooks = NoopStoreHooks{}
}
