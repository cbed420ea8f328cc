// Package steps provides the node variants of a sprite pipeline.
//
//   - [Source]: replays its current value to every subscriber
//   - [Transform]: applies a function 1:1 to every upstream value
//   - [Joiner]: aggregates every upstream value once all upstreams complete
//   - [SheetStep]: combines the latest frames and settings into a sprite sheet
//     on a background [stream.Executor]
//   - [FileExport]: sink that persists artifacts to a [storage.Store]
//
// Every step embeds [graph.Base] and exposes its links under the Link* names.
// Output streams are built per subscription from the connections present at
// that moment; steps hold no propagation state besides what a running sink
// keeps between Begin and Dispose.
package steps

// Link names used by the built-in steps.
const (
	LinkValue    = "value"
	LinkIn       = "in"
	LinkOut      = "out"
	LinkItems    = "items"
	LinkJoined   = "joined"
	LinkFrames   = "frames"
	LinkSettings = "settings"
	LinkSheet    = "sheet"
	LinkArtifact = "artifact"
)
