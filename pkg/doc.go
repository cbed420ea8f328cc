// Package pkg provides the libraries behind spritepipe, a push-based pipeline
// graph for sprite processing.
//
// # Overview
//
// The pkg directory is organized into three areas:
//
//  1. [graph] and [stream] - the engine: typed nodes, validated connections and
//     the push streams that carry values between them
//  2. [steps], [bitmap], [sheet] and [storage] - the domain: image sources,
//     filters, sheet packing and artifact export
//  3. [registry], [recipe] and [pipeline] - orchestration: building graphs
//     from TOML recipes and running them to completion
//
// # Data Flow
//
//	recipe.toml
//	     ↓
//	[recipe] + [registry] (create nodes, validate connections)
//	     ↓
//	[graph] (nodes, links, connections)
//	     ↓
//	[pipeline] (begin sinks, wait, dispose)
//	     ↓
//	[steps] sources → filters → joiner → sheet → export
//	     ↓
//	[storage] (file, memory, redis, mongo)
//
// Every package that reports metrics or traces does so through the hooks of
// [observability]; errors crossing host boundaries carry the codes of [errors].
package pkg
