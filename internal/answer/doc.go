// Package answer implements grounded answer generation with graceful
// degradation.
//
// An [Engine] coordinates one generation call: it resolves the caller's
// session in a [Registry], streams a grounded (web-search) response from the
// model provider, collects citation sources from grounding metadata, and on
// any primary-path failure falls back to a disclosed, non-grounded
// single-turn completion. The public contract never returns an error; every
// call produces a [Result] whose [Mode] records whether the answer is
// grounded, degraded, or a terminal failure notice.
//
// # Sessions
//
// Sessions are keyed by an opaque caller-chosen ID. The registry keeps at
// most one live conversation per ID and serializes Generate calls that share
// an ID, so provider-side history never interleaves. Capacity is bounded by
// LRU eviction; an evicted ID simply starts a fresh conversation on next use.
//
// # Streaming
//
// Text increments are delivered synchronously through the caller's callback
// in emission order, one chunk at a time. A slow callback blocks further
// consumption; backpressure is total. Callers wanting timeouts cancel ctx.
package answer
