// Package trace records compiler phases as spans so slow or stuck
// compilations can be diagnosed.
//
// Tracers are selected by level and storage mode:
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: writes each event immediately as text or NDJSON
//   - RingTracer: keeps the last N events for a post-mortem dump
//   - MultiTracer: fans events out to several tracers
//
// Every tracer built by New carries a session id so the events of one
// kestrel invocation can be told apart in a shared log.
//
// Tracers travel through the pipeline in a context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span, ctx := trace.StartSpan(ctx, trace.ScopeModule, "module:"+path)
//	defer span.End("")
//
// Spans whose scope the level filters out are inert and pass their parent
// through, so nested spans still attach to the nearest recorded ancestor.
package trace
