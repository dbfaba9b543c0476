// Package diag defines the diagnostic model shared by the kestrel pipeline.
//
// Diagnostic is the central record: a severity, a stable code, a short
// message and a location naming the input document, the YAML line when the
// failure came from decoding, and the declaration the failure belongs to
// ("routine main: return").
//
// Producers emit through a Reporter; Bag collects and orders diagnostics
// deterministically. Package diag performs no IO. Rendering lives in
// internal/diagfmt.
package diag
