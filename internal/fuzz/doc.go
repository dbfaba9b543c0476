// Package fuzztests houses Go fuzz harnesses for the two untrusted inputs of
// the compiler: program documents and encoded modules. They guard against
// panics on arbitrary bytes and check that whatever is accepted survives the
// rest of the pipeline intact.
package fuzztests
