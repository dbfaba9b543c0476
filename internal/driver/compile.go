// Package driver runs the kestrel pipeline: decode, check, lower and encode,
// for one document or many in parallel.
package driver

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"

	"kestrel/internal/astio"
	"kestrel/internal/diag"
	"kestrel/internal/ir"
	"kestrel/internal/layout"
	"kestrel/internal/lower"
	"kestrel/internal/module"
	"kestrel/internal/observ"
	"kestrel/internal/sema"
	"kestrel/internal/trace"
)

// Options configures one compilation.
type Options struct {
	Target         layout.Target
	MaxDiagnostics int
	Cache          *DiskCache    // optional
	Observer       PhaseObserver // optional
}

func (o Options) withDefaults() Options {
	if o.Target.SlotSize == 0 {
		o.Target = layout.Portable()
	}
	if o.MaxDiagnostics <= 0 {
		o.MaxDiagnostics = 100
	}
	return o
}

// Result is the outcome of compiling one document. Module and Bytes are nil
// when Bag holds errors.
type Result struct {
	Path   string
	Module *module.Module
	Bytes  []byte
	Bag    *diag.Bag
	Timer  *observ.Timer
	Cached bool
}

// Failed reports whether the compilation produced errors.
func (r *Result) Failed() bool {
	return r.Bag != nil && r.Bag.HasErrors()
}

// Compile runs check, lower and encode over prog. Any error aborts the
// pipeline and no module is returned.
func Compile(ctx context.Context, prog *ir.Program, opts Options) (*module.Module, []byte, *observ.Timer, error) {
	opts = opts.withDefaults()
	ph := newPhaseRunner(ctx, opts.Observer, "")
	m, data, err := compile(ctx, ph, prog, opts)
	return m, data, ph.timer, err
}

func compile(ctx context.Context, ph phaseRunner, prog *ir.Program, opts Options) (*module.Module, []byte, error) {
	var res *sema.Result
	if err := ph.run(ctx, "check", func() (string, error) {
		var err error
		res, err = sema.CheckProgram(prog, opts.Target)
		return "", err
	}); err != nil {
		return nil, nil, err
	}

	var m *module.Module
	if err := ph.run(ctx, "lower", func() (string, error) {
		var err error
		m, err = lower.Module(prog, res)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(len(m.Code)) + " instructions", nil
	}); err != nil {
		return nil, nil, err
	}

	var data []byte
	if err := ph.run(ctx, "encode", func() (string, error) {
		var err error
		data, err = module.Encode(m)
		return strconv.Itoa(len(data)) + " bytes", err
	}); err != nil {
		return nil, nil, err
	}
	return m, data, nil
}

// CompileDocument decodes and compiles one document. Failures are reported
// in the result's bag; the error return is reserved for cancellation.
func CompileDocument(ctx context.Context, path string, doc []byte, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	r := &Result{Path: path, Bag: diag.NewBag(opts.MaxDiagnostics)}

	span, ctx := trace.StartSpan(ctx, trace.ScopeModule, "module:"+path)
	defer span.End("")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ph := newPhaseRunner(ctx, opts.Observer, path)
	r.Timer = ph.timer

	key := opts.Cache.Key(opts.Target, doc)
	if m, data, ok := opts.Cache.Lookup(key); ok {
		r.Module, r.Bytes, r.Cached = m, data, true
		span.WithExtra("cache", "hit")
		ph.finish(r)
		return r, nil
	}

	var prog *ir.Program
	err := ph.run(ctx, "decode", func() (string, error) {
		var err error
		prog, err = astio.Decode(bytes.NewReader(doc))
		if err != nil {
			return "", err
		}
		return strconv.Itoa(len(prog.Funcs)) + " routines", nil
	})
	var (
		m    *module.Module
		data []byte
	)
	if err == nil {
		m, data, err = compile(ctx, ph, prog, opts)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		Report(diag.BagReporter{Bag: r.Bag}, path, err)
		ph.finish(r)
		return r, nil
	}
	r.Module, r.Bytes = m, data
	if err := opts.Cache.Store(key, path, data); err != nil {
		r.Bag.Add(diag.New(diag.SevWarning, diag.InputCacheCorrupted, diag.Location{Path: path}, "cache write failed: "+err.Error()))
	}
	ph.finish(r)
	return r, nil
}

// CompileFile reads path and compiles it.
func CompileFile(ctx context.Context, path string, opts Options) (*Result, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		opts = opts.withDefaults()
		r := &Result{Path: path, Bag: diag.NewBag(opts.MaxDiagnostics), Timer: observ.NewTimer()}
		r.Bag.Add(diag.NewError(diag.InputUnreadable, diag.Location{Path: path}, fmt.Sprintf("failed to read document: %v", err)))
		newPhaseRunner(ctx, opts.Observer, path).finish(r)
		return r, nil
	}
	return CompileDocument(ctx, path, doc, opts)
}
