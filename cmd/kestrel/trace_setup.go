package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"kestrel/internal/trace"
)

// setupTracing reads the trace flags, falling back to the [trace] section of
// the config for flags left at their defaults, and attaches the tracer to the
// command context. The returned cleanup flushes and closes it.
func setupTracing(cmd *cobra.Command, tc traceConfig) (func(), error) {
	flags := cmd.Root().PersistentFlags()
	pick := func(name, fromConfig string) (string, error) {
		v, err := flags.GetString(name)
		if err != nil {
			return "", fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		if !flags.Changed(name) && fromConfig != "" {
			return fromConfig, nil
		}
		return v, nil
	}

	output, err := pick("trace", tc.Output)
	if err != nil {
		return nil, err
	}
	levelStr, err := pick("trace-level", tc.Level)
	if err != nil {
		return nil, err
	}
	formatStr, err := pick("trace-format", tc.Format)
	if err != nil {
		return nil, err
	}
	modeStr, err := pick("trace-mode", tc.Mode)
	if err != nil {
		return nil, err
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	if !flags.Changed("trace-ring-size") && tc.RingSize > 0 {
		ringSize = tc.RingSize
	}
	heartbeat, err := flags.GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}
	if !flags.Changed("trace-heartbeat") && tc.Heartbeat != "" {
		if heartbeat, err = time.ParseDuration(tc.Heartbeat); err != nil {
			return nil, fmt.Errorf("invalid [trace] heartbeat: %w", err)
		}
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}
	// An output without an explicit level traces phases.
	if level == trace.LevelOff && output != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, err
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, err
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: output,
		RingSize:   ringSize,
		Heartbeat:  heartbeat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	var hb *trace.Heartbeat
	if heartbeat > 0 {
		hb = trace.StartHeartbeat(tracer, heartbeat)
	}

	return func() {
		if hb != nil {
			hb.Stop()
		}
		// Ring-only tracing keeps events in memory; print them on the way out.
		if ring, ok := tracer.(*trace.RingTracer); ok {
			if err := ring.Dump(os.Stderr, trace.FormatText); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}
