package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"kestrel/internal/diag"
	"kestrel/internal/diagfmt"
	"kestrel/internal/driver"
	"kestrel/internal/trace"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [document...]",
	Short: "Compile program documents into bytecode modules",
	Long: `Compile YAML or JSON program documents into .kbc modules.
Without arguments the documents listed under [build] inputs in kestrel.toml are built.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringP("output", "o", "", "module file (one document) or output directory")
	buildCmd.Flags().Int("jobs", 0, "max parallel compilations (0=auto)")
	buildCmd.Flags().Bool("cache", false, "reuse modules from the on-disk cache")
	buildCmd.Flags().Bool("no-cache", false, "disable the on-disk cache even if kestrel.toml enables it")
	buildCmd.Flags().Bool("drop-cache", false, "clear the on-disk cache before building")
	buildCmd.Flags().String("format", "pretty", "diagnostics format (pretty|json|short)")
	buildCmd.Flags().String("path-mode", "asis", "path display in diagnostics (asis|basename)")
	buildCmd.Flags().String("min-severity", "info", "hide diagnostics below this severity (info|warning|error)")
	buildCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg := configFrom(cmd)
	flags := cmd.Flags()

	inputs := args
	if len(inputs) == 0 {
		inputs = cfg.inputs()
	}
	if len(inputs) == 0 {
		return errors.New(noInputsMessage)
	}

	output, err := flags.GetString("output")
	if err != nil {
		return err
	}
	if output == "" {
		output = cfg.resolve(cfg.Build.Output)
	}
	outPaths, err := outputPaths(inputs, output)
	if err != nil {
		return err
	}

	jobs, err := flags.GetInt("jobs")
	if err != nil {
		return err
	}
	if !flags.Changed("jobs") && cfg.Build.Jobs > 0 {
		jobs = cfg.Build.Jobs
	}
	maxDiag, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}
	if !cmd.Root().PersistentFlags().Changed("max-diagnostics") && cfg.Build.MaxDiagnostics > 0 {
		maxDiag = cfg.Build.MaxDiagnostics
	}
	diagFormat, err := flags.GetString("format")
	if err != nil {
		return err
	}
	pathModeStr, err := flags.GetString("path-mode")
	if err != nil {
		return err
	}
	pathMode, err := diagfmt.ParsePathMode(pathModeStr)
	if err != nil {
		return err
	}
	floorStr, err := flags.GetString("min-severity")
	if err != nil {
		return err
	}
	floor, err := diag.ParseSeverity(strings.ToLower(floorStr))
	if err != nil {
		return err
	}
	uiStr, err := flags.GetString("ui")
	if err != nil {
		return err
	}
	mode, err := parseProgressMode(uiStr)
	if err != nil {
		return err
	}
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	timings, _ := cmd.Root().PersistentFlags().GetBool("timings")

	cache, err := openCache(cmd, cfg)
	if err != nil {
		return err
	}
	opts := driver.Options{MaxDiagnostics: maxDiag, Cache: cache}

	span, ctx := trace.StartSpan(cmd.Context(), trace.ScopeDriver, "build")
	span.WithExtra("documents", fmt.Sprint(len(inputs)))

	var results []*driver.Result
	if !quiet && diagFormat == "pretty" && mode.wantsProgress(len(inputs), isTerminal(os.Stdout)) {
		results, err = compileWithUI(ctx, "kestrel build", inputs, opts, jobs)
	} else {
		results, err = driver.CompileAll(ctx, inputs, opts, jobs)
	}
	if err != nil {
		span.End("failed")
		return err
	}

	failed := 0
	for i, r := range results {
		if r.Failed() {
			failed++
			continue
		}
		if err := writeModule(outPaths[i], r.Bytes); err != nil {
			r.Bag.Add(diag.NewError(diag.ModFormat, diag.Location{Path: r.Path}, fmt.Sprintf("failed to write %s: %v", outPaths[i], err)))
			failed++
			continue
		}
		if !quiet && diagFormat == "pretty" {
			state := "wrote"
			if r.Cached {
				state = "cached"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d bytes)\n", state, outPaths[i], len(r.Bytes))
		}
	}
	span.End(fmt.Sprintf("%d failed", failed))

	if err := printDiagnostics(cmd, results, diagFormat, pathMode, floor, timings); err != nil {
		return err
	}
	if timings && diagFormat == "pretty" {
		printTimings(cmd.ErrOrStderr(), results)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}

func openCache(cmd *cobra.Command, cfg *projectConfig) (*driver.DiskCache, error) {
	flags := cmd.Flags()
	enabled, err := flags.GetBool("cache")
	if err != nil {
		return nil, err
	}
	if !flags.Changed("cache") && cfg.Build.Cache != nil {
		enabled = *cfg.Build.Cache
	}
	if off, _ := flags.GetBool("no-cache"); off {
		enabled = false
	}
	drop, _ := flags.GetBool("drop-cache")
	if !enabled && !drop {
		return nil, nil
	}
	var cache *driver.DiskCache
	if dir := cfg.resolve(cfg.Build.CacheDir); dir != "" {
		cache, err = driver.Open(dir)
	} else {
		cache, err = driver.OpenDiskCache("kestrel")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	if drop {
		if err := cache.DropAll(); err != nil {
			return nil, fmt.Errorf("failed to drop cache: %w", err)
		}
	}
	if !enabled {
		return nil, nil
	}
	return cache, nil
}

func writeModule(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func printDiagnostics(cmd *cobra.Command, results []*driver.Result, format string, pathMode diagfmt.PathMode, floor diag.Severity, timings bool) error {
	all := diag.NewBag(1)
	for _, r := range results {
		if timings && format == "json" {
			driver.AppendTimings(r)
		}
		all.Merge(r.Bag)
	}
	all.Dedup()
	all.Sort()
	all.Keep(floor)
	switch strings.ToLower(format) {
	case "pretty":
		if all.Len() == 0 {
			return nil
		}
		return diagfmt.Pretty(cmd.ErrOrStderr(), all, diagfmt.PrettyOpts{
			Color:     useColor(cmd, os.Stderr),
			PathMode:  pathMode,
			Width:     terminalWidth(os.Stderr),
			ShowNotes: true,
			ShowTitle: true,
		})
	case "json":
		return diagfmt.JSON(cmd.OutOrStdout(), all, diagfmt.JSONOpts{PathMode: pathMode, IncludeNotes: true})
	case "short":
		if s := diagfmt.Short(all, pathMode); s != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), s)
		}
		return nil
	default:
		return fmt.Errorf("unsupported diagnostics format %q (expected pretty|json|short)", format)
	}
}
