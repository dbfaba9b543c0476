package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"kestrel/internal/driver"
	"kestrel/internal/ui"
)

type compileOutcome struct {
	results []*driver.Result
	err     error
}

// compileWithUI runs CompileAll while a Bubble Tea program renders its phase
// events.
func compileWithUI(ctx context.Context, title string, files []string, opts driver.Options, jobs int) ([]*driver.Result, error) {
	events := make(chan driver.PhaseEvent, 256)
	outcomeCh := make(chan compileOutcome, 1)

	go func() {
		optsCopy := opts
		prev := opts.Observer
		optsCopy.Observer = func(ev driver.PhaseEvent) {
			if prev != nil {
				prev(ev)
			}
			events <- ev
		}
		res, err := driver.CompileAll(ctx, files, optsCopy, jobs)
		outcomeCh <- compileOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// Keep draining so the compilation can finish.
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
