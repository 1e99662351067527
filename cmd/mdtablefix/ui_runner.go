package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"mdtablefix/internal/driver"
	"mdtablefix/internal/ui"
)

type fixOutcome struct {
	results []driver.FileResult
	err     error
}

// runFixWithUI runs FixFiles while a progress view on stderr consumes its
// events. Quitting the view cancels the run.
func runFixWithUI(ctx context.Context, title string, files []string, opts driver.FixOptions) ([]driver.FileResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan driver.Event, 256)
	outcomeCh := make(chan fixOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.FixFiles(ctx, files, optsCopy)
		outcomeCh <- fixOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	_, uiErr := program.Run()
	cancel()
	for range events {
		// drain until FixFiles closes the channel
	}
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
