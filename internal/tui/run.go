package tui

import (
	"context"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunWithWork creates a bubbletea program, launches workFn in a goroutine,
// and blocks until both the program and workFn have finished. The context
// handed to workFn is cancelled when the user quits the table, so a batch
// stops at the next crate boundary. send wraps tea.Program.Send with a small
// yield to give the renderer time to draw between updates.
func RunWithWork(ctx context.Context, out io.Writer, model ProgressModel, workFn func(ctx context.Context, send func(tea.Msg))) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx))
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		// Let bubbletea start its event loop and render the initial frame.
		time.Sleep(50 * time.Millisecond)

		workFn(ctx, func(msg tea.Msg) {
			p.Send(msg)
			// Small yield between sends so the renderer can draw frames.
			time.Sleep(5 * time.Millisecond)
		})

		p.Send(WorkDoneMsg{})
	}()

	finalModel, err := p.Run()
	cancel()
	<-finished
	if err != nil && ctx.Err() == nil {
		return err
	}
	if m, ok := finalModel.(ProgressModel); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}
