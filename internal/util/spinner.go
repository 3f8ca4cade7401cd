package util

import (
	"context"
	"os"

	"github.com/charmbracelet/huh/spinner"
	"github.com/mattn/go-isatty"
)

type Spinner struct {
	ctx     context.Context
	cancel  context.CancelFunc
	spinner *spinner.Spinner
	done    chan struct{}
}

// NewSpinner starts a spinner with msg until Stop is called. Nothing is drawn when stdout is not a terminal.
func NewSpinner(c context.Context, msg string) *Spinner {
	ctx, cancel := context.WithCancel(c)
	s := &Spinner{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		close(s.done)
		return s
	}
	s.spinner = spinner.New().Context(ctx).Title(msg)
	go func() {
		defer close(s.done)
		s.spinner.Run()
	}()
	return s
}

func (s *Spinner) Stop() {
	s.cancel()
	<-s.done
}

// RunTaskWithSpinner shows a spinner while task runs and returns its error.
func RunTaskWithSpinner(ctx context.Context, msg string, task func(ctx context.Context) error) error {
	s := NewSpinner(ctx, msg)
	defer s.Stop()
	return task(ctx)
}
