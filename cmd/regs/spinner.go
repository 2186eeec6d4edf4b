package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// simpleSpinner animates a single status line while a blocking call runs.
type simpleSpinner struct {
	w       io.Writer
	message string
	quit    chan struct{}
	stopped chan struct{}
}

func newSimpleSpinner(w io.Writer, message string) *simpleSpinner {
	return &simpleSpinner{
		w:       w,
		message: message,
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (s *simpleSpinner) Start() {
	if !isTTY() {
		close(s.stopped)
		return
	}
	go s.loop()
}

func (s *simpleSpinner) loop() {
	defer close(s.stopped)
	style := lipgloss.NewStyle().Foreground(colorPrimary)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		fmt.Fprintf(s.w, "\r%s %s", style.Render(spinnerFrames[i%len(spinnerFrames)]), s.message)
		select {
		case <-s.quit:
			// frame (2 cols) + space + message
			fmt.Fprint(s.w, "\r"+strings.Repeat(" ", 3+len(s.message))+"\r")
			return
		case <-ticker.C:
		}
	}
}

// Stop is safe to call once, after Start.
func (s *simpleSpinner) Stop() {
	close(s.quit)
	<-s.stopped
}

// runWithSpinner runs operation while a spinner animates on w. JSON output
// and non-TTY writers get no spinner at all.
func runWithSpinner(w io.Writer, message string, operation func() error) error {
	if outputJSON {
		return operation()
	}
	spin := newSimpleSpinner(w, message)
	spin.Start()
	defer spin.Stop()
	return operation()
}
