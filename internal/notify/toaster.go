// Package notify renders user-facing notifications ("toasts") on a terminal.
//
// A Toaster writes one styled line per notification. Colors follow the color
// profile detected for the destination writer, so piping stderr to a file
// yields plain text.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Level of a notification
type Level string

const (
	LevelError Level = "error"
	LevelInfo  Level = "info"
)

// Toaster writes notifications to a terminal writer
type Toaster struct {
	mu         sync.Mutex
	w          io.Writer
	errorStyle lipgloss.Style
	infoStyle  lipgloss.Style
}

// NewToaster creates a Toaster using the color profile of w
func NewToaster(w io.Writer) *Toaster {
	return newToaster(w, lipgloss.NewRenderer(w))
}

// NewPlainToaster creates a Toaster that never emits escape sequences
func NewPlainToaster(w io.Writer) *Toaster {
	renderer := lipgloss.NewRenderer(w)
	renderer.SetColorProfile(termenv.Ascii)
	return newToaster(w, renderer)
}

func newToaster(w io.Writer, renderer *lipgloss.Renderer) *Toaster {
	return &Toaster{
		w:          w,
		errorStyle: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		infoStyle:  renderer.NewStyle().Foreground(lipgloss.Color("12")),
	}
}

// NotifyError shows an error-level notification
func (t *Toaster) NotifyError(message string) {
	t.write(LevelError, message)
}

// NotifyInfo shows an info-level notification
func (t *Toaster) NotifyInfo(message string) {
	t.write(LevelInfo, message)
}

func (t *Toaster) write(level Level, message string) {
	style, icon := t.infoStyle, "ℹ"
	if level == LevelError {
		style, icon = t.errorStyle, "✖"
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, style.Render(icon+" "+message))
}
