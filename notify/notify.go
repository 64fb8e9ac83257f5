// Package notify surfaces user-visible notifications, the terminal counterpart of a toast.
package notify

import (
	"clementus360/agent-client/config"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

type Notifier interface {
	Success(msg string)
	Error(msg string, err error)
}

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// Terminal prints styled notifications to w and logs errors.
type Terminal struct {
	mu     sync.Mutex
	w      io.Writer
	logger logrus.FieldLogger
}

func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w, logger: config.Logger}
}

func (t *Terminal) Success(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, successStyle.Render("✓ "+msg))
}

func (t *Terminal) Error(msg string, err error) {
	t.logger.WithError(err).Debug(msg)

	t.mu.Lock()
	defer t.mu.Unlock()
	line := errorStyle.Render("✗ " + msg)
	if err != nil {
		line += " " + detailStyle.Render(err.Error())
	}
	fmt.Fprintln(t.w, line)
}

// Log sends notifications to the logger only.
type Log struct {
	Logger logrus.FieldLogger
}

func (l Log) Success(msg string) {
	l.logger().Info(msg)
}

func (l Log) Error(msg string, err error) {
	l.logger().WithError(err).Error(msg)
}

func (l Log) logger() logrus.FieldLogger {
	if l.Logger == nil {
		return config.Logger
	}
	return l.Logger
}

type Entry struct {
	Success bool
	Message string
	Err     error
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Success: true, Message: msg})
}

func (r *Recorder) Error(msg string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Message: msg, Err: err})
}

func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

func (r *Recorder) Errors() []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if !e.Success {
			out = append(out, e)
		}
	}
	return out
}
