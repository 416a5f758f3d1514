// Package notify carries user-facing notices out of the chat pipeline:
// risk warnings, escalation confirmations, connection loss.
package notify

import (
	"fmt"
	"io"
	"sync"

	"aika/aika/utils/logging"

	"go.uber.org/zap"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelUrgent  Level = "urgent"
)

type Notice struct {
	Level Level
	Title string
	Body  string
}

type Notifier interface {
	Notify(n Notice)
}

// LogNotifier writes notices to the app log only. It is the fallback when
// no UI surface is attached.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notice) {
	logging.AppLogger.Info("notice",
		zap.String("level", string(n.Level)),
		zap.String("title", n.Title),
		zap.String("body", n.Body),
	)
}

// WriterNotifier prints notices to a terminal-ish writer.
type WriterNotifier struct {
	mu  sync.Mutex
	Out io.Writer
}

func NewWriterNotifier(out io.Writer) *WriterNotifier {
	return &WriterNotifier{Out: out}
}

func (w *WriterNotifier) Notify(n Notice) {
	w.mu.Lock()
	defer w.mu.Unlock()
	prefix := "ℹ️ "
	switch n.Level {
	case LevelWarning:
		prefix = "⚠️ "
	case LevelUrgent:
		prefix = "🚨 "
	}
	fmt.Fprintf(w.Out, "\n%s%s: %s\n", prefix, n.Title, n.Body)
}

// Multi fans a notice out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(n Notice) {
	for _, nf := range m {
		nf.Notify(n)
	}
}
