package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rivo/tview"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelFatal LogLevel = "FATAL"
)

// LogManager collects console log lines from zap and shows them in a panel.
// It is an io.Writer so it can be handed to the logger as an extra output.
type LogManager struct {
	textView *tview.TextView

	// mu protects messages and onUpdate
	mu          sync.Mutex
	messages    []LogMessage
	maxMessages int

	// onUpdate is called after a message is added; the panel is only
	// redrawn from the UI goroutine
	onUpdate func()
}

// LogMessage represents a single log entry
type LogMessage struct {
	Time    time.Time
	Level   LogLevel
	Message string
}

// NewLogManager creates a new log manager
func NewLogManager(maxMessages int) *LogManager {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(maxMessages)

	textView.SetBorder(true).SetTitle(" Logs ")

	return &LogManager{
		textView:    textView,
		messages:    make([]LogMessage, 0, maxMessages),
		maxMessages: maxMessages,
	}
}

// GetView returns the tview component
func (lm *LogManager) GetView() tview.Primitive {
	return lm.textView
}

// SetUpdateFunc registers the callback run after each new message.
func (lm *LogManager) SetUpdateFunc(fn func()) {
	lm.mu.Lock()
	lm.onUpdate = fn
	lm.mu.Unlock()
}

// Write accepts one or more console-encoded log lines.
func (lm *LogManager) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		level, msg := parseConsoleLine(line)
		lm.AddLog(level, msg)
	}
	return len(p), nil
}

// parseConsoleLine splits "time<TAB>level<TAB>message<TAB>fields".
func parseConsoleLine(line string) (LogLevel, string) {
	parts := strings.SplitN(line, "\t", 3)
	if len(parts) < 3 {
		return LogLevelInfo, line
	}
	msg := strings.ReplaceAll(parts[2], "\t", " ")
	return LogLevel(strings.ToUpper(strings.TrimSpace(parts[1]))), msg
}

// AddLog adds a log message with the specified level
func (lm *LogManager) AddLog(level LogLevel, message string) {
	lm.mu.Lock()
	lm.messages = append(lm.messages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
	})

	// Trim old messages if we exceed max
	if len(lm.messages) > lm.maxMessages {
		lm.messages = lm.messages[len(lm.messages)-lm.maxMessages:]
	}
	fn := lm.onUpdate
	lm.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Messages returns a copy of the retained messages.
func (lm *LogManager) Messages() []LogMessage {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return append([]LogMessage(nil), lm.messages...)
}

// refresh rewrites the text view. Call from the UI goroutine.
func (lm *LogManager) refresh() {
	var b strings.Builder
	for _, msg := range lm.Messages() {
		color := getColorForLevel(msg.Level)
		fmt.Fprintf(&b, "[gray]%s[-] [%s]%-5s[-] %s\n",
			msg.Time.Format("15:04:05"), color, msg.Level, tview.Escape(msg.Message))
	}
	lm.textView.SetText(b.String())
	lm.textView.ScrollToEnd()
}

// getColorForLevel returns the tview color tag for a log level
func getColorForLevel(level LogLevel) string {
	switch level {
	case LogLevelDebug:
		return "gray"
	case LogLevelWarn:
		return "yellow"
	case LogLevelError, LogLevelFatal:
		return "red"
	default:
		return "white"
	}
}
