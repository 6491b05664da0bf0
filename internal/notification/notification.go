package notification

import (
	"context"
	"log/slog"
	"time"
)

// Level classifies a message.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Message is a transient, user-visible notice.
type Message struct {
	Level   Level
	Body    string
	Expires time.Time
}

// Info builds an informational message.
func Info(body string) Message { return Message{Level: LevelInfo, Body: body} }

// Error builds an error message.
func Error(body string) Message { return Message{Level: LevelError, Body: body} }

// Notifier delivers messages to the user.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes messages to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger at debug level.
func (n *LoggerNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.DebugContext(ctx, "notification", slog.String("level", string(message.Level)), slog.String("body", message.Body))
	return nil
}

// Fanout delivers every message to each notifier in order and returns the
// first error.
type Fanout []Notifier

func (f Fanout) Send(ctx context.Context, message Message) error {
	var first error
	for _, n := range f {
		if err := n.Send(ctx, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}
