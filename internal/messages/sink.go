// Package messages delivers user-visible progress and error notifications.
package messages

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_sink.go -package=mocks nb-assistant/internal/messages Sink

import (
	"context"
	"errors"

	"nb-assistant/internal/contextutil"
)

// Level distinguishes progress notices from errors.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Message is a single notification.
type Message struct {
	Level Level
	Text  string
}

// Info builds an informational message.
func Info(text string) Message { return Message{Level: LevelInfo, Text: text} }

// Error builds an error message.
func Error(text string) Message { return Message{Level: LevelError, Text: text} }

// Sink receives notifications.
type Sink interface {
	// Notify delivers one message.
	Notify(ctx context.Context, msg Message) error
}

// LogSink writes notifications to the context logger.
type LogSink struct{}

// Notify logs the message at info or error level.
func (LogSink) Notify(ctx context.Context, msg Message) error {
	logger := contextutil.LoggerFromContext(ctx)
	if msg.Level == LevelError {
		logger.ErrorContext(ctx, "notification", "message", msg.Text)
	} else {
		logger.InfoContext(ctx, "notification", "message", msg.Text)
	}
	return nil
}

// Multi delivers every message to all sinks and joins their errors.
type Multi []Sink

// Notify forwards msg to each sink.
func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
