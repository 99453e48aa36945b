package delivery

import (
	"fmt"
	"io"
	"sync"

	"homebot/internal/logger"
)

// Sender delivers one outbound message to a chat target. Implementations
// must tolerate being called from multiple goroutines.
type Sender interface {
	Send(target, text string) error
}

// ChunkedSender wraps a Sender and splits oversized messages before
// delivery, so callers never have to think about transport caps.
type ChunkedSender struct {
	Inner Sender
	Limit int
}

func (c ChunkedSender) Send(target, text string) error {
	for _, piece := range Chunk(text, c.Limit) {
		if err := c.Inner.Send(target, piece); err != nil {
			return err
		}
	}
	return nil
}

// WriterSender prints messages to a stream. It backs the interactive
// console mode and tests.
type WriterSender struct {
	W  io.Writer
	mu sync.Mutex
}

func (w *WriterSender) Send(target, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if target != "" {
		if _, err := fmt.Fprintf(w.W, "[%s] %s\n", target, text); err != nil {
			return err
		}
		return nil
	}
	_, err := fmt.Fprintln(w.W, text)
	return err
}

// LogSender records deliveries to the log. Used as the scheduler's
// fallback when no real transport is configured.
type LogSender struct{}

func (LogSender) Send(target, text string) error {
	logger.Named("delivery").WithField("target", target).Info(text)
	return nil
}
