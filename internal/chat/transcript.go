package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/chatrelay/internal/config"
)

// Transcript event types.
const (
	EventUserMessage    = "user_message"
	EventBotResponse    = "bot_response"
	EventHistoryCleared = "history_cleared"
)

// TranscriptEvent is one NDJSON line of the conversation transcript.
type TranscriptEvent struct {
	Timestamp string         `json:"ts"`
	SessionID string         `json:"session_id"`
	EventType string         `json:"event_type"`
	Content   string         `json:"content,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// TranscriptLogger records turns outside the conversation store.
type TranscriptLogger interface {
	Log(event TranscriptEvent)
	Close() error
}

type noopTranscript struct{}

func (noopTranscript) Log(TranscriptEvent) {}
func (noopTranscript) Close() error        { return nil }

// NewTranscriptLogger returns an asynchronous NDJSON writer, or a no-op
// logger when the transcript is disabled.
func NewTranscriptLogger(cfg config.TranscriptConfig, logger *slog.Logger) (TranscriptLogger, error) {
	if !cfg.Enabled {
		return noopTranscript{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("transcript queue size must be > 0")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}
	file, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}

	t := &fileTranscript{
		queue:  make(chan TranscriptEvent, cfg.QueueSize),
		done:   make(chan struct{}),
		file:   file,
		logger: logger.With("component", "transcript"),
	}
	go t.run()
	return t, nil
}

type fileTranscript struct {
	mu     sync.RWMutex
	closed bool
	queue  chan TranscriptEvent
	done   chan struct{}
	file   *os.File
	logger *slog.Logger
}

// Log enqueues event without blocking; events are dropped when the queue is full.
func (t *fileTranscript) Log(event TranscriptEvent) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.queue <- event:
	default:
		t.logger.Warn("transcript queue full, dropping event", "event_type", event.EventType, "session_id", event.SessionID)
	}
}

func (t *fileTranscript) run() {
	defer close(t.done)
	enc := json.NewEncoder(t.file)
	for event := range t.queue {
		if err := enc.Encode(event); err != nil {
			t.logger.Warn("failed to write transcript event", "error", err)
		}
	}
}

// Close drains queued events and closes the file.
func (t *fileTranscript) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.queue)
	t.mu.Unlock()

	<-t.done
	if err := t.file.Close(); err != nil {
		return fmt.Errorf("close transcript: %w", err)
	}
	return nil
}
