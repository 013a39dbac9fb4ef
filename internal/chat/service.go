package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/chatrelay/internal/domain"
	"github.com/ashureev/chatrelay/internal/model"
	"github.com/ashureev/chatrelay/internal/store"
)

// Broadcaster delivers the clear-screen signal to every connected client.
type Broadcaster interface {
	BroadcastClearScreen(ctx context.Context)
}

// Service runs the session lifecycle and the command/response protocol.
// It is safe for concurrent use by many sessions; each Session must be
// driven by one goroutine at a time.
type Service struct {
	repo        store.Repository
	gen         model.Generator
	broadcaster Broadcaster
	transcript  TranscriptLogger
	logger      *slog.Logger
}

// NewService creates a service. A nil transcript or logger falls back to a
// no-op transcript and slog.Default.
func NewService(repo store.Repository, gen model.Generator, transcript TranscriptLogger, logger *slog.Logger) *Service {
	if transcript == nil {
		transcript = noopTranscript{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:       repo,
		gen:        gen,
		transcript: transcript,
		logger:     logger,
	}
}

// SetBroadcaster sets the fan-out target for the clear-screen signal.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Connect opens a session and returns the full history for replay.
// A failed history fetch is logged and yields an empty slice, so the client
// still receives a chatHistory event (with no entries) rather than none.
func (s *Service) Connect(ctx context.Context, sessionID string) (*Session, []domain.ChatEntry) {
	s.logger.Info("User connected", "session_id", sessionID)
	sess := NewSession(sessionID)

	entries, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.Error("Error retrieving chat history", "session_id", sessionID, "error", err)
		return sess, []domain.ChatEntry{}
	}
	if entries == nil {
		entries = []domain.ChatEntry{}
	}
	return sess, entries
}

// Disconnect discards the session state.
func (s *Service) Disconnect(sess *Session) {
	s.logger.Info("User disconnected", "session_id", sess.ID, "state", sess.State().String())
	sess.awaitingClearConfirmation = false
}

// HandleMessage runs one turn and returns the reply to emit to the sender.
// The turn is detached from ctx cancellation so that it runs to completion
// even if the client goes away mid-turn.
func (s *Service) HandleMessage(ctx context.Context, sess *Session, message string) string {
	ctx = context.WithoutCancel(ctx)
	s.logger.Info("User message", "session_id", sess.ID, "message_length", len(message), "state", sess.State().String())
	s.transcript.Log(TranscriptEvent{SessionID: sess.ID, EventType: EventUserMessage, Content: message})

	var reply string
	switch decide(sess.State(), message) {
	case actionPromptClear:
		sess.awaitingClearConfirmation = true
		reply = ConfirmClearPrompt
	case actionConfirmClear:
		sess.awaitingClearConfirmation = false
		reply = s.clearHistory(ctx, sess)
	default:
		// Anything other than the confirmation cancels a pending clear.
		sess.awaitingClearConfirmation = false
		reply = s.generateReply(ctx, sess, message)
		s.persistTurn(ctx, sess, message, reply)
	}

	s.transcript.Log(TranscriptEvent{SessionID: sess.ID, EventType: EventBotResponse, Content: reply})
	return reply
}

func (s *Service) clearHistory(ctx context.Context, sess *Session) string {
	deleted, err := s.repo.ClearAll(ctx)
	if err != nil {
		s.logger.Error("Failed to clear chat history", "session_id", sess.ID, "error", err)
		return FallbackReply
	}

	s.logger.Info("Chat history cleared", "session_id", sess.ID, "deleted", deleted)
	s.transcript.Log(TranscriptEvent{
		SessionID: sess.ID,
		EventType: EventHistoryCleared,
		Meta:      map[string]any{"deleted": deleted},
	})
	if s.broadcaster != nil {
		s.broadcaster.BroadcastClearScreen(ctx)
	}
	return ClearedReply
}

// generateReply never fails: any error or panic from the generator becomes
// FallbackReply.
func (s *Service) generateReply(ctx context.Context, sess *Session, message string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Model client panicked", "session_id", sess.ID, "panic", fmt.Sprint(r))
			reply = FallbackReply
		}
	}()

	text, err := s.gen.Generate(ctx, message)
	if err != nil {
		s.logger.Error("Error fetching model response", "session_id", sess.ID, "error", err)
		return FallbackReply
	}
	return text
}

// persistTurn appends the user entry then the bot entry. Failures are logged;
// a failed user append does not prevent the bot append.
func (s *Service) persistTurn(ctx context.Context, sess *Session, message, reply string) {
	if err := s.repo.Append(ctx, domain.NewEntry(domain.AuthorUser, message)); err != nil {
		s.logger.Error("Failed to save user message", "session_id", sess.ID, "error", err)
	}
	if err := s.repo.Append(ctx, domain.NewEntry(domain.AuthorBot, reply)); err != nil {
		s.logger.Error("Failed to save bot response", "session_id", sess.ID, "error", err)
	}
}
