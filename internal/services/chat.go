package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"geminichat-backend/internal/session"
	"geminichat-backend/internal/transcript"
)

// ChatService ties the session store to the completion backend and maps
// domain errors onto the typed service errors used by the handlers.
type ChatService struct {
	store     *session.Store
	completer transcript.Completer
	modelName string
}

// NewChatService builds the service. A nil completer leaves the service in
// the unusable state: sessions can be opened but not sent to.
func NewChatService(store *session.Store, completer transcript.Completer, modelName string) *ChatService {
	return &ChatService{store: store, completer: completer, modelName: modelName}
}

func (s *ChatService) Usable() bool {
	return s.completer != nil
}

func (s *ChatService) ModelName() string {
	return s.modelName
}

func (s *ChatService) Open() *session.Session {
	return s.store.Create()
}

func (s *ChatService) Session(id uuid.UUID) (*session.Session, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, &NotFoundError{Message: "Session not found or expired"}
	}
	return sess, nil
}

func (s *ChatService) Close(id uuid.UUID) error {
	if err := s.store.Delete(id); err != nil {
		return &NotFoundError{Message: "Session not found or expired"}
	}
	return nil
}

// Send submits text to the session and returns the appended reply turn with
// the transcript of that same session, so a concurrent close cannot lose it.
func (s *ChatService) Send(ctx context.Context, id uuid.UUID, text string) (transcript.Turn, []transcript.Turn, error) {
	if !s.Usable() {
		return transcript.Turn{}, nil, &UnavailableError{Message: "Chat is unavailable: no Gemini API key is configured"}
	}

	sess, err := s.Session(id)
	if err != nil {
		return transcript.Turn{}, nil, err
	}

	turn, err := sess.Submit(ctx, s.completer, text)
	switch {
	case err == nil:
		return turn, sess.Turns(), nil
	case errors.Is(err, transcript.ErrEmptyMessage):
		return transcript.Turn{}, nil, &ValidationError{Fields: map[string]string{"message": "Message is required"}}
	case errors.Is(err, session.ErrBusy):
		return transcript.Turn{}, nil, &ConflictError{Message: "A reply is still being generated"}
	case errors.Is(err, transcript.ErrUnavailable):
		return transcript.Turn{}, nil, &UnavailableError{Message: "Chat is unavailable: no Gemini API key is configured"}
	default:
		return transcript.Turn{}, nil, err
	}
}
