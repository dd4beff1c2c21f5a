package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"geminichat-backend/internal/middleware"
	"geminichat-backend/internal/models"
	"geminichat-backend/internal/session"
	"geminichat-backend/internal/transcript"
)

type chatService interface {
	Usable() bool
	ModelName() string
	Open() *session.Session
	Session(id uuid.UUID) (*session.Session, error)
	Close(id uuid.UUID) error
	Send(ctx context.Context, id uuid.UUID, text string) (transcript.Turn, []transcript.Turn, error)
}

type tokenIssuer interface {
	GenerateToken(sessionID uuid.UUID) (string, error)
}

type ChatHandler struct {
	chat      chatService
	tokens    tokenIssuer
	expiresIn int
}

func NewChatHandler(chat chatService, tokens tokenIssuer, expiresIn int) *ChatHandler {
	return &ChatHandler{chat: chat, tokens: tokens, expiresIn: expiresIn}
}

// Status tells the UI whether input should be enabled.
func (h *ChatHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := models.StatusResponse{Usable: h.chat.Usable()}
	if resp.Usable {
		resp.Model = h.chat.ModelName()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := h.chat.Open()

	token, err := h.tokens.GenerateToken(sess.ID)
	if err != nil {
		h.chat.Close(sess.ID)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to issue session token", r))
		return
	}

	writeJSON(w, http.StatusCreated, models.SessionCreatedResponse{
		SessionID: sess.ID,
		Token:     token,
		ExpiresIn: h.expiresIn,
		Usable:    h.chat.Usable(),
		Turns:     sess.Turns(),
	})
}

func (h *ChatHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	sess, err := h.chat.Session(middleware.GetSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.TranscriptResponse{
		SessionID: sess.ID,
		Usable:    h.chat.Usable(),
		Busy:      sess.Busy(),
		Turns:     sess.Turns(),
	})
}

func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := h.chat.Session(middleware.GetSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.HistoryResponse{SessionID: sess.ID, History: sess.History()})
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
		return
	}

	reply, turns, err := h.chat.Send(r.Context(), middleware.GetSessionID(r.Context()), req.Message)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SendMessageResponse{Reply: reply, Turns: turns})
}

func (h *ChatHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.Close(middleware.GetSessionID(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session ended"})
}
