package models

import (
	"github.com/google/uuid"

	"geminichat-backend/internal/transcript"
)

// SendMessageRequest is the payload sent to the messages endpoint.
type SendMessageRequest struct {
	Message string `json:"message"`
}

// SessionCreatedResponse is returned when a new chat session is opened.
type SessionCreatedResponse struct {
	SessionID uuid.UUID         `json:"session_id"`
	Token     string            `json:"token"`
	ExpiresIn int               `json:"expires_in"`
	Usable    bool              `json:"usable"`
	Turns     []transcript.Turn `json:"turns"`
}

// TranscriptResponse is the full transcript of a session for redisplay.
type TranscriptResponse struct {
	SessionID uuid.UUID         `json:"session_id"`
	Usable    bool              `json:"usable"`
	Busy      bool              `json:"busy"`
	Turns     []transcript.Turn `json:"turns"`
}

// SendMessageResponse carries the reply turn and the updated transcript.
type SendMessageResponse struct {
	Reply transcript.Turn   `json:"reply"`
	Turns []transcript.Turn `json:"turns"`
}

// HistoryResponse is the request history the next message would carry.
type HistoryResponse struct {
	SessionID uuid.UUID                 `json:"session_id"`
	History   []transcript.HistoryEntry `json:"history"`
}

// StatusResponse tells clients whether input should be enabled.
type StatusResponse struct {
	Usable bool   `json:"usable"`
	Model  string `json:"model,omitempty"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
