package models

// WebSocket message types
const (
	WSTranscript   = "transcript"
	WSTurnAppended = "turn_appended"
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
