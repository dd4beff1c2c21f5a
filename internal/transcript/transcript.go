package transcript

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Kind separates real conversation content from display-only turns.
type Kind string

const (
	KindMessage Kind = "message"
	KindWelcome Kind = "welcome" // synthetic, never sent upstream
	KindNotice  Kind = "notice"  // error surfaced as assistant text
)

// API roles expected by the Gemini chat endpoint.
const (
	APIRoleUser  = "user"
	APIRoleModel = "model"
)

var (
	ErrEmptyMessage = errors.New("message must not be empty")
	ErrUnavailable  = errors.New("chat completion service is not configured")
)

// Turn is one immutable entry of a transcript.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryEntry is one element of the request history sent upstream.
type HistoryEntry struct {
	APIRole string `json:"role"`
	Text    string `json:"text"`
}

// Completer is the remote chat completion capability.
type Completer interface {
	Complete(ctx context.Context, history []HistoryEntry, message string) (string, error)
}

// Manager owns the append-only transcript of a single session. It is not
// safe for concurrent use; callers serialise access.
type Manager struct {
	welcome string
	turns   []Turn
	ready   bool
	now     func() time.Time
}

func NewManager(welcome string) *Manager {
	return &Manager{welcome: welcome, now: time.Now}
}

// Initialize creates the transcript with its welcome turn. It returns false
// when the transcript already existed.
func (m *Manager) Initialize() bool {
	if m.ready {
		return false
	}
	m.turns = []Turn{{
		Role:      RoleAssistant,
		Content:   m.welcome,
		Kind:      KindWelcome,
		CreatedAt: m.now(),
	}}
	m.ready = true
	return true
}

func (m *Manager) Initialized() bool {
	return m.ready
}

func (m *Manager) AppendUserTurn(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	m.Initialize()
	m.append(RoleUser, KindMessage, text)
	return nil
}

func (m *Manager) AppendAssistantTurn(text string) Turn {
	m.Initialize()
	return m.append(RoleAssistant, KindMessage, text)
}

func (m *Manager) AppendNotice(text string) Turn {
	m.Initialize()
	return m.append(RoleAssistant, KindNotice, text)
}

// ProjectHistory maps the transcript to request history, skipping the
// welcome turn and the trailing pending user turn.
func (m *Manager) ProjectHistory() []HistoryEntry {
	turns := m.turns
	if n := len(turns); n > 0 && turns[n-1].Role == RoleUser {
		turns = turns[:n-1]
	}

	history := make([]HistoryEntry, 0, len(turns))
	for _, t := range turns {
		if t.Kind == KindWelcome {
			continue
		}
		history = append(history, HistoryEntry{APIRole: apiRole(t.Role), Text: t.Content})
	}
	return history
}

// RequestCompletion asks the completer for a reply to pendingText and appends
// the outcome. Failures become a notice turn; nothing is returned as error.
func (m *Manager) RequestCompletion(ctx context.Context, c Completer, pendingText string) Turn {
	reply, err := c.Complete(ctx, m.ProjectHistory(), pendingText)
	return m.Resolve(reply, err)
}

// Prepare appends text as the pending user turn and returns the history to
// send alongside it. Callers that run the remote call themselves must follow
// up with exactly one Resolve.
func (m *Manager) Prepare(text string) (Turn, []HistoryEntry, error) {
	if err := m.AppendUserTurn(text); err != nil {
		return Turn{}, nil, err
	}
	return m.turns[len(m.turns)-1], m.ProjectHistory(), nil
}

// Resolve appends the terminal outcome of a completion.
func (m *Manager) Resolve(reply string, err error) Turn {
	if err != nil {
		return m.AppendNotice(FormatError(err))
	}
	return m.AppendAssistantTurn(reply)
}

// Submit appends a user turn and requests its completion. A nil completer
// means no credential is configured and nothing is appended.
func (m *Manager) Submit(ctx context.Context, c Completer, text string) (Turn, error) {
	if c == nil {
		return Turn{}, ErrUnavailable
	}
	if err := m.AppendUserTurn(text); err != nil {
		return Turn{}, err
	}
	return m.RequestCompletion(ctx, c, text), nil
}

func (m *Manager) Turns() []Turn {
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

func (m *Manager) Len() int {
	return len(m.turns)
}

func (m *Manager) append(role Role, kind Kind, text string) Turn {
	t := Turn{Role: role, Content: text, Kind: kind, CreatedAt: m.now()}
	m.turns = append(m.turns, t)
	return t
}

func apiRole(r Role) string {
	if r == RoleAssistant {
		return APIRoleModel
	}
	return APIRoleUser
}
