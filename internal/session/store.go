package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"geminichat-backend/internal/transcript"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrBusy     = errors.New("a message is already being processed for this session")
)

// AppendHook is invoked after a turn is appended to a session transcript.
type AppendHook func(sessionID uuid.UUID, turn transcript.Turn)

// RemoveHook is invoked after a session is deleted or evicted.
type RemoveHook func(sessionID uuid.UUID)

// Session wraps one transcript manager and serialises access to it.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu           sync.Mutex
	manager      *transcript.Manager
	busy         bool
	lastActivity time.Time
	onAppend     AppendHook
}

// Submit appends text as a user turn and waits for the completion outcome.
// Only one submission may be in flight per session.
func (s *Session) Submit(ctx context.Context, c transcript.Completer, text string) (transcript.Turn, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return transcript.Turn{}, ErrBusy
	}
	if c == nil {
		s.mu.Unlock()
		return transcript.Turn{}, transcript.ErrUnavailable
	}
	userTurn, history, err := s.manager.Prepare(text)
	if err != nil {
		s.mu.Unlock()
		return transcript.Turn{}, err
	}
	s.busy = true
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.notify(userTurn)

	// The remote call runs outside the lock so readers can still render the
	// pending transcript.
	reply, err := c.Complete(ctx, history, text)

	if err != nil {
		log.Warn().Err(err).Str("session_id", s.ID.String()).Msg("completion failed")
	}

	s.mu.Lock()
	turn := s.manager.Resolve(reply, err)
	s.busy = false
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.notify(turn)
	return turn, nil
}

func (s *Session) Turns() []transcript.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.Turns()
}

func (s *Session) History() []transcript.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.ProjectHistory()
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) notify(turn transcript.Turn) {
	if s.onAppend != nil {
		s.onAppend(s.ID, turn)
	}
}

// Store keeps sessions in memory, keyed by session ID.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	welcome  string
	onAppend AppendHook
	onRemove RemoveHook

	evictIdle     time.Duration
	evictInterval time.Duration
	evictRunning  bool
}

func NewStore(welcome string) *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		welcome:  welcome,
	}
}

// SetAppendHook registers a hook for sessions created afterwards.
func (st *Store) SetAppendHook(hook AppendHook) {
	st.mu.Lock()
	st.onAppend = hook
	st.mu.Unlock()
}

// SetRemoveHook registers a hook run outside the store lock for every
// removed session.
func (st *Store) SetRemoveHook(hook RemoveHook) {
	st.mu.Lock()
	st.onRemove = hook
	st.mu.Unlock()
}

func (st *Store) SetEvictionConfig(idle, interval time.Duration) {
	st.mu.Lock()
	st.evictIdle = idle
	st.evictInterval = interval
	st.mu.Unlock()
}

// Create starts a new session with an initialized transcript.
func (st *Store) Create() *Session {
	m := transcript.NewManager(st.welcome)
	m.Initialize()

	now := time.Now()
	st.mu.Lock()
	s := &Session{
		ID:           uuid.New(),
		CreatedAt:    now,
		manager:      m,
		lastActivity: now,
		onAppend:     st.onAppend,
	}
	st.sessions[s.ID] = s
	st.mu.Unlock()

	log.Info().Str("session_id", s.ID.String()).Msg("session created")
	return s
}

func (st *Store) Get(id uuid.UUID) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch()
	return s, nil
}

func (st *Store) Delete(id uuid.UUID) error {
	st.mu.Lock()
	if _, ok := st.sessions[id]; !ok {
		st.mu.Unlock()
		return ErrNotFound
	}
	delete(st.sessions, id)
	hook := st.onRemove
	st.mu.Unlock()

	log.Info().Str("session_id", id.String()).Msg("session ended")
	if hook != nil {
		hook(id)
	}
	return nil
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// StartEvictionLoop removes idle sessions until ctx is done. It is a no-op
// when eviction is not configured or the loop is already running.
func (st *Store) StartEvictionLoop(ctx context.Context) {
	st.mu.Lock()
	if st.evictRunning || st.evictIdle <= 0 || st.evictInterval <= 0 {
		st.mu.Unlock()
		return
	}
	st.evictRunning = true
	interval := st.evictInterval
	st.mu.Unlock()

	go st.runEvictionLoop(ctx, interval)
}

func (st *Store) runEvictionLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			st.mu.Lock()
			st.evictRunning = false
			st.mu.Unlock()
			return
		case now := <-ticker.C:
			if n := st.evictIdleOnce(now); n > 0 {
				log.Debug().Int("evicted", n).Msg("idle sessions evicted")
			}
		}
	}
}

func (st *Store) evictIdleOnce(now time.Time) int {
	st.mu.Lock()
	if st.evictIdle <= 0 {
		st.mu.Unlock()
		return 0
	}

	var evicted []uuid.UUID
	for id, s := range st.sessions {
		if s.Busy() {
			continue
		}
		if now.Sub(s.LastActivity()) < st.evictIdle {
			continue
		}
		delete(st.sessions, id)
		evicted = append(evicted, id)
	}
	hook := st.onRemove
	st.mu.Unlock()

	if hook != nil {
		for _, id := range evicted {
			hook(id)
		}
	}
	return len(evicted)
}
