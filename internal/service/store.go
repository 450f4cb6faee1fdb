package service

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"proplens/internal/model"
	"proplens/internal/persona"
)

// SessionStore owns every live AnalysisSession, keyed by an opaque id.
// Evicted sessions are closed first so in-flight asks observe the
// closed state instead of silently appending to a dead session.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*AnalysisSession
	analyzer *Analyzer
}

// NewSessionStore creates an empty store backed by the given analyzer.
func NewSessionStore(analyzer *Analyzer) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*AnalysisSession),
		analyzer: analyzer,
	}
}

// Create registers a new session in the created state and returns it.
func (st *SessionStore) Create(p persona.Persona, property *model.PropertyRecord, distance *model.DistanceSnapshot) *AnalysisSession {
	id := uuid.NewString()
	session := NewAnalysisSession(id, p, property, distance, st.analyzer)

	st.mu.Lock()
	st.sessions[id] = session
	st.mu.Unlock()

	return session
}

// Get returns the session for id, or a KindSessionNotFound error.
func (st *SessionStore) Get(id string) (*AnalysisSession, error) {
	st.mu.RLock()
	session, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, NewError(KindSessionNotFound, "session %s not found", id)
	}
	return session, nil
}

// List returns summaries of every live session, newest first.
func (st *SessionStore) List() []model.SessionSummary {
	st.mu.RLock()
	summaries := make([]model.SessionSummary, 0, len(st.sessions))
	for _, session := range st.sessions {
		summaries = append(summaries, session.Summary())
	}
	st.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].SessionID < summaries[j].SessionID
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries
}

// Evict closes and removes the session for id. Evicting an unknown id
// returns KindSessionNotFound.
func (st *SessionStore) Evict(id string) error {
	st.mu.Lock()
	session, ok := st.sessions[id]
	if ok {
		delete(st.sessions, id)
	}
	st.mu.Unlock()

	if !ok {
		return NewError(KindSessionNotFound, "session %s not found", id)
	}
	session.Close()
	return nil
}

// EvictIdle closes and removes every session whose last activity is
// older than ttl. It returns the number of sessions evicted.
func (st *SessionStore) EvictIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	st.mu.Lock()
	var expired []*AnalysisSession
	for id, session := range st.sessions {
		if session.LastActivity().Before(cutoff) {
			expired = append(expired, session)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, session := range expired {
		session.Close()
	}
	if len(expired) > 0 {
		log.Printf("🧹 Evicted %d idle session(s)", len(expired))
	}
	return len(expired)
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
