package service

import (
	"context"
	"sync"
	"time"

	"proplens/internal/model"
	"proplens/internal/persona"
)

// Session states.
const (
	StateCreated = "created"
	StateActive  = "active"
	StateClosed  = "closed"
)

// AnalysisSession is the stateful pairing of one property, one persona,
// and an append-only chat history.
//
// Lifecycle: created → active (on a successful Start) → closed (on
// eviction). History is only ever appended to; a failed operation
// leaves the session exactly as it was so the caller can retry.
//
// Turns are applied in strict request order: only one Start/Ask may be
// in flight at a time, a second concurrent call is rejected with
// KindConcurrentAsk rather than queued.
type AnalysisSession struct {
	id       string
	persona  persona.Persona
	property *model.PropertyRecord
	distance *model.DistanceSnapshot
	analyzer *Analyzer

	mu           sync.Mutex
	state        string
	inFlight     bool
	history      []model.ChatTurn
	createdAt    time.Time
	lastActivity time.Time
}

// NewAnalysisSession binds a property, distance snapshot, and persona
// into a fresh session in the created state. The property and persona
// never change afterwards; a different persona needs a new session.
func NewAnalysisSession(id string, p persona.Persona, property *model.PropertyRecord, distance *model.DistanceSnapshot, analyzer *Analyzer) *AnalysisSession {
	now := time.Now()
	return &AnalysisSession{
		id:           id,
		persona:      p,
		property:     property,
		distance:     distance,
		analyzer:     analyzer,
		state:        StateCreated,
		createdAt:    now,
		lastActivity: now,
	}
}

// ID returns the opaque session identifier.
func (s *AnalysisSession) ID() string { return s.id }

// Persona returns the session's fixed persona.
func (s *AnalysisSession) Persona() persona.Persona { return s.persona }

// Property returns the session's immutable property record.
func (s *AnalysisSession) Property() *model.PropertyRecord { return s.property }

// Distance returns the session's distance snapshot, possibly nil.
func (s *AnalysisSession) Distance() *model.DistanceSnapshot { return s.distance }

// State returns the current lifecycle state.
func (s *AnalysisSession) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start runs the initial analysis. On success the session transitions
// to active with exactly one assistant turn in history. On failure the
// session stays created, nothing is appended, and the call is
// retryable.
func (s *AnalysisSession) Start(ctx context.Context) (*model.ChatTurn, error) {
	return s.start(ctx, nil)
}

// StartStream is Start with streaming progress chunks.
func (s *AnalysisSession) StartStream(ctx context.Context, callback func(thinking, content string) error) (*model.ChatTurn, error) {
	return s.start(ctx, callback)
}

func (s *AnalysisSession) start(ctx context.Context, callback func(thinking, content string) error) (*model.ChatTurn, error) {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return nil, NewError(KindSessionClosed, "session %s is closed", s.id)
	case StateActive:
		s.mu.Unlock()
		return nil, NewError(KindConfiguration, "session %s is already started", s.id)
	}
	if s.inFlight {
		s.mu.Unlock()
		return nil, NewError(KindConcurrentAsk, "another request is in flight on session %s", s.id)
	}
	s.inFlight = true
	s.mu.Unlock()

	var result *model.AnalysisResult
	var err error
	if callback != nil {
		result, err = s.analyzer.AnalyzeInitialStream(ctx, s.persona, s.property, s.distance, callback)
	} else {
		result, err = s.analyzer.AnalyzeInitial(ctx, s.persona, s.property, s.distance)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	if err != nil {
		// Session stays created; the caller may retry.
		return nil, err
	}
	if s.state == StateClosed {
		return nil, NewError(KindSessionClosed, "session %s was closed while starting", s.id)
	}

	turn := s.assistantTurn(result)
	s.history = append(s.history, turn)
	s.state = StateActive
	s.lastActivity = time.Now()

	return &turn, nil
}

// Ask answers a follow-up question. Exactly one user turn and one
// assistant turn are appended atomically; if generation or validation
// fails neither is appended and the caller can retry with the same
// question.
func (s *AnalysisSession) Ask(ctx context.Context, question string) (*model.ChatTurn, error) {
	return s.ask(ctx, question, nil)
}

// AskStream is Ask with streaming progress chunks.
func (s *AnalysisSession) AskStream(ctx context.Context, question string, callback func(thinking, content string) error) (*model.ChatTurn, error) {
	return s.ask(ctx, question, callback)
}

func (s *AnalysisSession) ask(ctx context.Context, question string, callback func(thinking, content string) error) (*model.ChatTurn, error) {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return nil, NewError(KindSessionClosed, "session %s is closed", s.id)
	case StateCreated:
		s.mu.Unlock()
		return nil, NewError(KindConfiguration, "session %s has not been started", s.id)
	}
	if s.inFlight {
		s.mu.Unlock()
		return nil, NewError(KindConcurrentAsk, "another ask is in flight on session %s", s.id)
	}
	s.inFlight = true
	// Snapshot under the lock so the prompt sees a consistent history.
	snapshot := make([]model.ChatTurn, len(s.history))
	copy(snapshot, s.history)
	s.mu.Unlock()

	var result *model.AnalysisResult
	var err error
	if callback != nil {
		result, err = s.analyzer.AnalyzeFollowUpStream(ctx, s.persona, s.property, s.distance, snapshot, question, callback)
	} else {
		result, err = s.analyzer.AnalyzeFollowUp(ctx, s.persona, s.property, s.distance, snapshot, question)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	if err != nil {
		// Both-or-neither: no partial history mutation on failure.
		return nil, err
	}
	if s.state == StateClosed {
		return nil, NewError(KindSessionClosed, "session %s was closed while asking", s.id)
	}

	now := time.Now()
	userTurn := model.ChatTurn{
		Role:      model.RoleUser,
		Content:   question,
		Timestamp: now,
	}
	assistantTurn := s.assistantTurn(result)

	s.history = append(s.history, userTurn, assistantTurn)
	s.lastActivity = now

	return &assistantTurn, nil
}

// assistantTurn builds the assistant turn for a validated result. A
// structured result carries the payload with the recommendation summary
// as displayable content; a fallback carries the raw text.
func (s *AnalysisSession) assistantTurn(result *model.AnalysisResult) model.ChatTurn {
	turn := model.ChatTurn{
		Role:      model.RoleAssistant,
		Agent:     s.persona.ID,
		Timestamp: time.Now(),
	}
	if result.Structured() {
		turn.Analysis = result.Payload
		turn.Content = result.Payload.Recommendation.Summary
	} else {
		turn.Content = result.Text
	}
	return turn
}

// History returns a copy of the ordered chat history.
func (s *AnalysisSession) History() []model.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatTurn, len(s.history))
	copy(out, s.history)
	return out
}

// LastActivity returns when the session last appended a turn.
func (s *AnalysisSession) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Close marks the session closed. All further operations fail with
// KindSessionClosed.
func (s *AnalysisSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}

// Summary returns the listing view of the session.
func (s *AnalysisSession) Summary() model.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.SessionSummary{
		SessionID:    s.id,
		Agent:        s.persona.ID,
		AgentName:    s.persona.Name,
		PropertyURL:  s.property.URL,
		Address:      s.property.Address,
		State:        s.state,
		TurnCount:    len(s.history),
		CreatedAt:    s.createdAt,
		LastActivity: s.lastActivity,
	}
}
