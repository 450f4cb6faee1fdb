package model

import "time"

// InitializeRequest asks the server to fetch a listing and its distance
// data without creating a session yet.
type InitializeRequest struct {
	URL        string   `json:"url" binding:"required"`
	Categories []string `json:"categories,omitempty"`
}

// InitializeResponse reports the fetched data. Fetch failures are
// reported in-body with status "error" rather than an HTTP error, so
// clients always get a parseable result for a submitted URL.
type InitializeResponse struct {
	Status       string            `json:"status"` // "ready" or "error"
	PropertyData *PropertyRecord   `json:"property_data,omitempty"`
	DistanceInfo *DistanceSnapshot `json:"distance_info,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// AnalyzeRequest is the stateless analysis contract: property facts,
// optional distance data, a persona id, and optionally the chat so far
// plus a follow-up question.
type AnalyzeRequest struct {
	PropertyData    *PropertyRecord   `json:"property_data" binding:"required"`
	DistanceInfo    *DistanceSnapshot `json:"distance_info,omitempty"`
	Agent           string            `json:"agent" binding:"required"`
	ChatHistory     []ChatTurn        `json:"chat_history,omitempty"`
	CurrentQuestion string            `json:"current_question,omitempty"`
}

// AnalyzeResponse carries the validated analysis result.
type AnalyzeResponse struct {
	Analysis  *AnalysisResult `json:"analysis"`
	Timestamp time.Time       `json:"timestamp"`
	Agent     string          `json:"agent"`
}

// CreateSessionRequest creates a session and runs its initial analysis.
type CreateSessionRequest struct {
	PropertyData *PropertyRecord   `json:"property_data" binding:"required"`
	DistanceInfo *DistanceSnapshot `json:"distance_info,omitempty"`
	Agent        string            `json:"agent" binding:"required"`
}

// AskRequest is a follow-up question on an active session.
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// SessionSummary is the listing view of a session.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	Agent        string    `json:"agent"`
	AgentName    string    `json:"agent_name"`
	PropertyURL  string    `json:"property_url"`
	Address      string    `json:"address"`
	State        string    `json:"state"`
	TurnCount    int       `json:"turn_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// SessionResponse is the full view of a session, including history.
type SessionResponse struct {
	SessionSummary
	History []ChatTurn `json:"history"`
}

// AnalysisRecord is one row of the durable analysis audit log.
type AnalysisRecord struct {
	ID        int64           `json:"id" db:"id"`
	SessionID string          `json:"session_id" db:"session_id"`
	Agent     string          `json:"agent" db:"agent"`
	Address   string          `json:"address" db:"address"`
	Question  *string         `json:"question,omitempty" db:"question"`
	Analysis  AnalysisPayload `json:"analysis" db:"analysis"`
	Summary   string          `json:"summary" db:"summary"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// SimilarAnalysis is an audit-log row with its similarity score.
type SimilarAnalysis struct {
	AnalysisRecord
	Similarity float64 `json:"similarity" db:"similarity"`
}
