package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"proplens/internal/model"
	"proplens/internal/persona"
	"proplens/internal/service"
)

// SessionHandler handles session lifecycle HTTP requests
type SessionHandler struct {
	store    *service.SessionStore
	personas *persona.Catalog
	auditor  *service.AnalysisAuditor
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(store *service.SessionStore, personas *persona.Catalog, auditor *service.AnalysisAuditor) *SessionHandler {
	return &SessionHandler{
		store:    store,
		personas: personas,
		auditor:  auditor,
	}
}

// Create handles POST /api/v1/sessions. The session is created and its
// initial analysis runs immediately; on failure the session is evicted
// again so clients never hold ids of sessions that failed to start.
func (h *SessionHandler) Create(c *gin.Context) {
	var req model.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	p, err := h.personas.Get(req.Agent)
	if err != nil {
		respondError(c, err)
		return
	}

	session := h.store.Create(p, req.PropertyData, req.DistanceInfo)

	turn, err := session.Start(c.Request.Context())
	if err != nil {
		h.store.Evict(session.ID())
		respondError(c, err)
		return
	}

	h.recordTurn(c, session, "", turn)

	c.JSON(http.StatusCreated, sessionResponse(session))
}

// CreateStream handles POST /api/v1/sessions/stream - SSE session
// creation with streamed initial analysis.
func (h *SessionHandler) CreateStream(c *gin.Context) {
	var req model.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	p, err := h.personas.Get(req.Agent)
	if err != nil {
		respondError(c, err)
		return
	}

	flusher, ok := setSSEHeaders(c)
	if !ok {
		return
	}

	session := h.store.Create(p, req.PropertyData, req.DistanceInfo)

	sendSSE(c, "start", gin.H{"session_id": session.ID(), "agent": p.ID})
	flusher.Flush()

	turn, err := session.StartStream(c.Request.Context(), func(thinking, content string) error {
		if thinking != "" {
			sendSSE(c, "thinking", gin.H{"content": thinking})
		}
		if content != "" {
			sendSSE(c, "content", gin.H{"content": content})
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		h.store.Evict(session.ID())
		sendSSE(c, "error", gin.H{"error": err.Error()})
		flusher.Flush()
		return
	}

	h.recordTurn(c, session, "", turn)

	sendSSE(c, "result", sessionResponse(session))
	sendSSE(c, "done", nil)
	flusher.Flush()
}

// List handles GET /api/v1/sessions
func (h *SessionHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.store.List()})
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}

// Ask handles POST /api/v1/sessions/:id/ask
func (h *SessionHandler) Ask(c *gin.Context) {
	var req model.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	session, err := h.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	turn, err := session.Ask(c.Request.Context(), req.Question)
	if err != nil {
		respondError(c, err)
		return
	}

	h.recordTurn(c, session, req.Question, turn)

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID(),
		"turn":       turn,
	})
}

// AskStream handles POST /api/v1/sessions/:id/ask/stream - SSE follow-up
func (h *SessionHandler) AskStream(c *gin.Context) {
	var req model.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	session, err := h.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	flusher, ok := setSSEHeaders(c)
	if !ok {
		return
	}

	sendSSE(c, "start", gin.H{"session_id": session.ID()})
	flusher.Flush()

	turn, err := session.AskStream(c.Request.Context(), req.Question, func(thinking, content string) error {
		if thinking != "" {
			sendSSE(c, "thinking", gin.H{"content": thinking})
		}
		if content != "" {
			sendSSE(c, "content", gin.H{"content": content})
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		sendSSE(c, "error", gin.H{"error": err.Error()})
		flusher.Flush()
		return
	}

	h.recordTurn(c, session, req.Question, turn)

	sendSSE(c, "result", gin.H{"session_id": session.ID(), "turn": turn})
	sendSSE(c, "done", nil)
	flusher.Flush()
}

// Delete handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.store.Evict(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

// recordTurn writes one completed turn to the audit log. Best effort.
func (h *SessionHandler) recordTurn(c *gin.Context, session *service.AnalysisSession, question string, turn *model.ChatTurn) {
	result := &model.AnalysisResult{Text: turn.Content}
	if turn.Analysis != nil {
		result = &model.AnalysisResult{Payload: turn.Analysis}
	}
	h.auditor.Record(c.Request.Context(), session.ID(), session.Persona().ID, session.Property().Address, question, result)
}

func sessionResponse(session *service.AnalysisSession) model.SessionResponse {
	return model.SessionResponse{
		SessionSummary: session.Summary(),
		History:        session.History(),
	}
}
