package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"proplens/internal/model"
	"proplens/internal/persona"
	"proplens/internal/service"
)

// AnalysisHandler handles stateless analysis and audit-log requests
type AnalysisHandler struct {
	analyzer *service.Analyzer
	personas *persona.Catalog
	auditor  *service.AnalysisAuditor
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analyzer *service.Analyzer, personas *persona.Catalog, auditor *service.AnalysisAuditor) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		personas: personas,
		auditor:  auditor,
	}
}

// Agents handles GET /api/v1/agents
func (h *AnalysisHandler) Agents(c *gin.Context) {
	list := h.personas.List()
	agents := make([]gin.H, 0, len(list))
	for _, p := range list {
		agents = append(agents, gin.H{
			"id":   p.ID,
			"name": p.Name,
			"role": p.Role,
		})
	}
	c.JSON(http.StatusOK, gin.H{"agents": agents})
}

// Analyze handles POST /api/v1/analyze. The request is stateless: the
// client supplies the property facts and any chat history, and receives
// one validated analysis result back.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req model.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	p, err := h.personas.Get(req.Agent)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.analyze(c, p, &req, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	h.auditor.Record(c.Request.Context(), "", p.ID, req.PropertyData.Address, req.CurrentQuestion, result)

	c.JSON(http.StatusOK, model.AnalyzeResponse{
		Analysis:  result,
		Timestamp: time.Now(),
		Agent:     p.ID,
	})
}

// AnalyzeStream handles POST /api/v1/analyze/stream - SSE streaming analysis
func (h *AnalysisHandler) AnalyzeStream(c *gin.Context) {
	var req model.AnalyzeRequest
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

	sendSSE(c, "start", gin.H{"agent": p.ID})
	flusher.Flush()

	result, err := h.analyze(c, p, &req, func(thinking, content string) error {
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

	h.auditor.Record(c.Request.Context(), "", p.ID, req.PropertyData.Address, req.CurrentQuestion, result)

	sendSSE(c, "result", model.AnalyzeResponse{
		Analysis:  result,
		Timestamp: time.Now(),
		Agent:     p.ID,
	})
	sendSSE(c, "done", nil)
	flusher.Flush()
}

// analyze routes to the initial or follow-up path: a request carrying a
// question is a follow-up over the supplied history.
func (h *AnalysisHandler) analyze(c *gin.Context, p persona.Persona, req *model.AnalyzeRequest, callback func(thinking, content string) error) (*model.AnalysisResult, error) {
	ctx := c.Request.Context()
	if req.CurrentQuestion != "" {
		if callback != nil {
			return h.analyzer.AnalyzeFollowUpStream(ctx, p, req.PropertyData, req.DistanceInfo, req.ChatHistory, req.CurrentQuestion, callback)
		}
		return h.analyzer.AnalyzeFollowUp(ctx, p, req.PropertyData, req.DistanceInfo, req.ChatHistory, req.CurrentQuestion)
	}
	if callback != nil {
		return h.analyzer.AnalyzeInitialStream(ctx, p, req.PropertyData, req.DistanceInfo, callback)
	}
	return h.analyzer.AnalyzeInitial(ctx, p, req.PropertyData, req.DistanceInfo)
}

// SimilarAnalyses handles GET /api/v1/analyses/similar?q=...&limit=N
func (h *AnalysisHandler) SimilarAnalyses(c *gin.Context) {
	query := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	results, err := h.auditor.SimilarAnalyses(c.Request.Context(), query, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"query": query, "results": results})
}

// RecentAnalyses handles GET /api/v1/analyses/recent?limit=N
func (h *AnalysisHandler) RecentAnalyses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, err := h.auditor.RecentAnalyses(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": records})
}
