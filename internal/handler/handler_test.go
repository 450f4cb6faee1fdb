package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proplens/internal/model"
	"proplens/internal/persona"
	"proplens/internal/service"
)

const analysisJSON = `{
  "overview": {"property_type": "house", "key_features": ["garden"], "condition": "good", "unique_selling_points": []},
  "strengths": {"physical_attributes": ["brick"], "location_advantages": [], "investment_potential": [], "lifestyle_benefits": []},
  "concerns": {"physical_issues": [], "location_disadvantages": ["far from CBD"], "investment_risks": [], "lifestyle_limitations": []},
  "investment_analysis": {"price_assessment": "high", "market_position": "upper", "growth_potential": "solid", "rental_potential": "fair", "holding_costs": []},
  "recommendation": {"summary": "A solid family home.", "suitable_buyer_types": ["families"], "key_considerations": [], "next_steps": []}
}`

type stubGenerator struct {
	reply string
	err   error
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return s.reply, s.err
}

func (s *stubGenerator) GenerateStream(ctx context.Context, prompt string, callback func(thinking, content string) error) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if callback != nil {
		if err := callback("", s.reply); err != nil {
			return "", err
		}
	}
	return s.reply, nil
}

func (s *stubGenerator) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.5}
	}
	return out, nil
}

func (s *stubGenerator) IsEnabled() bool { return true }

type stubFetcher struct {
	record *model.PropertyRecord
	err    error
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) (*model.PropertyRecord, error) {
	return s.record, s.err
}

type stubDistances struct {
	snapshot *model.DistanceSnapshot
	enabled  bool
}

func (s *stubDistances) Snapshot(ctx context.Context, address string) (*model.DistanceSnapshot, error) {
	return s.snapshot, nil
}

func (s *stubDistances) IsEnabled() bool { return s.enabled }

func stubProperty() *model.PropertyRecord {
	return &model.PropertyRecord{
		URL:     "https://www.domain.com.au/1-test-st-sydney-nsw-2000-2019111111",
		Address: "1 Test St, Sydney NSW 2000",
	}
}

func newTestRouter(gen service.TextGenerator) *gin.Engine {
	gin.SetMode(gin.TestMode)

	personas := persona.NewCatalog()
	analyzer := service.NewAnalyzer(service.NewPromptComposer(20, 2000), gen, service.NewAnalysisValidator())
	store := service.NewSessionStore(analyzer)
	auditor := service.NewAnalysisAuditor(nil, gen)

	analysisHandler := NewAnalysisHandler(analyzer, personas, auditor)
	sessionHandler := NewSessionHandler(store, personas, auditor)

	router := gin.New()
	api := router.Group("/api/v1")
	{
		api.GET("/agents", analysisHandler.Agents)
		api.POST("/analyze", analysisHandler.Analyze)
		api.POST("/sessions", sessionHandler.Create)
		api.GET("/sessions", sessionHandler.List)
		api.GET("/sessions/:id", sessionHandler.Get)
		api.POST("/sessions/:id/ask", sessionHandler.Ask)
		api.DELETE("/sessions/:id", sessionHandler.Delete)
		api.GET("/analyses/similar", analysisHandler.SimilarAnalyses)
	}
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAgentsEndpoint(t *testing.T) {
	router := newTestRouter(&stubGenerator{reply: analysisJSON})

	w := doJSON(t, router, http.MethodGet, "/api/v1/agents", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Agents []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Agents, 3)
	assert.Equal(t, "optimistic", resp.Agents[0].ID)
}

func TestAnalyzeEndpoint(t *testing.T) {
	router := newTestRouter(&stubGenerator{reply: analysisJSON})

	w := doJSON(t, router, http.MethodPost, "/api/v1/analyze", model.AnalyzeRequest{
		PropertyData: stubProperty(),
		Agent:        "critical",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Agent    string `json:"agent"`
		Analysis struct {
			Recommendation struct {
				Summary string `json:"summary"`
			} `json:"recommendation"`
		} `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "critical", resp.Agent)
	assert.Equal(t, "A solid family home.", resp.Analysis.Recommendation.Summary)
}

func TestAnalyzeUnknownAgent(t *testing.T) {
	router := newTestRouter(&stubGenerator{reply: analysisJSON})

	w := doJSON(t, router, http.MethodPost, "/api/v1/analyze", model.AnalyzeRequest{
		PropertyData: stubProperty(),
		Agent:        "pessimistic-pete",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown persona")
}

func TestAnalyzeGeneratorFailure(t *testing.T) {
	router := newTestRouter(&stubGenerator{err: errors.New("upstream down")})

	w := doJSON(t, router, http.MethodPost, "/api/v1/analyze", model.AnalyzeRequest{
		PropertyData: stubProperty(),
		Agent:        "optimistic",
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	router := newTestRouter(&stubGenerator{reply: analysisJSON})

	// Create and start.
	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions", model.CreateSessionRequest{
		PropertyData: stubProperty(),
		Agent:        "cautious",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created model.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.SessionID)
	assert.Equal(t, "active", created.State)
	require.Len(t, created.History, 1)
	assert.NotNil(t, created.History[0].Analysis)

	// Ask a follow-up.
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%s/ask", created.SessionID), model.AskRequest{
		Question: "What about schools?",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Fetch the session; history is 1 + one question/answer pair.
	w = doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+created.SessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var fetched model.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Len(t, fetched.History, 3)
	assert.Equal(t, "What about schools?", fetched.History[1].Content)

	// List shows the session.
	w = doJSON(t, router, http.MethodGet, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.SessionID)

	// Delete closes and removes it.
	w = doJSON(t, router, http.MethodDelete, "/api/v1/sessions/"+created.SessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+created.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSessionStartFailureEvicts(t *testing.T) {
	router := newTestRouter(&stubGenerator{err: errors.New("no capacity")})

	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions", model.CreateSessionRequest{
		PropertyData: stubProperty(),
		Agent:        "optimistic",
	})
	require.Equal(t, http.StatusBadGateway, w.Code)

	// No half-started session is left behind.
	w = doJSON(t, router, http.MethodGet, "/api/v1/sessions", nil)
	var resp struct {
		Sessions []model.SessionSummary `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Sessions)
}

func TestAskUnknownSession(t *testing.T) {
	router := newTestRouter(&stubGenerator{reply: analysisJSON})

	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions/nope/ask", model.AskRequest{Question: "Hello?"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSimilarAnalysesDisabled(t *testing.T) {
	router := newTestRouter(&stubGenerator{reply: analysisJSON})

	w := doJSON(t, router, http.MethodGet, "/api/v1/analyses/similar?q=harbour+views", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not enabled")
}

func TestInitializeEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewPropertyHandler(
		&stubFetcher{record: stubProperty()},
		&stubDistances{enabled: false},
	)
	router := gin.New()
	router.POST("/api/v1/initialize", h.Initialize)

	w := doJSON(t, router, http.MethodPost, "/api/v1/initialize", model.InitializeRequest{
		URL: "https://www.domain.com.au/1-test-st-sydney-nsw-2000-2019111111",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.InitializeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	require.NotNil(t, resp.PropertyData)
	assert.Equal(t, "1 Test St, Sydney NSW 2000", resp.PropertyData.Address)
}

func TestInitializeFetchErrorInBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewPropertyHandler(
		&stubFetcher{err: service.NewError(service.KindFetch, "listing page returned HTTP 404")},
		&stubDistances{enabled: false},
	)
	router := gin.New()
	router.POST("/api/v1/initialize", h.Initialize)

	w := doJSON(t, router, http.MethodPost, "/api/v1/initialize", model.InitializeRequest{
		URL: "https://www.domain.com.au/gone",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.InitializeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "404")
	assert.Nil(t, resp.PropertyData)
}
