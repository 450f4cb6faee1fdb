package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proplens/internal/model"
	"proplens/internal/persona"
)

const validPayloadJSON = `{
  "overview": {
    "property_type": "apartment",
    "key_features": ["2 bedrooms", "city views"],
    "condition": "well maintained",
    "unique_selling_points": ["corner position"]
  },
  "strengths": {
    "physical_attributes": ["north facing"],
    "location_advantages": ["near station"],
    "investment_potential": ["strong rental demand"],
    "lifestyle_benefits": ["walk to cafes"]
  },
  "concerns": {
    "physical_issues": ["dated kitchen"],
    "location_disadvantages": ["busy road"],
    "investment_risks": ["strata levies"],
    "lifestyle_limitations": ["no parking"]
  },
  "investment_analysis": {
    "price_assessment": "fairly priced",
    "market_position": "mid market",
    "growth_potential": "moderate",
    "rental_potential": "strong",
    "holding_costs": ["strata", "council rates"]
  },
  "recommendation": {
    "summary": "Worth a look for first home buyers.",
    "suitable_buyer_types": ["first home buyers"],
    "key_considerations": ["check strata records"],
    "next_steps": ["attend inspection"]
  }
}`

// fakeGenerator replays scripted replies in order. When the script runs
// out, the last entry repeats.
type fakeGenerator struct {
	mu      sync.Mutex
	scripts []func() (string, error)
	calls   int
}

func (f *fakeGenerator) next() func() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	f.calls++
	if idx >= len(f.scripts) {
		idx = len(f.scripts) - 1
	}
	return f.scripts[idx]
}

func (f *fakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return f.next()()
}

func (f *fakeGenerator) GenerateStream(ctx context.Context, prompt string, callback func(thinking, content string) error) (string, error) {
	reply, err := f.next()()
	if err != nil {
		return "", err
	}
	if callback != nil {
		if cbErr := callback("", reply); cbErr != nil {
			return "", cbErr
		}
	}
	return reply, nil
}

func (f *fakeGenerator) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (f *fakeGenerator) IsEnabled() bool { return true }

func reply(text string) func() (string, error) {
	return func() (string, error) { return text, nil }
}

func fail(err error) func() (string, error) {
	return func() (string, error) { return "", err }
}

func testProperty() *model.PropertyRecord {
	price := 850000.0
	beds := 2
	return &model.PropertyRecord{
		URL:      "https://www.domain.com.au/123-example-st-sydney-nsw-2000-2019123456",
		Address:  "123 Example St, Sydney NSW 2000",
		Price:    &price,
		Bedrooms: &beds,
	}
}

func newTestSession(t *testing.T, gen TextGenerator) *AnalysisSession {
	t.Helper()
	p, err := persona.NewCatalog().Get("optimistic")
	require.NoError(t, err)
	analyzer := NewAnalyzer(NewPromptComposer(20, 2000), gen, NewAnalysisValidator())
	return NewAnalysisSession("test-session", p, testProperty(), nil, analyzer)
}

func TestSessionStartSuccess(t *testing.T) {
	gen := &fakeGenerator{scripts: []func() (string, error){reply(validPayloadJSON)}}
	session := newTestSession(t, gen)

	turn, err := session.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateActive, session.State())
	require.NotNil(t, turn.Analysis)
	assert.Equal(t, model.RoleAssistant, turn.Role)
	assert.Equal(t, "optimistic", turn.Agent)
	assert.Equal(t, "Worth a look for first home buyers.", turn.Content)
	assert.Len(t, session.History(), 1)
}

func TestSessionStartFailureLeavesCreated(t *testing.T) {
	genErr := errors.New("upstream unavailable")
	gen := &fakeGenerator{scripts: []func() (string, error){
		fail(genErr),
		reply(validPayloadJSON),
	}}
	session := newTestSession(t, gen)

	_, err := session.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindGeneration, KindOf(err))
	assert.Equal(t, StateCreated, session.State())
	assert.Empty(t, session.History())

	// Same session is retryable after a failed start.
	_, err = session.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateActive, session.State())
	assert.Len(t, session.History(), 1)
}

func TestSessionDoubleStart(t *testing.T) {
	gen := &fakeGenerator{scripts: []func() (string, error){reply(validPayloadJSON)}}
	session := newTestSession(t, gen)

	_, err := session.Start(context.Background())
	require.NoError(t, err)

	_, err = session.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.Len(t, session.History(), 1)
}

func TestSessionAskAppendsBothTurns(t *testing.T) {
	gen := &fakeGenerator{scripts: []func() (string, error){
		reply(validPayloadJSON),
		reply("The strata report looked clean to me."),
	}}
	session := newTestSession(t, gen)

	_, err := session.Start(context.Background())
	require.NoError(t, err)

	turn, err := session.Ask(context.Background(), "What about the strata?")
	require.NoError(t, err)
	assert.Equal(t, "The strata report looked clean to me.", turn.Content)
	assert.Nil(t, turn.Analysis)

	history := session.History()
	require.Len(t, history, 3)
	assert.Equal(t, model.RoleUser, history[1].Role)
	assert.Equal(t, "What about the strata?", history[1].Content)
	assert.Equal(t, model.RoleAssistant, history[2].Role)
}

func TestSessionAskFailureLeavesHistoryUntouched(t *testing.T) {
	gen := &fakeGenerator{scripts: []func() (string, error){
		reply(validPayloadJSON),
		fail(errors.New("timeout")),
		reply("Second attempt answer."),
	}}
	session := newTestSession(t, gen)

	_, err := session.Start(context.Background())
	require.NoError(t, err)

	_, err = session.Ask(context.Background(), "How is the yield?")
	require.Error(t, err)
	assert.Equal(t, KindGeneration, KindOf(err))
	assert.Len(t, session.History(), 1)
	assert.Equal(t, StateActive, session.State())

	// Retry with the same question succeeds and appends both turns.
	turn, err := session.Ask(context.Background(), "How is the yield?")
	require.NoError(t, err)
	assert.Equal(t, "Second attempt answer.", turn.Content)
	assert.Len(t, session.History(), 3)
}

func TestSessionAskBeforeStart(t *testing.T) {
	gen := &fakeGenerator{scripts: []func() (string, error){reply(validPayloadJSON)}}
	session := newTestSession(t, gen)

	_, err := session.Ask(context.Background(), "Too early?")
	require.Error(t, err)
	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.Zero(t, gen.Calls())
}

func TestSessionClosedRejectsEverything(t *testing.T) {
	gen := &fakeGenerator{scripts: []func() (string, error){reply(validPayloadJSON)}}
	session := newTestSession(t, gen)

	_, err := session.Start(context.Background())
	require.NoError(t, err)

	session.Close()
	assert.Equal(t, StateClosed, session.State())

	_, err = session.Ask(context.Background(), "Still there?")
	require.Error(t, err)
	assert.Equal(t, KindSessionClosed, KindOf(err))

	_, err = session.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindSessionClosed, KindOf(err))
	assert.Len(t, session.History(), 1)
}

func TestSessionConcurrentAskRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	gen := &fakeGenerator{scripts: []func() (string, error){
		reply(validPayloadJSON),
		func() (string, error) {
			close(entered)
			<-release
			return "Slow answer.", nil
		},
		reply("Should never be reached concurrently."),
	}}
	session := newTestSession(t, gen)

	_, err := session.Start(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, askErr := session.Ask(context.Background(), "Slow question?")
		done <- askErr
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first ask never reached the generator")
	}

	_, err = session.Ask(context.Background(), "Jumping the queue?")
	require.Error(t, err)
	assert.Equal(t, KindConcurrentAsk, KindOf(err))

	close(release)
	require.NoError(t, <-done)

	// Only the first ask landed: one start turn plus one user/assistant pair.
	history := session.History()
	require.Len(t, history, 3)
	assert.Equal(t, "Slow question?", history[1].Content)
	assert.Equal(t, "Slow answer.", history[2].Content)
}

func TestSessionPlainTextFallbackTurn(t *testing.T) {
	gen := &fakeGenerator{scripts: []func() (string, error){
		reply("I could not put this into the usual shape, but the place looks great."),
	}}
	session := newTestSession(t, gen)

	turn, err := session.Start(context.Background())
	require.NoError(t, err)
	assert.Nil(t, turn.Analysis)
	assert.Equal(t, "I could not put this into the usual shape, but the place looks great.", turn.Content)
	assert.Equal(t, StateActive, session.State())
}

func TestSessionStartStream(t *testing.T) {
	gen := &fakeGenerator{scripts: []func() (string, error){reply(validPayloadJSON)}}
	session := newTestSession(t, gen)

	var streamed []string
	turn, err := session.StartStream(context.Background(), func(thinking, content string) error {
		if content != "" {
			streamed = append(streamed, content)
		}
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, turn.Analysis)
	assert.NotEmpty(t, streamed)
	assert.Equal(t, StateActive, session.State())
}
