package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Chat turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatTurn is one message in a session's history. Assistant turns carry
// the structured analysis when the generator produced one; otherwise
// Content holds the free-text response. History is append-only.
type ChatTurn struct {
	Role      string           `json:"role,omitempty"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Agent     string           `json:"agent,omitempty"`
	Analysis  *AnalysisPayload `json:"analysis,omitempty"`
}

// EffectiveRole returns the turn's role. Client-supplied history may
// omit role entirely; a turn carrying an agent or a structured analysis
// can only have come from an assistant, anything else is the user.
func (t *ChatTurn) EffectiveRole() string {
	if t.Role != "" {
		return t.Role
	}
	if t.Agent != "" || t.Analysis != nil {
		return RoleAssistant
	}
	return RoleUser
}

// AnalysisResult is the outcome of validating generator output: either
// a full structured payload or a plain-text fallback, never both and
// never a partially-filled hybrid.
type AnalysisResult struct {
	Payload *AnalysisPayload
	Text    string
}

// Structured reports whether the result carries the full payload.
func (r *AnalysisResult) Structured() bool {
	return r.Payload != nil
}

// MarshalJSON renders the tagged union for the wire: the payload object
// when structured, otherwise {"response": "..."}.
func (r *AnalysisResult) MarshalJSON() ([]byte, error) {
	if r.Payload != nil {
		return json.Marshal(r.Payload)
	}
	return json.Marshal(map[string]string{"response": r.Text})
}

// AnalysisPayload is the fixed-shape structured record every persona is
// instructed to emit for an initial analysis. All five sections are
// required; a response missing any of them is treated as free text.
type AnalysisPayload struct {
	Overview           Overview           `json:"overview"`
	Strengths          Strengths          `json:"strengths"`
	Concerns           Concerns           `json:"concerns"`
	InvestmentAnalysis InvestmentAnalysis `json:"investment_analysis"`
	Recommendation     Recommendation     `json:"recommendation"`
}

// Overview summarizes what the property is.
type Overview struct {
	PropertyType        string   `json:"property_type"`
	KeyFeatures         []string `json:"key_features"`
	Condition           string   `json:"condition"`
	UniqueSellingPoints []string `json:"unique_selling_points"`
}

// Strengths lists what works in the property's favor.
type Strengths struct {
	PhysicalAttributes  []string `json:"physical_attributes"`
	LocationAdvantages  []string `json:"location_advantages"`
	InvestmentPotential []string `json:"investment_potential"`
	LifestyleBenefits   []string `json:"lifestyle_benefits"`
}

// Concerns lists what counts against it.
type Concerns struct {
	PhysicalIssues        []string `json:"physical_issues"`
	LocationDisadvantages []string `json:"location_disadvantages"`
	InvestmentRisks       []string `json:"investment_risks"`
	LifestyleLimitations  []string `json:"lifestyle_limitations"`
}

// InvestmentAnalysis covers the financial angle.
type InvestmentAnalysis struct {
	PriceAssessment string   `json:"price_assessment"`
	MarketPosition  string   `json:"market_position"`
	GrowthPotential string   `json:"growth_potential"`
	RentalPotential string   `json:"rental_potential"`
	HoldingCosts    []string `json:"holding_costs"`
}

// Recommendation is the persona's bottom line.
type Recommendation struct {
	Summary            string   `json:"summary"`
	SuitableBuyerTypes []string `json:"suitable_buyer_types"`
	KeyConsiderations  []string `json:"key_considerations"`
	NextSteps          []string `json:"next_steps"`
}

// Value implements driver.Valuer so payloads can be stored as jsonb.
func (p AnalysisPayload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner.
func (p *AnalysisPayload) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return json.Unmarshal([]byte(value.(string)), p)
	}
	return json.Unmarshal(bytes, p)
}
