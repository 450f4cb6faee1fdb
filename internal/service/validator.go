package service

import (
	"strings"

	"proplens/internal/model"
	"proplens/internal/utils"
)

// AnalysisValidator parses raw generator output against the analysis
// schema. The outcome is a tagged union: a fully-typed payload when
// every required section is present and correctly shaped, a plain-text
// fallback when the text is usable but not structured, or a malformed
// error when there is nothing to work with. A payload is never
// partially populated.
type AnalysisValidator struct{}

// NewAnalysisValidator creates a validator.
func NewAnalysisValidator() *AnalysisValidator {
	return &AnalysisValidator{}
}

// Validate classifies raw generator output.
//   - Structured: a JSON region parses with all five sections complete.
//   - Fallback: non-empty text without a complete schema. Legitimate
//     for conversational follow-ups, so not an error.
//   - Malformed: empty output; retryable error, nothing usable.
func (v *AnalysisValidator) Validate(raw string) (*model.AnalysisResult, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, NewError(KindMalformedOutput, "generator returned empty output")
	}

	payload := parsePayload(trimmed)
	if payload != nil {
		return &model.AnalysisResult{Payload: payload}, nil
	}

	return &model.AnalysisResult{Text: raw}, nil
}

// payloadProbe mirrors AnalysisPayload with pointer fields so that a
// missing section or field is distinguishable from a present-but-empty
// one. A wrong value kind (string where list expected, or vice versa)
// fails the unmarshal and the probe is discarded.
type payloadProbe struct {
	Overview           *overviewProbe           `json:"overview"`
	Strengths          *strengthsProbe          `json:"strengths"`
	Concerns           *concernsProbe           `json:"concerns"`
	InvestmentAnalysis *investmentAnalysisProbe `json:"investment_analysis"`
	Recommendation     *recommendationProbe     `json:"recommendation"`
}

type overviewProbe struct {
	PropertyType        *string   `json:"property_type"`
	KeyFeatures         *[]string `json:"key_features"`
	Condition           *string   `json:"condition"`
	UniqueSellingPoints *[]string `json:"unique_selling_points"`
}

type strengthsProbe struct {
	PhysicalAttributes  *[]string `json:"physical_attributes"`
	LocationAdvantages  *[]string `json:"location_advantages"`
	InvestmentPotential *[]string `json:"investment_potential"`
	LifestyleBenefits   *[]string `json:"lifestyle_benefits"`
}

type concernsProbe struct {
	PhysicalIssues        *[]string `json:"physical_issues"`
	LocationDisadvantages *[]string `json:"location_disadvantages"`
	InvestmentRisks       *[]string `json:"investment_risks"`
	LifestyleLimitations  *[]string `json:"lifestyle_limitations"`
}

type investmentAnalysisProbe struct {
	PriceAssessment *string   `json:"price_assessment"`
	MarketPosition  *string   `json:"market_position"`
	GrowthPotential *string   `json:"growth_potential"`
	RentalPotential *string   `json:"rental_potential"`
	HoldingCosts    *[]string `json:"holding_costs"`
}

type recommendationProbe struct {
	Summary            *string   `json:"summary"`
	SuitableBuyerTypes *[]string `json:"suitable_buyer_types"`
	KeyConsiderations  *[]string `json:"key_considerations"`
	NextSteps          *[]string `json:"next_steps"`
}

// parsePayload extracts the JSON region from raw text and returns a
// complete payload, or nil when the text does not carry one.
func parsePayload(raw string) *model.AnalysisPayload {
	region := utils.ExtractJSONObject(raw)
	if region == "" {
		return nil
	}

	var probe payloadProbe
	if err := utils.ParseModelJSON(region, &probe); err != nil {
		return nil
	}

	if !probe.complete() {
		return nil
	}

	return probe.toPayload()
}

func (p *payloadProbe) complete() bool {
	if p.Overview == nil || p.Strengths == nil || p.Concerns == nil ||
		p.InvestmentAnalysis == nil || p.Recommendation == nil {
		return false
	}

	o := p.Overview
	if o.PropertyType == nil || o.KeyFeatures == nil || o.Condition == nil || o.UniqueSellingPoints == nil {
		return false
	}

	s := p.Strengths
	if s.PhysicalAttributes == nil || s.LocationAdvantages == nil || s.InvestmentPotential == nil || s.LifestyleBenefits == nil {
		return false
	}

	c := p.Concerns
	if c.PhysicalIssues == nil || c.LocationDisadvantages == nil || c.InvestmentRisks == nil || c.LifestyleLimitations == nil {
		return false
	}

	i := p.InvestmentAnalysis
	if i.PriceAssessment == nil || i.MarketPosition == nil || i.GrowthPotential == nil || i.RentalPotential == nil || i.HoldingCosts == nil {
		return false
	}

	r := p.Recommendation
	if r.Summary == nil || r.SuitableBuyerTypes == nil || r.KeyConsiderations == nil || r.NextSteps == nil {
		return false
	}

	return true
}

// toPayload converts a complete probe into the concrete payload.
// Callers must have checked complete() first.
func (p *payloadProbe) toPayload() *model.AnalysisPayload {
	return &model.AnalysisPayload{
		Overview: model.Overview{
			PropertyType:        *p.Overview.PropertyType,
			KeyFeatures:         *p.Overview.KeyFeatures,
			Condition:           *p.Overview.Condition,
			UniqueSellingPoints: *p.Overview.UniqueSellingPoints,
		},
		Strengths: model.Strengths{
			PhysicalAttributes:  *p.Strengths.PhysicalAttributes,
			LocationAdvantages:  *p.Strengths.LocationAdvantages,
			InvestmentPotential: *p.Strengths.InvestmentPotential,
			LifestyleBenefits:   *p.Strengths.LifestyleBenefits,
		},
		Concerns: model.Concerns{
			PhysicalIssues:        *p.Concerns.PhysicalIssues,
			LocationDisadvantages: *p.Concerns.LocationDisadvantages,
			InvestmentRisks:       *p.Concerns.InvestmentRisks,
			LifestyleLimitations:  *p.Concerns.LifestyleLimitations,
		},
		InvestmentAnalysis: model.InvestmentAnalysis{
			PriceAssessment: *p.InvestmentAnalysis.PriceAssessment,
			MarketPosition:  *p.InvestmentAnalysis.MarketPosition,
			GrowthPotential: *p.InvestmentAnalysis.GrowthPotential,
			RentalPotential: *p.InvestmentAnalysis.RentalPotential,
			HoldingCosts:    *p.InvestmentAnalysis.HoldingCosts,
		},
		Recommendation: model.Recommendation{
			Summary:            *p.Recommendation.Summary,
			SuitableBuyerTypes: *p.Recommendation.SuitableBuyerTypes,
			KeyConsiderations:  *p.Recommendation.KeyConsiderations,
			NextSteps:          *p.Recommendation.NextSteps,
		},
	}
}
