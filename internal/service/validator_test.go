package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStructuredPayload(t *testing.T) {
	v := NewAnalysisValidator()

	result, err := v.Validate(validPayloadJSON)
	require.NoError(t, err)
	require.True(t, result.Structured())

	p := result.Payload
	assert.Equal(t, "apartment", p.Overview.PropertyType)
	assert.Equal(t, []string{"north facing"}, p.Strengths.PhysicalAttributes)
	assert.Equal(t, []string{"strata levies"}, p.Concerns.InvestmentRisks)
	assert.Equal(t, "fairly priced", p.InvestmentAnalysis.PriceAssessment)
	assert.Equal(t, "Worth a look for first home buyers.", p.Recommendation.Summary)
}

func TestValidateFencedPayload(t *testing.T) {
	v := NewAnalysisValidator()
	raw := "Here is my take:\n```json\n" + validPayloadJSON + "\n```\nLet me know what you think."

	result, err := v.Validate(raw)
	require.NoError(t, err)
	require.True(t, result.Structured())
	assert.Equal(t, "apartment", result.Payload.Overview.PropertyType)
}

func TestValidateProseWrappedPayload(t *testing.T) {
	v := NewAnalysisValidator()
	raw := "Sure! " + validPayloadJSON + " Hope that helps."

	result, err := v.Validate(raw)
	require.NoError(t, err)
	assert.True(t, result.Structured())
}

func TestValidateMissingSectionFallsBack(t *testing.T) {
	v := NewAnalysisValidator()
	// Drop the recommendation section entirely.
	raw := strings.Replace(validPayloadJSON, `"recommendation": {`, `"something_else": {`, 1)

	result, err := v.Validate(raw)
	require.NoError(t, err)
	assert.False(t, result.Structured())
	assert.Equal(t, raw, result.Text)
}

func TestValidateMissingFieldFallsBack(t *testing.T) {
	v := NewAnalysisValidator()
	raw := strings.Replace(validPayloadJSON, `"condition": "well maintained",`, "", 1)

	result, err := v.Validate(raw)
	require.NoError(t, err)
	assert.False(t, result.Structured())
}

func TestValidateWrongKindFallsBack(t *testing.T) {
	v := NewAnalysisValidator()
	raw := `{
	  "overview": "just a string",
	  "strengths": {},
	  "concerns": {},
	  "investment_analysis": {},
	  "recommendation": {}
	}`

	result, err := v.Validate(raw)
	require.NoError(t, err)
	assert.False(t, result.Structured())
	assert.Equal(t, raw, result.Text)
}

func TestValidatePlainProseFallsBack(t *testing.T) {
	v := NewAnalysisValidator()
	raw := "Honestly, this one is a gem. Great light, solid strata, close to everything."

	result, err := v.Validate(raw)
	require.NoError(t, err)
	assert.False(t, result.Structured())
	assert.Equal(t, raw, result.Text)
}

func TestValidateEmptyOutput(t *testing.T) {
	v := NewAnalysisValidator()

	for _, raw := range []string{"", "   ", "\n\t"} {
		_, err := v.Validate(raw)
		require.Error(t, err)
		assert.Equal(t, KindMalformedOutput, KindOf(err))
	}
}
