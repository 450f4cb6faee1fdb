package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"proplens/internal/model"
	"proplens/internal/persona"
)

// analysisSchemaInstruction tells the generator the exact shape the
// structured analysis must take. Every field is named so that the
// validator can demand all of them.
const analysisSchemaInstruction = `Respond ONLY with a valid JSON object using exactly this structure:
{
  "overview": {
    "property_type": "<string>",
    "key_features": ["<string>", ...],
    "condition": "<string>",
    "unique_selling_points": ["<string>", ...]
  },
  "strengths": {
    "physical_attributes": ["<string>", ...],
    "location_advantages": ["<string>", ...],
    "investment_potential": ["<string>", ...],
    "lifestyle_benefits": ["<string>", ...]
  },
  "concerns": {
    "physical_issues": ["<string>", ...],
    "location_disadvantages": ["<string>", ...],
    "investment_risks": ["<string>", ...],
    "lifestyle_limitations": ["<string>", ...]
  },
  "investment_analysis": {
    "price_assessment": "<string>",
    "market_position": "<string>",
    "growth_potential": "<string>",
    "rental_potential": "<string>",
    "holding_costs": ["<string>", ...]
  },
  "recommendation": {
    "summary": "<string>",
    "suitable_buyer_types": ["<string>", ...],
    "key_considerations": ["<string>", ...],
    "next_steps": ["<string>", ...]
  }
}
Every section and every field is required. Keep list entries short and specific.`

// PromptComposer builds the exact instruction text sent to the text
// generator. For identical inputs the composed text is byte-identical:
// all rendering uses fixed field order and nothing derives from the
// wall clock.
type PromptComposer struct {
	turnBudget int
	excerptLen int
}

// NewPromptComposer creates a composer. turnBudget caps how many
// transcript turns a follow-up prompt carries (oldest dropped first);
// excerptLen caps the listing description length in characters.
func NewPromptComposer(turnBudget, excerptLen int) *PromptComposer {
	return &PromptComposer{
		turnBudget: turnBudget,
		excerptLen: excerptLen,
	}
}

// ComposeInitial builds the prompt for a session's first analysis.
func (c *PromptComposer) ComposeInitial(p persona.Persona, property *model.PropertyRecord, distance *model.DistanceSnapshot) string {
	var b strings.Builder

	b.WriteString(p.Template)
	b.WriteString("\n\nPlease analyze this property from your perspective as ")
	b.WriteString(p.Name)
	b.WriteString(", ")
	b.WriteString(p.Role)
	b.WriteString(".\n\n")

	c.writeProperty(&b, property)
	c.writeDistance(&b, distance)

	b.WriteString("\n")
	b.WriteString(analysisSchemaInstruction)
	b.WriteString("\nRemember to maintain your unique perspective and focus on your key areas of interest.")

	return b.String()
}

// ComposeFollowUp builds the prompt for a follow-up question. It embeds
// the first structured analysis as durable context (later turns refer
// back to it), then the truncated transcript, then the new question.
// Follow-up responses may be conversational free text.
func (c *PromptComposer) ComposeFollowUp(p persona.Persona, property *model.PropertyRecord, distance *model.DistanceSnapshot, history []model.ChatTurn, question string) string {
	var b strings.Builder

	b.WriteString(p.Template)
	b.WriteString("\n\nYou are ")
	b.WriteString(p.Name)
	b.WriteString(", ")
	b.WriteString(p.Role)
	b.WriteString(", continuing a conversation about this property.\n\n")

	c.writeProperty(&b, property)
	c.writeDistance(&b, distance)

	if payload := firstStructuredAnalysis(history); payload != nil {
		b.WriteString("\nYOUR EARLIER ANALYSIS\n")
		writeAnalysisSummary(&b, payload)
	}

	c.writeTranscript(&b, history)

	b.WriteString("\nNew question: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer conversationally in your own voice, staying consistent with your persona and your earlier analysis. A plain-text answer is fine; do not repeat the full structured analysis unless the question demands it.")

	return b.String()
}

// writeProperty renders the property facts in a fixed order. Absent
// fields render as "Not specified" so the generator never guesses.
func (c *PromptComposer) writeProperty(b *strings.Builder, property *model.PropertyRecord) {
	b.WriteString("PROPERTY DETAILS\n")
	fmt.Fprintf(b, "- Title: %s\n", strOrDefault(property.Title, "Not specified"))
	fmt.Fprintf(b, "- Type: %s\n", strOrDefault(property.PropertyType, "Not specified"))
	if property.Price != nil {
		fmt.Fprintf(b, "- Price: $%.0f\n", *property.Price)
	} else {
		b.WriteString("- Price: Not specified\n")
	}
	fmt.Fprintf(b, "- Address: %s\n", property.Address)
	fmt.Fprintf(b, "- Bedrooms: %s\n", intOrDefault(property.Bedrooms, "Not specified"))
	fmt.Fprintf(b, "- Bathrooms: %s\n", intOrDefault(property.Bathrooms, "Not specified"))
	fmt.Fprintf(b, "- Parking: %s\n", intOrDefault(property.Parking, "Not specified"))
	if property.PropertySizeSqm != nil {
		fmt.Fprintf(b, "- Property Size: %.0f m²\n", *property.PropertySizeSqm)
	} else {
		b.WriteString("- Property Size: Not specified\n")
	}
	if property.LandSizeSqm != nil {
		fmt.Fprintf(b, "- Land Size: %.0f m²\n", *property.LandSizeSqm)
	} else {
		b.WriteString("- Land Size: Not specified\n")
	}

	b.WriteString("\nDESCRIPTION\n")
	if property.Description != nil && *property.Description != "" {
		b.WriteString(excerpt(*property.Description, c.excerptLen))
	} else {
		b.WriteString("No description available")
	}
	b.WriteString("\n")
}

// writeDistance renders the distance snapshot with categories in a
// fixed order so composition stays deterministic.
func (c *PromptComposer) writeDistance(b *strings.Builder, distance *model.DistanceSnapshot) {
	if distance.Empty() {
		return
	}

	b.WriteString("\nLOCATION ANALYSIS\n")
	writeCategory(b, "WORK", distance.Work)
	writeCategory(b, "GROCERIES", distance.Groceries)
	writeCategory(b, "SCHOOLS", distance.Schools)
}

func writeCategory(b *strings.Builder, label string, entries []model.LocationDistance) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s LOCATIONS:\n", label)
	for _, entry := range entries {
		fmt.Fprintf(b, "- %s", entry.Destination)
		if entry.Distance != nil {
			fmt.Fprintf(b, " (%s)", entry.Distance.Text)
		}
		b.WriteString("\n")
		writeMode(b, "Driving", entry.Modes.Driving)
		writeMode(b, "Transit", entry.Modes.Transit)
		writeMode(b, "Walking", entry.Modes.Walking)
	}
}

func writeMode(b *strings.Builder, label string, tt *model.TravelTime) {
	if tt == nil {
		return
	}
	fmt.Fprintf(b, "  %s: %s\n", label, tt.Text)
}

// writeTranscript renders the chat so far, role-tagged, truncated FIFO
// to the turn budget.
func (c *PromptComposer) writeTranscript(b *strings.Builder, history []model.ChatTurn) {
	turns := history
	if c.turnBudget > 0 && len(turns) > c.turnBudget {
		turns = turns[len(turns)-c.turnBudget:]
	}
	if len(turns) == 0 {
		return
	}

	b.WriteString("\nCONVERSATION SO FAR\n")
	for _, turn := range turns {
		role := turn.EffectiveRole()
		if role == model.RoleAssistant && turn.Agent != "" {
			role = turn.Agent
		}
		content := turn.Content
		if content == "" && turn.Analysis != nil {
			content = turn.Analysis.Recommendation.Summary
		}
		fmt.Fprintf(b, "[%s] %s\n", role, content)
	}
}

// firstStructuredAnalysis returns the earliest structured payload in
// history. It is kept as durable context even when the transcript
// itself is truncated.
func firstStructuredAnalysis(history []model.ChatTurn) *model.AnalysisPayload {
	for _, turn := range history {
		if turn.EffectiveRole() == model.RoleAssistant && turn.Analysis != nil {
			return turn.Analysis
		}
	}
	return nil
}

// writeAnalysisSummary flattens a structured payload into readable
// labeled sections for re-feeding into a prompt.
func writeAnalysisSummary(b *strings.Builder, p *model.AnalysisPayload) {
	fmt.Fprintf(b, "Overview: %s, condition %s\n", p.Overview.PropertyType, p.Overview.Condition)
	writeList(b, "Key features", p.Overview.KeyFeatures)
	writeList(b, "Strengths", flatten(
		p.Strengths.PhysicalAttributes,
		p.Strengths.LocationAdvantages,
		p.Strengths.InvestmentPotential,
		p.Strengths.LifestyleBenefits,
	))
	writeList(b, "Concerns", flatten(
		p.Concerns.PhysicalIssues,
		p.Concerns.LocationDisadvantages,
		p.Concerns.InvestmentRisks,
		p.Concerns.LifestyleLimitations,
	))
	fmt.Fprintf(b, "Price assessment: %s\n", p.InvestmentAnalysis.PriceAssessment)
	fmt.Fprintf(b, "Recommendation: %s\n", p.Recommendation.Summary)
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, strings.Join(items, "; "))
}

func flatten(lists ...[]string) []string {
	var out []string
	for _, list := range lists {
		out = append(out, list...)
	}
	return out
}

// excerpt truncates s to at most maxLen bytes, backing off to a rune
// boundary so the cut never emits invalid UTF-8.
func excerpt(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func strOrDefault(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

func intOrDefault(v *int, def string) string {
	if v == nil {
		return def
	}
	return fmt.Sprintf("%d", *v)
}
