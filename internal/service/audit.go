package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"proplens/internal/model"
)

// AnalysisRepository persists completed analyses with their embeddings.
type AnalysisRepository interface {
	SaveAnalysis(ctx context.Context, record *model.AnalysisRecord, embedding []float32) error
	FindSimilar(ctx context.Context, embedding []float32, limit int) ([]model.SimilarAnalysis, error)
	RecentAnalyses(ctx context.Context, limit int) ([]model.AnalysisRecord, error)
}

// AnalysisAuditor records completed analyses into the audit log and
// serves similarity lookups over past analyses. Recording is
// best-effort: failures are logged and never surface to the caller,
// since the chat response has already been produced.
type AnalysisAuditor struct {
	repo      AnalysisRepository
	generator TextGenerator
}

// NewAnalysisAuditor builds an auditor. A nil repo disables persistence
// and every method becomes a no-op.
func NewAnalysisAuditor(repo AnalysisRepository, generator TextGenerator) *AnalysisAuditor {
	return &AnalysisAuditor{repo: repo, generator: generator}
}

// Enabled reports whether the auditor has a backing repository.
func (a *AnalysisAuditor) Enabled() bool {
	return a != nil && a.repo != nil
}

// Record persists one completed turn. The embedding is computed from a
// flattened summary of the result so that similar analyses of similar
// properties land close together in vector space.
func (a *AnalysisAuditor) Record(ctx context.Context, sessionID, agent, address, question string, result *model.AnalysisResult) {
	if !a.Enabled() {
		return
	}

	summary := summarizeResult(address, question, result)

	embeddings, err := a.generator.CreateEmbeddings(ctx, []string{summary})
	if err != nil {
		log.Printf("⚠️ Audit embedding failed for session %s: %v", sessionID, err)
		return
	}
	if len(embeddings) == 0 {
		log.Printf("⚠️ Audit embedding returned no vectors for session %s", sessionID)
		return
	}

	record := &model.AnalysisRecord{
		SessionID: sessionID,
		Agent:     agent,
		Address:   address,
		Summary:   summary,
	}
	if question != "" {
		record.Question = &question
	}
	if result.Structured() {
		record.Analysis = *result.Payload
	}

	if err := a.repo.SaveAnalysis(ctx, record, embeddings[0]); err != nil {
		log.Printf("⚠️ Audit save failed for session %s: %v", sessionID, err)
	}
}

// SimilarAnalyses embeds the query text and returns the closest past
// analyses by cosine distance.
func (a *AnalysisAuditor) SimilarAnalyses(ctx context.Context, query string, limit int) ([]model.SimilarAnalysis, error) {
	if !a.Enabled() {
		return nil, NewError(KindConfiguration, "analysis audit log is not enabled")
	}
	if strings.TrimSpace(query) == "" {
		return nil, NewError(KindConfiguration, "query must not be empty")
	}
	if limit <= 0 {
		limit = 5
	}

	embeddings, err := a.generator.CreateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, WrapError(KindGeneration, err, "failed to embed query")
	}
	if len(embeddings) == 0 {
		return nil, NewError(KindGeneration, "embedding returned no vectors")
	}

	return a.repo.FindSimilar(ctx, embeddings[0], limit)
}

// RecentAnalyses returns the latest audit-log rows, newest first.
func (a *AnalysisAuditor) RecentAnalyses(ctx context.Context, limit int) ([]model.AnalysisRecord, error) {
	if !a.Enabled() {
		return nil, NewError(KindConfiguration, "analysis audit log is not enabled")
	}
	if limit <= 0 {
		limit = 20
	}
	return a.repo.RecentAnalyses(ctx, limit)
}

// summarizeResult flattens a result into embedding-friendly text.
func summarizeResult(address, question string, result *model.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Property: %s\n", address)
	if question != "" {
		fmt.Fprintf(&b, "Question: %s\n", question)
	}
	if result.Structured() {
		p := result.Payload
		fmt.Fprintf(&b, "Overview: %s. %s\n", p.Overview.PropertyType, strings.Join(p.Overview.KeyFeatures, "; "))
		strengths := flatten(p.Strengths.PhysicalAttributes, p.Strengths.LocationAdvantages, p.Strengths.InvestmentPotential, p.Strengths.LifestyleBenefits)
		if len(strengths) > 0 {
			fmt.Fprintf(&b, "Strengths: %s\n", strings.Join(strengths, "; "))
		}
		concerns := flatten(p.Concerns.PhysicalIssues, p.Concerns.LocationDisadvantages, p.Concerns.InvestmentRisks, p.Concerns.LifestyleLimitations)
		if len(concerns) > 0 {
			fmt.Fprintf(&b, "Concerns: %s\n", strings.Join(concerns, "; "))
		}
		fmt.Fprintf(&b, "Price assessment: %s\n", p.InvestmentAnalysis.PriceAssessment)
		fmt.Fprintf(&b, "Recommendation: %s", p.Recommendation.Summary)
	} else {
		b.WriteString(result.Text)
	}
	return b.String()
}
