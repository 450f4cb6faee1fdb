package service

import (
	"context"

	"proplens/internal/model"
	"proplens/internal/persona"
)

// Analyzer runs one analysis round trip: compose the prompt, invoke the
// generator, validate the output. It holds no conversational state;
// sessions own that.
type Analyzer struct {
	composer  *PromptComposer
	generator TextGenerator
	validator *AnalysisValidator
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(composer *PromptComposer, generator TextGenerator, validator *AnalysisValidator) *Analyzer {
	return &Analyzer{
		composer:  composer,
		generator: generator,
		validator: validator,
	}
}

// AnalyzeInitial produces the first analysis for a property.
func (a *Analyzer) AnalyzeInitial(ctx context.Context, p persona.Persona, property *model.PropertyRecord, distance *model.DistanceSnapshot) (*model.AnalysisResult, error) {
	prompt := a.composer.ComposeInitial(p, property, distance)

	raw, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, WrapError(KindGeneration, err, "text generation failed")
	}

	return a.validator.Validate(raw)
}

// AnalyzeFollowUp answers a question given the chat so far.
func (a *Analyzer) AnalyzeFollowUp(ctx context.Context, p persona.Persona, property *model.PropertyRecord, distance *model.DistanceSnapshot, history []model.ChatTurn, question string) (*model.AnalysisResult, error) {
	prompt := a.composer.ComposeFollowUp(p, property, distance, history, question)

	raw, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, WrapError(KindGeneration, err, "text generation failed")
	}

	return a.validator.Validate(raw)
}

// AnalyzeInitialStream is AnalyzeInitial with streaming progress. The
// callback receives (thinking, content) chunks; validation runs on the
// accumulated content once the stream completes.
func (a *Analyzer) AnalyzeInitialStream(ctx context.Context, p persona.Persona, property *model.PropertyRecord, distance *model.DistanceSnapshot, callback func(thinking, content string) error) (*model.AnalysisResult, error) {
	prompt := a.composer.ComposeInitial(p, property, distance)

	raw, err := a.generator.GenerateStream(ctx, prompt, callback)
	if err != nil {
		return nil, WrapError(KindGeneration, err, "text generation failed")
	}

	return a.validator.Validate(raw)
}

// AnalyzeFollowUpStream is AnalyzeFollowUp with streaming progress.
func (a *Analyzer) AnalyzeFollowUpStream(ctx context.Context, p persona.Persona, property *model.PropertyRecord, distance *model.DistanceSnapshot, history []model.ChatTurn, question string, callback func(thinking, content string) error) (*model.AnalysisResult, error) {
	prompt := a.composer.ComposeFollowUp(p, property, distance, history, question)

	raw, err := a.generator.GenerateStream(ctx, prompt, callback)
	if err != nil {
		return nil, WrapError(KindGeneration, err, "text generation failed")
	}

	return a.validator.Validate(raw)
}
