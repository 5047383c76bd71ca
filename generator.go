package chocoraga

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// Generator produces question sets, either from a completion service or
// from the static question bank.
type Generator struct {
	completer CompletionRequester
	bank      *QuestionBank
	logDir    string
	rng       *rand.Rand
}

// NewGenerator creates a generator. completer may be nil, in which case
// Generate fails with ErrUpstream and only the bank is usable.
func NewGenerator(completer CompletionRequester, bank *QuestionBank) *Generator {
	return &Generator{
		completer: completer,
		bank:      bank,
	}
}

// SetLogDir enables per-generation transcripts under dir
func (g *Generator) SetLogDir(dir string) {
	g.logDir = dir
}

// SetRand fixes the random source used for bank sampling
func (g *Generator) SetRand(rng *rand.Rand) {
	g.rng = rng
}

// Bank returns the static question bank
func (g *Generator) Bank() *QuestionBank {
	return g.bank
}

// Generate asks the completion service for questions and extracts the valid
// ones. A failed request wraps ErrUpstream, a completion without text returns
// ErrEmptyCompletion and a completion with no valid block returns
// ErrNoValidQuestions. A count outside 0 to MaxQuestionsCount returns
// ErrInvalidCount, and a count of zero returns an empty set without a request.
func (g *Generator) Generate(ctx context.Context, req GenerationRequest) ([]Question, error) {
	if req.QuestionsCount < 0 || req.QuestionsCount > MaxQuestionsCount {
		return nil, fmt.Errorf("%w: %d is outside 0 to %d", ErrInvalidCount, req.QuestionsCount, MaxQuestionsCount)
	}
	if req.QuestionsCount == 0 {
		return []Question{}, nil
	}
	if g.completer == nil {
		return nil, fmt.Errorf("%w: completion service is not configured", ErrUpstream)
	}

	log.Printf("Generating %d %s questions for topic: %s", req.QuestionsCount, req.Difficulty, req.Topic)

	transcript := g.openTranscript(req)
	if transcript != nil {
		defer transcript.Close()
	}

	prompt := BuildPrompt(req)
	VerboseLog("Prompt:\n%s", prompt)
	if transcript != nil {
		transcript.LogPrompt(prompt)
	}

	text, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		if transcript != nil {
			transcript.Logf("Completion failed: %v\n", err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if transcript != nil {
		transcript.LogCompletion(text)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyCompletion
	}

	results := ParseBlocks(text)
	questions := make([]Question, 0, len(results))
	for _, result := range results {
		if transcript != nil {
			transcript.LogBlockResult(result)
		}
		if !result.Valid() {
			VerboseLog("Dropping block %d: %s", result.Index+1, result.Reason)
			continue
		}
		questions = append(questions, *result.Question)
	}

	log.Printf("Extracted %d valid questions from %d blocks", len(questions), len(results))

	if len(questions) == 0 {
		return nil, ErrNoValidQuestions
	}
	return questions, nil
}

// Regenerate samples questions from the bank category named by
// req.SelectedMusic. An unknown category yields an empty set.
func (g *Generator) Regenerate(req GenerationRequest) []Question {
	if g.bank == nil {
		return []Question{}
	}
	questions := g.bank.Sample(req.SelectedMusic, req.QuestionsCount, g.rng)
	log.Printf("Sampled %d questions from category %q", len(questions), req.SelectedMusic)
	return questions
}

// Load fetches the question set of a quiz session. Bank sessions fail with
// ErrUnknownCategory when the category has no questions.
func (g *Generator) Load(ctx context.Context, req LoadRequest) ([]Question, error) {
	if req.Source == SourceGenerate {
		return g.Generate(ctx, req.GenerationRequest)
	}
	questions := g.Regenerate(req.GenerationRequest)
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, req.SelectedMusic)
	}
	return questions, nil
}

func (g *Generator) openTranscript(req GenerationRequest) *GenerationLogger {
	if g.logDir == "" {
		return nil
	}
	transcript, err := NewGenerationLogger(g.logDir, uuid.NewString(), req)
	if err != nil {
		log.Printf("Warning: failed to create generation transcript: %v", err)
		return nil
	}
	return transcript
}
