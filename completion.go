package chocoraga

import (
	"context"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	completionMaxTokens   = 1000
	completionTemperature = 1.0
)

// CompletionRequester sends a prompt to a text completion service and
// returns the text of the first choice.
type CompletionRequester interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AzureSettings locates an Azure OpenAI chat deployment.
type AzureSettings struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
}

// AzureCompleter requests chat completions from an Azure OpenAI deployment
type AzureCompleter struct {
	client     *openai.Client
	deployment string
}

// NewAzureCompleter creates a completer for the given deployment
func NewAzureCompleter(settings AzureSettings) *AzureCompleter {
	config := openai.DefaultAzureConfig(settings.APIKey, settings.Endpoint)
	if settings.APIVersion != "" {
		config.APIVersion = settings.APIVersion
	}
	deployment := settings.Deployment
	config.AzureModelMapperFunc = func(model string) string {
		return deployment
	}

	return &AzureCompleter{
		client:     openai.NewClientWithConfig(config),
		deployment: deployment,
	}
}

// Complete sends prompt as a single user message. An empty string with a nil
// error means the service answered without any text.
func (ac *AzureCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	VerboseLog("Requesting completion from deployment %s (%d prompt chars)", ac.deployment, len(prompt))

	resp, err := ac.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: ac.deployment,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   completionMaxTokens,
			Temperature: completionTemperature,
		},
	)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	log.Printf("Received completion with %d choices", len(resp.Choices))

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// BuildPrompt renders the instruction sent for a generation request. The
// numbered block layout it asks for is the one ExtractQuestions reads.
func BuildPrompt(req GenerationRequest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Generate %d %s level multiple-choice questions on the topic of \"%s\".\n",
		req.QuestionsCount, req.Difficulty, req.Topic))
	sb.WriteString("Each question must follow this format strictly:\n\n")

	sb.WriteString("1. Question: A clear and concise question text.\n")
	sb.WriteString("Options:\n")
	sb.WriteString("A) Option 1\n")
	sb.WriteString("B) Option 2\n")
	sb.WriteString("C) Option 3\n")
	sb.WriteString("D) Option 4\n")
	sb.WriteString(promptAnswerLabel + " Provide the correct option as one of A, B, C, or D.\n\n")

	sb.WriteString("Ensure:\n")
	sb.WriteString("- Each question starts with a number followed by a period (e.g., \"1.\", \"2.\").\n")
	sb.WriteString("- Each question is clearly separated by a blank line.\n")
	sb.WriteString("- The questions are directly relevant to the topic and logically structured.\n")
	sb.WriteString("- Each question has four distinct and meaningful options.\n")
	sb.WriteString("- The correct answer is explicitly provided as \"" + promptAnswerLabel + " X\".\n")
	sb.WriteString("- If applicable, include cultural or domain-specific context (terms, instruments or notable figures).\n\n")

	sb.WriteString("Example Output:\n")
	sb.WriteString(FormatQuestions(promptExamples))
	sb.WriteString("\nDo not deviate from this format. Include one blank line between each question.\n")

	return sb.String()
}

// promptAnswerLabel is the answer label the prompt asks the model to write.
// The extractor reads it case-insensitively and stores FormatCorrectAnswer's
// spelling, so the examples use this label rather than the stored one.
const promptAnswerLabel = "Correct Answer:"

var promptExamples = []Question{
	{
		Text:          "What is the capital of France?",
		Options:       []string{"A) Berlin", "B) Madrid", "C) Paris", "D) Rome"},
		CorrectAnswer: promptAnswerLabel + " C",
	},
	{
		Text:          "Which element has the chemical symbol O?",
		Options:       []string{"A) Oxygen", "B) Hydrogen", "C) Carbon", "D) Nitrogen"},
		CorrectAnswer: promptAnswerLabel + " A",
	},
}
