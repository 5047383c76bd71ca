package chocoraga

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// azureStub serves one canned chat completion and records the request.
type azureStub struct {
	t       *testing.T
	status  int
	content *string
	gotPath string
	gotKey  string
	gotVer  string
	gotBody map[string]any
}

func (s *azureStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.gotPath = r.URL.Path
	s.gotKey = r.Header.Get("api-key")
	s.gotVer = r.URL.Query().Get("api-version")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.t.Fatalf("read request body: %v", err)
	}
	if err := json.Unmarshal(body, &s.gotBody); err != nil {
		s.t.Fatalf("decode request body: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	if s.status != 0 && s.status != http.StatusOK {
		w.WriteHeader(s.status)
		io.WriteString(w, `{"error":{"message":"deployment overloaded","type":"server_error"}}`)
		return
	}
	choices := []map[string]any{}
	if s.content != nil {
		choices = append(choices, map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": *s.content},
		})
	}
	json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"choices": choices,
	})
}

func newStubCompleter(t *testing.T, stub *azureStub) *AzureCompleter {
	t.Helper()
	stub.t = t
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return NewAzureCompleter(AzureSettings{
		Endpoint:   srv.URL,
		APIKey:     "test-key",
		Deployment: "quiz-gpt",
		APIVersion: "2024-08-01-preview",
	})
}

// TestAzureCompleterRoutesToDeployment verifies path, key header and api version.
func TestAzureCompleterRoutesToDeployment(t *testing.T) {
	content := "1. Question: Q?\nOptions:\nA) a\nB) b\nC) c\nD) d\nCorrect Answer: A"
	stub := &azureStub{content: &content}
	completer := newStubCompleter(t, stub)

	got, err := completer.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != content {
		t.Fatalf("unexpected content %q", got)
	}
	if stub.gotPath != "/openai/deployments/quiz-gpt/chat/completions" {
		t.Fatalf("unexpected path %q", stub.gotPath)
	}
	if stub.gotKey != "test-key" {
		t.Fatalf("unexpected api-key header %q", stub.gotKey)
	}
	if stub.gotVer != "2024-08-01-preview" {
		t.Fatalf("unexpected api-version %q", stub.gotVer)
	}
	if stub.gotBody["max_tokens"] != float64(1000) {
		t.Fatalf("expected max_tokens 1000, got %v", stub.gotBody["max_tokens"])
	}
	messages, _ := stub.gotBody["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected one message, got %d", len(messages))
	}
}

// TestAzureCompleterNoChoices verifies a choiceless response yields empty text.
func TestAzureCompleterNoChoices(t *testing.T) {
	completer := newStubCompleter(t, &azureStub{})
	got, err := completer.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

// TestAzureCompleterUpstreamError verifies a non-2xx status is an error.
func TestAzureCompleterUpstreamError(t *testing.T) {
	completer := newStubCompleter(t, &azureStub{status: http.StatusInternalServerError})
	if _, err := completer.Complete(context.Background(), "hello"); err == nil {
		t.Fatalf("expected an error for a 500 response")
	}
}

// TestBuildPromptMentionsRequest verifies the prompt carries the request fields
// and an example the extractor can read.
func TestBuildPromptMentionsRequest(t *testing.T) {
	prompt := BuildPrompt(GenerationRequest{Topic: "Carnatic ragas", Difficulty: "hard", QuestionsCount: 7})
	for _, want := range []string{"Generate 7 hard level", `"Carnatic ragas"`, "Correct Answer: X"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	_, example, _ := strings.Cut(prompt, "Example Output:\n")
	if got := len(ExtractQuestions(example)); got != 2 {
		t.Fatalf("expected the example to parse into 2 questions, got %d", got)
	}
}

// TestBuildPromptUsesOneAnswerLabel verifies the format line and the examples
// spell the answer label the same way, and the examples parse to the stored form.
func TestBuildPromptUsesOneAnswerLabel(t *testing.T) {
	prompt := BuildPrompt(GenerationRequest{Topic: "tala", Difficulty: "easy", QuestionsCount: 2})
	if strings.Contains(prompt, "Correct answer:") {
		t.Fatalf("prompt mixes answer label spellings:\n%s", prompt)
	}
	if got := strings.Count(prompt, promptAnswerLabel); got != 4 {
		t.Fatalf("expected 4 uses of %q, got %d", promptAnswerLabel, got)
	}

	_, example, _ := strings.Cut(prompt, "Example Output:\n")
	questions := ExtractQuestions(example)
	if len(questions) != 2 || questions[0].CorrectAnswer != FormatCorrectAnswer("C") {
		t.Fatalf("unexpected example questions %+v", questions)
	}
}
