package chocoraga

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// GenerationLogger writes the transcript of one generation request to its
// own file: the prompt, the raw completion and the fate of every block.
type GenerationLogger struct {
	file *os.File
	mu   sync.Mutex
	id   string
}

// NewGenerationLogger creates <dir>/<id>.log and writes the request header.
func NewGenerationLogger(dir, id string, req GenerationRequest) (*GenerationLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s.log", id))
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &GenerationLogger{
		file: file,
		id:   id,
	}

	logger.Logf("=== Question Generation Log ===\n")
	logger.Logf("Generation ID: %s\n", id)
	logger.Logf("Topic: %s\n", req.Topic)
	logger.Logf("Difficulty: %s\n", req.Difficulty)
	logger.Logf("Questions Requested: %d\n", req.QuestionsCount)
	logger.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	logger.Logf("===============================\n\n")

	return logger, nil
}

// ID returns the generation ID the transcript is named after.
func (gl *GenerationLogger) ID() string {
	return gl.id
}

// Logf writes a formatted entry prefixed with a timestamp.
func (gl *GenerationLogger) Logf(format string, args ...interface{}) {
	gl.mu.Lock()
	defer gl.mu.Unlock()
	gl.logf(format, args...)
}

func (gl *GenerationLogger) logf(format string, args ...interface{}) {
	if gl.file == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(gl.file, "[%s] %s", timestamp, fmt.Sprintf(format, args...))
	gl.file.Sync()
}

// LogPrompt records the prompt sent to the completion service.
func (gl *GenerationLogger) LogPrompt(prompt string) {
	gl.Logf("=== PROMPT ===\n%s\n==============\n\n", prompt)
}

// LogCompletion records the raw completion text.
func (gl *GenerationLogger) LogCompletion(text string) {
	gl.Logf("=== COMPLETION ===\n%s\n==================\n\n", text)
}

// LogBlockResult records whether a block was kept or dropped.
func (gl *GenerationLogger) LogBlockResult(result BlockResult) {
	if result.Valid() {
		gl.Logf("Block %d: KEPT - %s\n", result.Index+1, result.Question.Text)
		return
	}
	gl.Logf("Block %d: DROPPED - %s\n%s\n", result.Index+1, result.Reason, result.Raw)
}

// Close writes the footer and closes the file.
func (gl *GenerationLogger) Close() error {
	gl.mu.Lock()
	defer gl.mu.Unlock()

	if gl.file == nil {
		return nil
	}
	gl.logf("=== Generation Complete ===\n")
	gl.logf("Completed: %s\n", time.Now().Format(time.RFC3339))
	err := gl.file.Close()
	gl.file = nil
	return err
}
