package chocoraga

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	blockStartPattern    = regexp.MustCompile(`(?m)^\d+\.`)
	questionLinePattern  = regexp.MustCompile(`^\s*\d+\.\s*Question:\s*(.+?)\s*(?:\r?\n|$)`)
	optionsPattern       = regexp.MustCompile(`(?s)Options:\s*A[.)]\s*(.+?)\n\s*B[.)]\s*(.+?)\n\s*C[.)]\s*(.+?)\n\s*D[.)]\s*(.+?)(?:\n|$)`)
	correctAnswerPattern = regexp.MustCompile(`(?i)Correct Answer:\s*([A-D])`)
)

// Reasons a question block is rejected.
const (
	ReasonMissingQuestion = "missing question line"
	ReasonMissingOptions  = "missing options"
	ReasonMissingAnswer   = "missing correct answer"
)

// BlockResult is the outcome of parsing one question block. Question is set
// only when the block is valid, otherwise Reason says what was missing.
type BlockResult struct {
	Index    int
	Raw      string
	Question *Question
	Reason   string
}

// Valid reports whether the block produced a question.
func (r BlockResult) Valid() bool {
	return r.Question != nil
}

// SplitBlocks cuts completion text at every newline that is followed by a
// numbered line ("12."). Blocks that are blank after trimming are dropped.
func SplitBlocks(text string) []string {
	var blocks []string
	start := 0
	for _, loc := range blockStartPattern.FindAllStringIndex(text, -1) {
		if loc[0] == 0 {
			continue
		}
		blocks = append(blocks, text[start:loc[0]-1])
		start = loc[0]
	}
	blocks = append(blocks, text[start:])

	out := blocks[:0]
	for _, block := range blocks {
		if strings.TrimSpace(block) != "" {
			out = append(out, block)
		}
	}
	return out
}

// ParseBlock extracts a question from one block. The block is valid only if
// the question line, all four options and the answer letter are present.
func ParseBlock(index int, block string) BlockResult {
	result := BlockResult{Index: index, Raw: block}

	var missing []string

	questionMatch := questionLinePattern.FindStringSubmatch(block)
	if questionMatch == nil {
		missing = append(missing, ReasonMissingQuestion)
	}
	optionsMatch := optionsPattern.FindStringSubmatch(block)
	if optionsMatch == nil {
		missing = append(missing, ReasonMissingOptions)
	}
	answerMatch := correctAnswerPattern.FindStringSubmatch(block)
	if answerMatch == nil {
		missing = append(missing, ReasonMissingAnswer)
	}

	if len(missing) > 0 {
		result.Reason = strings.Join(missing, ", ")
		return result
	}

	options := make([]string, len(OptionLetters))
	for i := range OptionLetters {
		options[i] = LabelOption(i, optionsMatch[i+1])
	}

	result.Question = &Question{
		Text:          strings.TrimSpace(questionMatch[1]),
		Options:       options,
		CorrectAnswer: FormatCorrectAnswer(answerMatch[1]),
		Reward:        PlaceholderReward,
	}
	return result
}

// ParseBlocks splits text into blocks and parses each one independently.
func ParseBlocks(text string) []BlockResult {
	blocks := SplitBlocks(text)
	results := make([]BlockResult, 0, len(blocks))
	for i, block := range blocks {
		results = append(results, ParseBlock(i, block))
	}
	return results
}

// ExtractQuestions returns the valid questions found in text, in block order.
// Malformed blocks are skipped.
func ExtractQuestions(text string) []Question {
	var questions []Question
	for _, result := range ParseBlocks(text) {
		if result.Valid() {
			questions = append(questions, *result.Question)
		}
	}
	return questions
}

// FormatQuestions renders questions in the numbered block format that
// ExtractQuestions reads.
func FormatQuestions(questions []Question) string {
	var sb strings.Builder
	for i, q := range questions {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%d. Question: %s\n", i+1, q.Text))
		sb.WriteString("Options:\n")
		for _, option := range q.Options {
			sb.WriteString(option + "\n")
		}
		sb.WriteString(q.CorrectAnswer + "\n")
	}
	return sb.String()
}
