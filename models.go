package chocoraga

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Reward is the number of chocolates a correct answer earns.
type Reward int

const (
	// PlaceholderReward is attached to generated and bank questions.
	PlaceholderReward Reward = 1
	// DefaultStoredReward is used when a stored question has no reward.
	DefaultStoredReward Reward = 5
)

// UnmarshalJSON accepts either a number or a legacy label such as
// "chocolate". Numeric strings decode to their value, any other label
// decodes to PlaceholderReward.
func (r *Reward) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = 0
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*r = Reward(n)
		return nil
	}

	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return fmt.Errorf("reward must be a number or a label: %w", err)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		*r = 0
		return nil
	}
	if v, err := strconv.Atoi(label); err == nil {
		*r = Reward(v)
		return nil
	}
	*r = PlaceholderReward
	return nil
}

// Question is a multiple choice question in the shape served to players.
type Question struct {
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Reward        Reward   `json:"reward"`
}

// GenerationRequest is the body accepted by the generate and regenerate routes.
type GenerationRequest struct {
	Topic          string `json:"topic"`
	Difficulty     string `json:"difficulty"`
	QuestionsCount int    `json:"questionsCount"`
	SelectedMusic  string `json:"selectedMusic,omitempty"`
}

// MaxQuestionsCount bounds the number of questions one request may ask for.
const MaxQuestionsCount = 50

// OptionLetters are the labels of the four options in display order.
var OptionLetters = []string{"A", "B", "C", "D"}

var (
	ErrUpstream         = errors.New("completion service failed")
	ErrEmptyCompletion  = errors.New("completion contained no text")
	ErrNoValidQuestions = errors.New("no valid questions generated")
	ErrUnknownCategory  = errors.New("unknown question category")
	ErrInvalidQuestion  = errors.New("invalid question")
	ErrInvalidCount     = errors.New("invalid questions count")
)

// FormatCorrectAnswer renders a letter the way generated questions store it.
func FormatCorrectAnswer(letter string) string {
	return "Correct answer: " + strings.ToUpper(strings.TrimSpace(letter))
}

// LabelOption prefixes option text with its letter label.
func LabelOption(i int, text string) string {
	return fmt.Sprintf("%s) %s", OptionLetters[i], strings.TrimSpace(text))
}

// AnswerLetter extracts the letter from a stored correct answer such as
// "Correct answer: B" or a bare "b". It reports false if no A-D letter is found.
func AnswerLetter(correctAnswer string) (string, bool) {
	s := strings.TrimSpace(correctAnswer)
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, l := range OptionLetters {
		if s == l {
			return l, true
		}
	}
	return "", false
}

// OptionLetter returns the upper-cased label of an option such as "b) Paris".
func OptionLetter(option string) string {
	label, _, _ := strings.Cut(option, ")")
	return strings.ToUpper(strings.TrimSpace(label))
}

// stripLabel removes the label of the i-th option ("B)" or "B.") from its text.
func stripLabel(i int, option string) string {
	s := strings.TrimSpace(option)
	if len(s) >= 2 && (s[1] == ')' || s[1] == '.') && strings.EqualFold(s[:1], OptionLetters[i]) {
		return strings.TrimSpace(s[2:])
	}
	return s
}

// NormalizeQuestion builds a Question in the served shape: options relabelled
// A) to D), answer rendered as "Correct answer: X". It fails if the text is
// empty, there are not exactly four options, or the answer is not A-D.
func NormalizeQuestion(text string, options []string, answer string, reward Reward) (Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Question{}, fmt.Errorf("%w: question text is empty", ErrInvalidQuestion)
	}
	if len(options) != len(OptionLetters) {
		return Question{}, fmt.Errorf("%w: expected %d options, got %d", ErrInvalidQuestion, len(OptionLetters), len(options))
	}
	letter, ok := AnswerLetter(answer)
	if !ok {
		return Question{}, fmt.Errorf("%w: correct answer %q is not one of A-D", ErrInvalidQuestion, answer)
	}

	labelled := make([]string, len(options))
	for i, option := range options {
		body := stripLabel(i, option)
		if body == "" {
			return Question{}, fmt.Errorf("%w: option %s is empty", ErrInvalidQuestion, OptionLetters[i])
		}
		labelled[i] = LabelOption(i, body)
	}

	return Question{
		Text:          text,
		Options:       labelled,
		CorrectAnswer: FormatCorrectAnswer(letter),
		Reward:        reward,
	}, nil
}

// Letter returns the correct answer letter, or "" if the answer is malformed.
func (q Question) Letter() string {
	letter, _ := AnswerLetter(q.CorrectAnswer)
	return letter
}

// CorrectOption returns the option whose label matches the correct answer.
func (q Question) CorrectOption() (string, bool) {
	letter := q.Letter()
	if letter == "" {
		return "", false
	}
	for _, option := range q.Options {
		if OptionLetter(option) == letter {
			return option, true
		}
	}
	return "", false
}

// IncorrectOptions returns every option except the correct one, in order.
func (q Question) IncorrectOptions() []string {
	letter := q.Letter()
	out := make([]string, 0, len(q.Options))
	for _, option := range q.Options {
		if OptionLetter(option) != letter {
			out = append(out, option)
		}
	}
	return out
}
