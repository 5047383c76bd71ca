package chocoraga

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed questionbank.yaml
var defaultBankYAML []byte

// bankFile is the on-disk layout of a question bank.
type bankFile struct {
	Categories []struct {
		Key       string      `yaml:"key"`
		Questions []bankEntry `yaml:"questions"`
	} `yaml:"categories"`
}

type bankEntry struct {
	Question string   `yaml:"question"`
	Options  []string `yaml:"options"`
	Answer   string   `yaml:"answer"`
}

// QuestionBank is a fixed, category keyed set of pre-written questions.
// It is read-only after loading and safe for concurrent use.
type QuestionBank struct {
	categories map[string][]Question
	order      []string
}

// LoadQuestionBank parses a YAML bank. Every entry is normalized to the
// served question shape; an entry that cannot be normalized fails the load.
func LoadQuestionBank(data []byte) (*QuestionBank, error) {
	var file bankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse question bank: %w", err)
	}

	bank := &QuestionBank{categories: make(map[string][]Question)}
	for _, category := range file.Categories {
		if category.Key == "" {
			return nil, fmt.Errorf("question bank category without a key")
		}
		if _, dup := bank.categories[category.Key]; dup {
			return nil, fmt.Errorf("duplicate question bank category %q", category.Key)
		}
		questions := make([]Question, 0, len(category.Questions))
		for i, entry := range category.Questions {
			q, err := NormalizeQuestion(entry.Question, entry.Options, entry.Answer, PlaceholderReward)
			if err != nil {
				return nil, fmt.Errorf("category %q question %d: %w", category.Key, i+1, err)
			}
			questions = append(questions, q)
		}
		bank.categories[category.Key] = questions
		bank.order = append(bank.order, category.Key)
	}
	return bank, nil
}

var (
	defaultBankOnce sync.Once
	defaultBank     *QuestionBank
	defaultBankErr  error
)

// DefaultQuestionBank returns the bank embedded in the binary.
func DefaultQuestionBank() (*QuestionBank, error) {
	defaultBankOnce.Do(func() {
		defaultBank, defaultBankErr = LoadQuestionBank(defaultBankYAML)
	})
	return defaultBank, defaultBankErr
}

// Categories returns the category keys in file order.
func (b *QuestionBank) Categories() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Lookup returns a copy of every question in a category.
func (b *QuestionBank) Lookup(category string) ([]Question, error) {
	pool, ok := b.categories[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	out := make([]Question, len(pool))
	for i, q := range pool {
		out[i] = cloneQuestion(q)
	}
	return out, nil
}

// Sample returns up to count questions drawn without repetition from a
// uniformly shuffled copy of the category. An unknown category or a
// non-positive count yields an empty slice. A nil rng uses the shared
// source from math/rand/v2.
func (b *QuestionBank) Sample(category string, count int, rng *rand.Rand) []Question {
	pool := b.categories[category]
	if len(pool) == 0 || count <= 0 {
		return []Question{}
	}

	shuffled := make([]Question, len(pool))
	copy(shuffled, pool)

	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if count > len(shuffled) {
		count = len(shuffled)
	}
	out := make([]Question, count)
	for i := range out {
		out[i] = cloneQuestion(shuffled[i])
	}
	return out
}

func cloneQuestion(q Question) Question {
	q.Options = append([]string(nil), q.Options...)
	return q
}
