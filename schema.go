package chocoraga

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const questionPayloadSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["question", "options", "correctAnswer"],
	"properties": {
		"question": {"type": "string", "minLength": 1, "pattern": "\\S"},
		"options": {
			"type": "array",
			"minItems": 4,
			"maxItems": 4,
			"items": {"type": "string", "minLength": 1, "pattern": "\\S"}
		},
		"correctAnswer": {
			"type": "string",
			"pattern": "^\\s*([Cc]orrect [Aa]nswer:\\s*)?[A-Da-d]\\s*$"
		},
		"reward": {
			"oneOf": [
				{"type": "integer", "minimum": 0},
				{"type": "string"}
			]
		}
	}
}`

var questionSchema = jsonschema.MustCompileString("question.schema.json", questionPayloadSchema)

// ValidateQuestionPayload checks a POST /questions body against the question
// schema.
func ValidateQuestionPayload(body []byte) error {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("%w: body is not valid JSON: %v", ErrInvalidQuestion, err)
	}
	if err := questionSchema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}
	return nil
}

// DecodeQuestionPayload validates body and returns it as a normalized
// question. Labels are re-applied to the options and the answer is rendered
// as "Correct answer: X"; the reward is kept as sent.
func DecodeQuestionPayload(body []byte) (Question, error) {
	if err := ValidateQuestionPayload(body); err != nil {
		return Question{}, err
	}
	var q Question
	if err := json.Unmarshal(body, &q); err != nil {
		return Question{}, fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}
	return NormalizeQuestion(q.Text, q.Options, q.CorrectAnswer, q.Reward)
}
