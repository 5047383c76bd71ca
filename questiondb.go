package chocoraga

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrQuestionNotFound is returned when no stored question has the given ID.
var ErrQuestionNotFound = errors.New("question not found")

// DB represents a question store connection
type DB struct {
	db *sql.DB
}

// DBQuestion is a stored question
type DBQuestion struct {
	ID string `json:"id"`
	Question
	CreatedAt time.Time `json:"createdAt"`
}

// OpenDB opens a new database connection
func OpenDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection
func (db *DB) CloseDB() error {
	return db.db.Close()
}

// CreateTables creates the necessary tables if they don't exist
func (db *DB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			options TEXT NOT NULL,
			correct_answer TEXT NOT NULL,
			reward INTEGER NOT NULL DEFAULT 5,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_created_at ON questions(created_at)`,
	}

	for _, query := range queries {
		if _, err := db.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// CreateQuestion stores a question and returns the created record. A zero
// or negative reward is stored as DefaultStoredReward.
func (db *DB) CreateQuestion(q Question) (*DBQuestion, error) {
	optionsJSON, err := OptionsToJSON(q.Options)
	if err != nil {
		return nil, err
	}
	if q.Reward <= 0 {
		q.Reward = DefaultStoredReward
	}

	record := &DBQuestion{
		ID:        uuid.NewString(),
		Question:  q,
		CreatedAt: time.Now().UTC(),
	}
	record.Options = append([]string(nil), q.Options...)

	_, err = db.db.Exec(
		"INSERT INTO questions (id, question, options, correct_answer, reward, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		record.ID, record.Text, optionsJSON, record.CorrectAnswer, int(record.Reward), record.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	return record, nil
}

// GetQuestion retrieves a question by ID
func (db *DB) GetQuestion(id string) (*DBQuestion, error) {
	row := db.db.QueryRow(
		"SELECT id, question, options, correct_answer, reward, created_at FROM questions WHERE id = ?",
		id,
	)
	question, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return question, nil
}

// ListQuestions retrieves every stored question in insertion order
func (db *DB) ListQuestions() ([]DBQuestion, error) {
	rows, err := db.db.Query(
		"SELECT id, question, options, correct_answer, reward, created_at FROM questions ORDER BY created_at, rowid",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	defer rows.Close()

	questions := []DBQuestion{}
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, *question)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	return questions, nil
}

// CountQuestions returns the number of stored questions
func (db *DB) CountQuestions() (int, error) {
	var count int
	if err := db.db.QueryRow("SELECT COUNT(*) FROM questions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

// QuestionExists checks if a question with the same text is already stored
func (db *DB) QuestionExists(text string) (bool, error) {
	var exists bool
	err := db.db.QueryRow("SELECT EXISTS(SELECT 1 FROM questions WHERE question = ?)", text).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check if question exists: %w", err)
	}
	return exists, nil
}

// SaveQuestions stores every question whose text is not stored yet and
// returns how many were added.
func (db *DB) SaveQuestions(questions []Question) (int, error) {
	added := 0
	for _, q := range questions {
		exists, err := db.QuestionExists(q.Text)
		if err != nil {
			return added, err
		}
		if exists {
			VerboseLog("Skipping stored question: %s", q.Text)
			continue
		}
		if _, err := db.CreateQuestion(q); err != nil {
			return added, err
		}
		added++
	}
	log.Printf("Stored %d of %d questions", added, len(questions))
	return added, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*DBQuestion, error) {
	var (
		question    DBQuestion
		optionsJSON string
		reward      int
	)
	if err := row.Scan(&question.ID, &question.Text, &optionsJSON, &question.CorrectAnswer, &reward, &question.CreatedAt); err != nil {
		return nil, err
	}
	options, err := JSONToOptions(optionsJSON)
	if err != nil {
		return nil, err
	}
	question.Options = options
	question.Reward = Reward(reward)
	return &question, nil
}

// Helper function to convert options slice to JSON string
func OptionsToJSON(options []string) (string, error) {
	if options == nil {
		options = []string{}
	}
	data, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("failed to marshal options: %w", err)
	}
	return string(data), nil
}

// Helper function to convert JSON string to options slice
func JSONToOptions(optionsJSON string) ([]string, error) {
	var options []string
	err := json.Unmarshal([]byte(optionsJSON), &options)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	return options, nil
}
