package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"chocoraga"
)

// Messages returned to clients when generation fails.
const (
	msgGenerationFailed = "Error generating questions"
	msgInvalidResponse  = "Invalid response from OpenAI API"
	msgNoValidQuestions = "No valid questions generated"
	msgServerError      = "Server Error"
)

type questionsResponse struct {
	Questions []chocoraga.Question `json:"questions"`
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := s.db.ListQuestions()
	if err != nil {
		log.Printf("Failed to list questions: %v", err)
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (s *Server) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	question, err := chocoraga.DecodeQuestionPayload(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.db.CreateQuestion(question)
	if err != nil {
		log.Printf("Failed to store question: %v", err)
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req chocoraga.GenerationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	questions, err := s.generator.Generate(ctx, req)
	if errors.Is(err, chocoraga.ErrInvalidCount) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.Printf("Generation failed for topic %q: %v", req.Topic, err)
		writeError(w, http.StatusInternalServerError, generationMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, questionsResponse{Questions: questions})
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var req chocoraga.GenerationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, questionsResponse{Questions: s.generator.Regenerate(req)})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories := []string{}
	if bank := s.generator.Bank(); bank != nil {
		categories = bank.Categories()
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": categories})
}

// generationMessage maps a generation error to the message shown to clients.
func generationMessage(err error) string {
	switch {
	case errors.Is(err, chocoraga.ErrEmptyCompletion):
		return msgInvalidResponse
	case errors.Is(err, chocoraga.ErrNoValidQuestions):
		return msgNoValidQuestions
	case errors.Is(err, chocoraga.ErrUnknownCategory), errors.Is(err, chocoraga.ErrInvalidCount):
		return err.Error()
	case errors.Is(err, chocoraga.ErrUpstream):
		return msgGenerationFailed
	}
	return msgServerError
}
