package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"chocoraga"

	"github.com/gorilla/sessions"
)

const (
	apiPrefix   = "/api/v1"
	sessionName = "chocoraga-session"
	sessionKey  = "quiz"

	maxBodyBytes = 1 << 20
)

// Server serves the question API and hosts quiz sessions.
type Server struct {
	db             *chocoraga.DB
	generator      *chocoraga.Generator
	store          sessions.Store
	locksMu        sync.Mutex
	locks          map[string]*sessionLock // by gorilla session ID
	dice           chocoraga.Dice
	now            func() time.Time
	questionTime   time.Duration
	requestTimeout time.Duration
}

// NewServer wires a server around its dependencies.
func NewServer(db *chocoraga.DB, generator *chocoraga.Generator, store sessions.Store, dice chocoraga.Dice) *Server {
	return &Server{
		db:             db,
		generator:      generator,
		store:          store,
		locks:          make(map[string]*sessionLock),
		dice:           dice,
		now:            time.Now,
		questionTime:   chocoraga.DefaultQuestionTime,
		requestTimeout: 60 * time.Second,
	}
}

// Routes returns the HTTP handler for every route.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+apiPrefix+"/questions", s.handleListQuestions)
	mux.HandleFunc("POST "+apiPrefix+"/questions", s.handleCreateQuestion)
	mux.HandleFunc("POST "+apiPrefix+"/questions/generate", s.handleGenerate)
	mux.HandleFunc("POST "+apiPrefix+"/questions/regenerate", s.handleRegenerate)
	mux.HandleFunc("GET "+apiPrefix+"/categories", s.handleCategories)

	mux.HandleFunc("POST "+apiPrefix+"/sessions", s.handleStartSession)
	mux.HandleFunc("GET "+apiPrefix+"/sessions/current", s.handleCurrentSession)
	mux.HandleFunc("POST "+apiPrefix+"/sessions/current/events", s.handleSessionEvent)
	mux.HandleFunc("GET "+apiPrefix+"/sessions/current/results", s.handleSessionResults)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return logRequests(mux)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		chocoraga.VerboseLog("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
