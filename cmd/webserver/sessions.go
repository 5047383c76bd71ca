package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"chocoraga"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

type startSessionRequest struct {
	Source chocoraga.Source `json:"source"`
	chocoraga.GenerationRequest
}

// quizSession is a locked gorilla session holding one quiz.
type quizSession struct {
	raw    *sessions.Session
	quiz   chocoraga.Session
	unlock func()
}

// sessionLock serializes requests for one session. refs counts holders and
// waiters; the entry leaves the table when it drops to zero.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// lockSession blocks until the session is free and returns its unlock func.
func (s *Server) lockSession(id string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}

// openSession locks the caller's session and re-reads it under the lock.
func (s *Server) openSession(r *http.Request) (*quizSession, error) {
	session, err := s.store.Get(r, sessionName)
	if err != nil || session.IsNew {
		return nil, errNoSession
	}

	unlock := s.lockSession(session.ID)

	fresh, err := s.store.New(r, sessionName)
	if err != nil || fresh.IsNew {
		unlock()
		return nil, errNoSession
	}
	quiz, ok := fresh.Values[sessionKey].(chocoraga.Session)
	if !ok {
		unlock()
		return nil, errNoSession
	}
	return &quizSession{raw: fresh, quiz: quiz, unlock: unlock}, nil
}

var errNoSession = errors.New("no quiz session")

func (s *Server) saveSession(w http.ResponseWriter, r *http.Request, raw *sessions.Session, quiz chocoraga.Session) error {
	raw.Values[sessionKey] = quiz
	if err := raw.Save(r, w); err != nil {
		log.Printf("Failed to save session %s: %v", quiz.ID, err)
		return err
	}
	return nil
}

// load runs the question fetch for a session in the loading phase.
func (s *Server) load(ctx context.Context, quiz chocoraga.Session) chocoraga.Session {
	if quiz.Phase != chocoraga.PhaseLoading {
		return quiz
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	questions, err := s.generator.Load(ctx, quiz.Request)
	event := chocoraga.Event{Type: chocoraga.EventLoaded, At: s.now(), Questions: questions}
	if err != nil {
		log.Printf("Session %s failed to load questions: %v", quiz.ID, err)
		event = chocoraga.Event{Type: chocoraga.EventLoadFailed, At: s.now(), Error: generationMessage(err)}
	}

	next, err := chocoraga.Reduce(quiz, event, s.dice)
	if err != nil {
		log.Printf("Session %s rejected load result: %v", quiz.ID, err)
		return quiz
	}
	return next
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Source == "" {
		req.Source = chocoraga.SourceBank
	}
	if req.Source != chocoraga.SourceBank && req.Source != chocoraga.SourceGenerate {
		writeError(w, http.StatusBadRequest, "source must be \"bank\" or \"generate\"")
		return
	}
	if req.QuestionsCount <= 0 || req.QuestionsCount > chocoraga.MaxQuestionsCount {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("questionsCount must be between 1 and %d", chocoraga.MaxQuestionsCount))
		return
	}

	// A new quiz replaces whatever the cookie pointed at before.
	raw, err := s.store.New(r, sessionName)
	if raw == nil {
		log.Printf("Failed to create session: %v", err)
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	if err != nil {
		chocoraga.VerboseLog("Discarding unreadable session: %v", err)
	}
	raw.IsNew = true
	raw.ID = ""

	quiz := chocoraga.NewSession(uuid.NewString(), chocoraga.LoadRequest{
		Source:            req.Source,
		GenerationRequest: req.GenerationRequest,
	}, s.questionTime)
	log.Printf("Starting session %s (%s, %q)", quiz.ID, req.Source, req.SelectedMusic)

	quiz = s.load(r.Context(), quiz)
	if err := s.saveSession(w, r, raw, quiz); err != nil {
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, quiz.View(s.now()))
}

func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	qs, err := s.openSession(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "No active quiz session")
		return
	}
	defer qs.unlock()

	quiz, _ := chocoraga.Reduce(qs.quiz, chocoraga.Event{Type: chocoraga.EventTick, At: s.now()}, s.dice)
	if err := s.saveSession(w, r, qs.raw, quiz); err != nil {
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	writeJSON(w, http.StatusOK, quiz.View(s.now()))
}

// clientEvents are the event types a player may send.
var clientEvents = map[chocoraga.EventType]bool{
	chocoraga.EventRetry:     true,
	chocoraga.EventPresented: true,
	chocoraga.EventSelect:    true,
	chocoraga.EventSubmit:    true,
	chocoraga.EventTick:      true,
	chocoraga.EventTimeout:   true,
	chocoraga.EventLifeline:  true,
	chocoraga.EventNext:      true,
}

func (s *Server) handleSessionEvent(w http.ResponseWriter, r *http.Request) {
	var event chocoraga.Event
	if err := decodeJSON(w, r, &event); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !clientEvents[event.Type] {
		writeError(w, http.StatusBadRequest, "Unknown event type")
		return
	}

	qs, err := s.openSession(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "No active quiz session")
		return
	}
	defer qs.unlock()

	event.At = s.now()
	quiz, reduceErr := chocoraga.Reduce(qs.quiz, event, s.dice)
	if reduceErr == nil && event.Type == chocoraga.EventRetry {
		quiz = s.load(r.Context(), quiz)
	}

	if err := s.saveSession(w, r, qs.raw, quiz); err != nil {
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	if reduceErr != nil {
		chocoraga.VerboseLog("Session %s: %v", quiz.ID, reduceErr)
		writeError(w, http.StatusConflict, reduceErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, quiz.View(s.now()))
}

func (s *Server) handleSessionResults(w http.ResponseWriter, r *http.Request) {
	qs, err := s.openSession(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "No active quiz session")
		return
	}
	defer qs.unlock()

	results, err := qs.quiz.Results()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, results)
}
