package chocoraga

import (
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DefaultQuestionTime is the answer window of one question.
const DefaultQuestionTime = 30 * time.Second

// Phase is the position of a session in the quiz lifecycle.
type Phase string

const (
	PhaseLoading    Phase = "loading"
	PhaseFailed     Phase = "failed"
	PhasePresenting Phase = "presenting"
	PhaseSubmitted  Phase = "submitted"
	PhaseFinished   Phase = "finished"
)

// EventType names a session event.
type EventType string

const (
	EventLoaded     EventType = "loaded"
	EventLoadFailed EventType = "load_failed"
	EventRetry      EventType = "retry"
	EventPresented  EventType = "presented"
	EventSelect     EventType = "select"
	EventSubmit     EventType = "submit"
	EventTick       EventType = "tick"
	EventTimeout    EventType = "timeout"
	EventLifeline   EventType = "lifeline"
	EventNext       EventType = "next"
)

// Lifeline is one of the three one-shot assists.
type Lifeline string

const (
	LifelineFiftyFifty   Lifeline = "fifty_fifty"
	LifelineAudiencePoll Lifeline = "audience_poll"
	LifelinePhoneAFriend Lifeline = "phone_a_friend"
)

// Source selects where a session's questions come from.
type Source string

const (
	SourceBank     Source = "bank"
	SourceGenerate Source = "generate"
)

// ErrEventRejected is returned when an event is not allowed in the current state.
var ErrEventRejected = errors.New("event rejected")

// Dice is the random source used by lifelines.
type Dice interface {
	IntN(n int) int
}

// Event is one input to Reduce. At is the time the event happened.
type Event struct {
	Type      EventType  `json:"type"`
	At        time.Time  `json:"-"`
	Questions []Question `json:"-"`
	Error     string     `json:"-"`
	Option    string     `json:"option,omitempty"`
	Lifeline  Lifeline   `json:"lifeline,omitempty"`
}

// LoadRequest describes the question set a session was started with.
type LoadRequest struct {
	Source Source `json:"source"`
	GenerationRequest
}

// Feedback records the outcome of one question. Chosen is empty when the
// question timed out.
type Feedback struct {
	QuestionIndex int    `json:"questionIndex"`
	Correct       bool   `json:"isCorrect"`
	Chosen        string `json:"selectedLetter,omitempty"`
	TimedOut      bool   `json:"timedOut,omitempty"`
}

// PollShare is the audience vote for one option.
type PollShare struct {
	Letter  string `json:"letter"`
	Percent int    `json:"percent"`
}

// FriendHint is the phone-a-friend answer.
type FriendHint struct {
	Suggestion string `json:"suggestion"`
	Confident  bool   `json:"confident"`
}

// LifelinesUsed holds the session-level one-shot flags.
type LifelinesUsed struct {
	FiftyFifty   bool `json:"fiftyFifty"`
	AudiencePoll bool `json:"audiencePoll"`
	PhoneAFriend bool `json:"phoneAFriend"`
}

func (u LifelinesUsed) used(kind Lifeline) bool {
	switch kind {
	case LifelineFiftyFifty:
		return u.FiftyFifty
	case LifelineAudiencePoll:
		return u.AudiencePoll
	case LifelinePhoneAFriend:
		return u.PhoneAFriend
	}
	return true
}

func (u LifelinesUsed) mark(kind Lifeline) LifelinesUsed {
	switch kind {
	case LifelineFiftyFifty:
		u.FiftyFifty = true
	case LifelineAudiencePoll:
		u.AudiencePoll = true
	case LifelinePhoneAFriend:
		u.PhoneAFriend = true
	}
	return u
}

// Session is the full state of one quiz run. Questions keep their answers;
// use View for anything shown to the player.
type Session struct {
	ID           string
	Request      LoadRequest
	Phase        Phase
	Error        string
	Questions    []Question
	Index        int
	Score        int
	Feedback     []Feedback
	QuestionTime time.Duration

	// Per-question state, reset by Next.
	Options        []string
	Selected       string
	Presented      bool
	LifelineActive bool
	Deadline       time.Time
	Poll           []PollShare
	Friend         *FriendHint

	Lifelines LifelinesUsed
}

func init() {
	gob.Register(Session{})
}

// NewSession returns a session waiting for its questions.
func NewSession(id string, req LoadRequest, questionTime time.Duration) Session {
	if questionTime <= 0 {
		questionTime = DefaultQuestionTime
	}
	return Session{
		ID:           id,
		Request:      req,
		Phase:        PhaseLoading,
		QuestionTime: questionTime,
	}
}

// Reduce applies event to s and returns the next state. A question whose
// deadline has passed by event.At is timed out before the event is applied,
// so whichever of timeout and submit happens first wins. A rejected event
// returns the state after that expiry together with an ErrEventRejected error.
func Reduce(s Session, event Event, dice Dice) (Session, error) {
	s = cloneSession(s)
	s = expire(s, event.At)

	switch event.Type {
	case EventLoaded:
		if s.Phase != PhaseLoading {
			return s, rejectf("questions already loaded")
		}
		if len(event.Questions) == 0 {
			s.Phase = PhaseFailed
			s.Error = ErrNoValidQuestions.Error()
			return s, nil
		}
		s.Questions = make([]Question, len(event.Questions))
		for i, q := range event.Questions {
			s.Questions[i] = cloneQuestion(q)
		}
		s.Error = ""
		s.Index = 0
		s.Score = 0
		s.Feedback = nil
		s.Lifelines = LifelinesUsed{}
		return present(s, event.At), nil

	case EventLoadFailed:
		if s.Phase != PhaseLoading {
			return s, rejectf("session is not loading")
		}
		s.Phase = PhaseFailed
		s.Error = event.Error
		return s, nil

	case EventRetry:
		if s.Phase != PhaseFailed {
			return s, rejectf("only a failed session can be retried")
		}
		s.Phase = PhaseLoading
		s.Error = ""
		return s, nil

	case EventPresented:
		if s.Phase != PhasePresenting {
			return s, rejectf("no question is being presented")
		}
		s.Presented = true
		return s, nil

	case EventSelect:
		if s.Phase != PhasePresenting {
			return s, rejectf("answer already locked")
		}
		option, ok := findOption(s.Options, event.Option)
		if !ok {
			return s, rejectf("option %q is not available", event.Option)
		}
		s.Selected = option
		return s, nil

	case EventSubmit:
		if s.Phase != PhasePresenting {
			return s, rejectf("answer already locked")
		}
		if event.Option != "" {
			option, ok := findOption(s.Options, event.Option)
			if !ok {
				return s, rejectf("option %q is not available", event.Option)
			}
			s.Selected = option
		}
		if s.Selected == "" {
			return s, rejectf("no option selected")
		}
		return submit(s), nil

	case EventTick:
		return s, nil

	case EventTimeout:
		if s.Phase != PhasePresenting {
			return s, nil
		}
		return timeOut(s), nil

	case EventLifeline:
		return useLifeline(s, event.Lifeline, dice)

	case EventNext:
		if s.Phase != PhaseSubmitted {
			return s, rejectf("current question is not answered")
		}
		if s.Index >= len(s.Questions)-1 {
			s.Phase = PhaseFinished
			s = clearQuestionState(s)
			return s, nil
		}
		s.Index++
		return present(s, event.At), nil
	}

	return s, rejectf("unknown event %q", event.Type)
}

func rejectf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrEventRejected, fmt.Sprintf(format, args...))
}

func expire(s Session, at time.Time) Session {
	if s.Phase != PhasePresenting || at.IsZero() || s.Deadline.IsZero() {
		return s
	}
	if at.Before(s.Deadline) {
		return s
	}
	return timeOut(s)
}

func present(s Session, at time.Time) Session {
	s = clearQuestionState(s)
	s.Phase = PhasePresenting
	s.Options = append([]string(nil), s.Questions[s.Index].Options...)
	if !at.IsZero() {
		s.Deadline = at.Add(s.QuestionTime)
	}
	return s
}

func clearQuestionState(s Session) Session {
	s.Options = nil
	s.Selected = ""
	s.Presented = false
	s.LifelineActive = false
	s.Deadline = time.Time{}
	s.Poll = nil
	s.Friend = nil
	return s
}

func submit(s Session) Session {
	q := s.Questions[s.Index]
	chosen := OptionLetter(s.Selected)
	correct := chosen != "" && chosen == q.Letter()
	if correct {
		s.Score++
	}
	s.Feedback = append(s.Feedback, Feedback{
		QuestionIndex: s.Index,
		Correct:       correct,
		Chosen:        chosen,
	})
	s.Phase = PhaseSubmitted
	return s
}

func timeOut(s Session) Session {
	s.Feedback = append(s.Feedback, Feedback{
		QuestionIndex: s.Index,
		Correct:       false,
		TimedOut:      true,
	})
	s.Selected = ""
	s.Phase = PhaseSubmitted
	return s
}

// findOption matches either a full option or its letter.
func findOption(options []string, want string) (string, bool) {
	want = strings.TrimSpace(want)
	if want == "" {
		return "", false
	}
	for _, option := range options {
		if option == want {
			return option, true
		}
	}
	letter := OptionLetter(want)
	for _, option := range options {
		if OptionLetter(option) == letter {
			return option, true
		}
	}
	return "", false
}

func useLifeline(s Session, kind Lifeline, dice Dice) (Session, error) {
	switch {
	case s.Phase != PhasePresenting:
		return s, rejectf("lifelines are only available before answering")
	case !s.Presented:
		return s, rejectf("question has not been presented yet")
	case s.LifelineActive:
		return s, rejectf("a lifeline was already used on this question")
	case s.Lifelines.used(kind):
		return s, rejectf("lifeline %q already used", kind)
	}

	q := s.Questions[s.Index]
	switch kind {
	case LifelineFiftyFifty:
		s.Options = FiftyFifty(q, dice)
		if s.Selected != "" {
			if _, ok := findOption(s.Options, s.Selected); !ok {
				s.Selected = ""
			}
		}
	case LifelineAudiencePoll:
		s.Poll = AudiencePoll(q, dice)
	case LifelinePhoneAFriend:
		hint := PhoneAFriend(q, dice)
		s.Friend = &hint
	}

	s.Lifelines = s.Lifelines.mark(kind)
	s.LifelineActive = true
	return s, nil
}

// FiftyFifty keeps the correct option and one random incorrect option, in
// display order.
func FiftyFifty(q Question, dice Dice) []string {
	incorrect := q.IncorrectOptions()
	if len(incorrect) == 0 {
		return append([]string(nil), q.Options...)
	}
	keep := incorrect[dice.IntN(len(incorrect))]
	letter := q.Letter()

	out := make([]string, 0, 2)
	for _, option := range q.Options {
		if option == keep || OptionLetter(option) == letter {
			out = append(out, option)
		}
	}
	return out
}

// AudiencePoll fakes a vote: the correct option draws 50-99, the others
// 0-49, then all four are scaled to percentages and truncated.
func AudiencePoll(q Question, dice Dice) []PollShare {
	letter := q.Letter()
	raw := make([]int, len(OptionLetters))
	total := 0
	for i, l := range OptionLetters {
		if l == letter {
			raw[i] = 50 + dice.IntN(50)
		} else {
			raw[i] = dice.IntN(50)
		}
		total += raw[i]
	}

	shares := make([]PollShare, len(OptionLetters))
	for i, l := range OptionLetters {
		percent := 0
		if total > 0 {
			percent = raw[i] * 100 / total
		}
		shares[i] = PollShare{Letter: l, Percent: percent}
	}
	return shares
}

// PhoneAFriend flips a coin for confidence and suggests one of the
// incorrect options. The friend never suggests the right answer.
func PhoneAFriend(q Question, dice Dice) FriendHint {
	hint := FriendHint{Confident: dice.IntN(2) == 1}
	incorrect := q.IncorrectOptions()
	if len(incorrect) > 0 {
		hint.Suggestion = incorrect[dice.IntN(len(incorrect))]
	}
	return hint
}

func cloneSession(s Session) Session {
	if s.Questions != nil {
		questions := make([]Question, len(s.Questions))
		for i, q := range s.Questions {
			questions[i] = cloneQuestion(q)
		}
		s.Questions = questions
	}
	s.Feedback = append([]Feedback(nil), s.Feedback...)
	s.Options = append([]string(nil), s.Options...)
	s.Poll = append([]PollShare(nil), s.Poll...)
	if s.Friend != nil {
		friend := *s.Friend
		s.Friend = &friend
	}
	return s
}

// SecondsLeft is the whole number of seconds before the current question
// times out, or 0 when no question is running.
func (s Session) SecondsLeft(now time.Time) int {
	if s.Phase != PhasePresenting || s.Deadline.IsZero() {
		return 0
	}
	left := s.Deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// QuestionView is the current question as shown to the player.
type QuestionView struct {
	Number  int      `json:"number"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
	Reward  Reward   `json:"reward"`
}

// View is the player-facing projection of a session. The correct answer of
// the current question is only included once the answer is locked.
type View struct {
	ID              string        `json:"id"`
	Phase           Phase         `json:"phase"`
	Error           string        `json:"error,omitempty"`
	Total           int           `json:"totalQuestions"`
	Score           int           `json:"score"`
	Question        *QuestionView `json:"question,omitempty"`
	Selected        string        `json:"selectedOption,omitempty"`
	Presented       bool          `json:"presented"`
	SecondsLeft     int           `json:"secondsLeft"`
	CorrectAnswer   string        `json:"correctAnswer,omitempty"`
	LastFeedback    *Feedback     `json:"lastFeedback,omitempty"`
	Lifelines       LifelinesUsed `json:"lifelinesUsed"`
	LifelinesLocked bool          `json:"lifelinesLocked"`
	Poll            []PollShare   `json:"audiencePoll,omitempty"`
	Friend          *FriendHint   `json:"phoneAFriend,omitempty"`
}

// View projects the session for display at time now.
func (s Session) View(now time.Time) View {
	v := View{
		ID:              s.ID,
		Phase:           s.Phase,
		Error:           s.Error,
		Total:           len(s.Questions),
		Score:           s.Score,
		Lifelines:       s.Lifelines,
		LifelinesLocked: s.Phase != PhasePresenting || !s.Presented || s.LifelineActive,
	}

	if s.Phase != PhasePresenting && s.Phase != PhaseSubmitted {
		return v
	}

	q := s.Questions[s.Index]
	v.Question = &QuestionView{
		Number:  s.Index + 1,
		Text:    q.Text,
		Options: append([]string(nil), s.Options...),
		Reward:  q.Reward,
	}
	v.Selected = s.Selected
	v.Presented = s.Presented
	v.SecondsLeft = s.SecondsLeft(now)
	v.Poll = append([]PollShare(nil), s.Poll...)
	if s.Friend != nil {
		friend := *s.Friend
		v.Friend = &friend
	}

	if s.Phase == PhaseSubmitted {
		v.CorrectAnswer = q.CorrectAnswer
		if n := len(s.Feedback); n > 0 {
			last := s.Feedback[n-1]
			v.LastFeedback = &last
		}
	}
	return v
}

// Results summarizes a finished session.
type Results struct {
	Score          int        `json:"score"`
	TotalQuestions int        `json:"totalQuestions"`
	Percentage     int        `json:"percentage"`
	Chocolates     int        `json:"chocolates"`
	Feedback       []Feedback `json:"feedback"`
	Category       string     `json:"selectedMusic,omitempty"`
}

// Results returns the summary of a finished session.
func (s Session) Results() (Results, error) {
	if s.Phase != PhaseFinished {
		return Results{}, rejectf("quiz is not finished")
	}
	chocolates := 0
	for _, f := range s.Feedback {
		if f.Correct && f.QuestionIndex < len(s.Questions) {
			chocolates += int(s.Questions[f.QuestionIndex].Reward)
		}
	}
	return Results{
		Score:          s.Score,
		TotalQuestions: len(s.Questions),
		Percentage:     Percentage(s.Score, len(s.Questions)),
		Chocolates:     chocolates,
		Feedback:       append([]Feedback{}, s.Feedback...),
		Category:       s.Request.SelectedMusic,
	}, nil
}

// Percentage returns round(100*score/total), or 0 when total is 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) * 100 / float64(total)))
}
