package chocoraga

import (
	"errors"
	"testing"
	"time"
)

// seqDice returns its values in order, modulo n, repeating the last one.
type seqDice struct {
	values []int
	calls  []int
}

func (d *seqDice) IntN(n int) int {
	d.calls = append(d.calls, n)
	v := 0
	if len(d.values) > 0 {
		v = d.values[0]
		if len(d.values) > 1 {
			d.values = d.values[1:]
		}
	}
	return v % n
}

var t0 = time.Date(2024, 12, 1, 18, 0, 0, 0, time.UTC)

func sessionQuestions(n int) []Question {
	questions := make([]Question, n)
	for i := range questions {
		questions[i] = Question{
			Text:          "Question?",
			Options:       []string{"A) one", "B) two", "C) three", "D) four"},
			CorrectAnswer: "Correct answer: B",
			Reward:        PlaceholderReward,
		}
	}
	return questions
}

// loadedSession returns a session presenting the first of n questions at t0.
func loadedSession(t *testing.T, n int) Session {
	t.Helper()
	s := NewSession("s1", LoadRequest{Source: SourceBank}, DefaultQuestionTime)
	s, err := Reduce(s, Event{Type: EventLoaded, At: t0, Questions: sessionQuestions(n)}, &seqDice{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func mustReduce(t *testing.T, s Session, e Event, dice Dice) Session {
	t.Helper()
	next, err := Reduce(s, e, dice)
	if err != nil {
		t.Fatalf("%s: %v", e.Type, err)
	}
	return next
}

func expectRejected(t *testing.T, s Session, e Event) Session {
	t.Helper()
	next, err := Reduce(s, e, &seqDice{})
	if !errors.Is(err, ErrEventRejected) {
		t.Fatalf("%s: expected rejection, got %v", e.Type, err)
	}
	return next
}

// TestSubmitCorrectAnswerScores verifies the letter comparison is case-insensitive.
func TestSubmitCorrectAnswerScores(t *testing.T) {
	s := loadedSession(t, 2)
	s = mustReduce(t, s, Event{Type: EventSelect, At: t0.Add(time.Second), Option: "b"}, nil)
	s = mustReduce(t, s, Event{Type: EventSubmit, At: t0.Add(2 * time.Second)}, nil)

	if s.Phase != PhaseSubmitted || s.Score != 1 {
		t.Fatalf("expected submitted with score 1, got %s/%d", s.Phase, s.Score)
	}
	if len(s.Feedback) != 1 || !s.Feedback[0].Correct || s.Feedback[0].Chosen != "B" {
		t.Fatalf("unexpected feedback %+v", s.Feedback)
	}
}

// TestSubmitThenTimeoutIsNoop verifies a late timer cannot change a submitted answer.
func TestSubmitThenTimeoutIsNoop(t *testing.T) {
	s := loadedSession(t, 2)
	s = mustReduce(t, s, Event{Type: EventSubmit, At: t0.Add(5 * time.Second), Option: "A) one"}, nil)

	after := mustReduce(t, s, Event{Type: EventTimeout, At: t0.Add(31 * time.Second)}, nil)
	if after.Score != s.Score || len(after.Feedback) != 1 {
		t.Fatalf("timeout changed a submitted question: %+v", after.Feedback)
	}
	if after.Feedback[0].TimedOut || after.Feedback[0].Chosen != "A" {
		t.Fatalf("feedback overwritten: %+v", after.Feedback[0])
	}
}

// TestTimeoutThenSubmitIsRejected verifies the deadline wins over a late submit.
func TestTimeoutThenSubmitIsRejected(t *testing.T) {
	s := loadedSession(t, 2)
	s = mustReduce(t, s, Event{Type: EventSelect, At: t0.Add(time.Second), Option: "B"}, nil)

	s = expectRejected(t, s, Event{Type: EventSubmit, At: t0.Add(30 * time.Second)})
	if s.Phase != PhaseSubmitted || s.Score != 0 {
		t.Fatalf("expected timed-out question, got %s score %d", s.Phase, s.Score)
	}
	f := s.Feedback[0]
	if f.Correct || f.Chosen != "" || !f.TimedOut {
		t.Fatalf("expected timeout feedback, got %+v", f)
	}
}

// TestExplicitTimeoutRecordsNoLetter verifies a host timer event times out the question.
func TestExplicitTimeoutRecordsNoLetter(t *testing.T) {
	s := loadedSession(t, 1)
	s = mustReduce(t, s, Event{Type: EventTimeout, At: t0.Add(10 * time.Second)}, nil)
	if s.Phase != PhaseSubmitted || !s.Feedback[0].TimedOut {
		t.Fatalf("expected a timeout, got %+v", s)
	}
}

// TestSubmitWithoutSelectionRejected verifies an empty submit is refused.
func TestSubmitWithoutSelectionRejected(t *testing.T) {
	s := loadedSession(t, 1)
	s = expectRejected(t, s, Event{Type: EventSubmit, At: t0.Add(time.Second)})
	if s.Phase != PhasePresenting {
		t.Fatalf("expected still presenting, got %s", s.Phase)
	}
}

// TestNextResetsQuestionStateButKeepsLifelines verifies per-question reset rules.
func TestNextResetsQuestionStateButKeepsLifelines(t *testing.T) {
	s := loadedSession(t, 2)
	s = mustReduce(t, s, Event{Type: EventPresented, At: t0}, nil)
	s = mustReduce(t, s, Event{Type: EventLifeline, At: t0, Lifeline: LifelineAudiencePoll}, &seqDice{values: []int{10}})
	s = mustReduce(t, s, Event{Type: EventSubmit, At: t0.Add(3 * time.Second), Option: "C"}, nil)
	s = mustReduce(t, s, Event{Type: EventNext, At: t0.Add(4 * time.Second)}, nil)

	if s.Phase != PhasePresenting || s.Index != 1 {
		t.Fatalf("expected presenting question 2, got %s/%d", s.Phase, s.Index)
	}
	if s.Selected != "" || s.Presented || s.LifelineActive || s.Poll != nil {
		t.Fatalf("per-question state not reset: %+v", s)
	}
	if !s.Lifelines.AudiencePoll {
		t.Fatalf("session lifeline flag was reset")
	}
	if s.SecondsLeft(t0.Add(4*time.Second)) != 30 {
		t.Fatalf("timer not reset, %d seconds left", s.SecondsLeft(t0.Add(4*time.Second)))
	}
}

// TestLifelineRequiresPresentation verifies lifelines wait for the question to be read.
func TestLifelineRequiresPresentation(t *testing.T) {
	s := loadedSession(t, 1)
	expectRejected(t, s, Event{Type: EventLifeline, At: t0, Lifeline: LifelineFiftyFifty})
}

// TestLifelineOneShotRules verifies one lifeline per question and each once per session.
func TestLifelineOneShotRules(t *testing.T) {
	s := loadedSession(t, 3)
	s = mustReduce(t, s, Event{Type: EventPresented, At: t0}, nil)
	s = mustReduce(t, s, Event{Type: EventLifeline, At: t0, Lifeline: LifelineFiftyFifty}, &seqDice{values: []int{0}})

	expectRejected(t, s, Event{Type: EventLifeline, At: t0, Lifeline: LifelinePhoneAFriend})
	if s.Lifelines.PhoneAFriend {
		t.Fatalf("blocked lifeline was consumed")
	}

	s = mustReduce(t, s, Event{Type: EventSubmit, At: t0.Add(time.Second), Option: "B"}, nil)
	expectRejected(t, s, Event{Type: EventLifeline, At: t0.Add(time.Second), Lifeline: LifelinePhoneAFriend})

	s = mustReduce(t, s, Event{Type: EventNext, At: t0.Add(2 * time.Second)}, nil)
	s = mustReduce(t, s, Event{Type: EventPresented, At: t0.Add(2 * time.Second)}, nil)
	expectRejected(t, s, Event{Type: EventLifeline, At: t0.Add(2 * time.Second), Lifeline: LifelineFiftyFifty})
	s = mustReduce(t, s, Event{Type: EventLifeline, At: t0.Add(2 * time.Second), Lifeline: LifelinePhoneAFriend}, &seqDice{values: []int{1, 2}})
	if s.Friend == nil || s.Friend.Suggestion != "D) four" || !s.Friend.Confident {
		t.Fatalf("unexpected friend hint %+v", s.Friend)
	}
}

// TestFiftyFiftyKeepsCorrectAndOneIncorrect verifies the remaining options.
func TestFiftyFiftyKeepsCorrectAndOneIncorrect(t *testing.T) {
	q := sessionQuestions(1)[0]
	for pick := 0; pick < 3; pick++ {
		got := FiftyFifty(q, &seqDice{values: []int{pick}})
		if len(got) != 2 {
			t.Fatalf("expected 2 options, got %v", got)
		}
		hasCorrect := false
		for _, option := range got {
			if option == "B) two" {
				hasCorrect = true
			}
		}
		if !hasCorrect {
			t.Fatalf("correct option removed: %v", got)
		}
	}
}

// TestFiftyFiftyClearsRemovedSelection verifies a removed selection is dropped.
func TestFiftyFiftyClearsRemovedSelection(t *testing.T) {
	s := loadedSession(t, 1)
	s = mustReduce(t, s, Event{Type: EventPresented, At: t0}, nil)
	s = mustReduce(t, s, Event{Type: EventSelect, At: t0, Option: "D"}, nil)
	// Incorrect pool is A, C, D; index 0 keeps A.
	s = mustReduce(t, s, Event{Type: EventLifeline, At: t0, Lifeline: LifelineFiftyFifty}, &seqDice{values: []int{0}})
	if s.Selected != "" {
		t.Fatalf("expected selection cleared, got %q", s.Selected)
	}
	expectRejected(t, s, Event{Type: EventSelect, At: t0, Option: "D"})
}

// TestAudiencePollBiasesCorrectOption verifies the correct option leads the poll.
func TestAudiencePollBiasesCorrectOption(t *testing.T) {
	q := sessionQuestions(1)[0]
	poll := AudiencePoll(q, &seqDice{values: []int{49, 0, 49, 49}})
	// Raw votes: A 49, B 50, C 49, D 49, total 197.
	want := []int{24, 25, 24, 24}
	for i, share := range poll {
		if share.Letter != OptionLetters[i] || share.Percent != want[i] {
			t.Fatalf("share %d: expected %s %d, got %+v", i, OptionLetters[i], want[i], share)
		}
	}
}

// TestPhoneAFriendNeverSuggestsCorrect verifies the suggestion pool.
func TestPhoneAFriendNeverSuggestsCorrect(t *testing.T) {
	q := sessionQuestions(1)[0]
	for i := 0; i < 6; i++ {
		hint := PhoneAFriend(q, &seqDice{values: []int{i, i}})
		if hint.Suggestion == "B) two" || hint.Suggestion == "" {
			t.Fatalf("unexpected suggestion %q", hint.Suggestion)
		}
	}
}

// TestFinishAndResults verifies the last Next finishes and results add up.
func TestFinishAndResults(t *testing.T) {
	s := loadedSession(t, 2)
	if _, err := s.Results(); !errors.Is(err, ErrEventRejected) {
		t.Fatalf("expected results to be unavailable before finishing")
	}
	s = mustReduce(t, s, Event{Type: EventSubmit, At: t0.Add(time.Second), Option: "B"}, nil)
	s = mustReduce(t, s, Event{Type: EventNext, At: t0.Add(2 * time.Second)}, nil)
	s = mustReduce(t, s, Event{Type: EventTimeout, At: t0.Add(3 * time.Second)}, nil)
	s = mustReduce(t, s, Event{Type: EventNext, At: t0.Add(4 * time.Second)}, nil)

	if s.Phase != PhaseFinished {
		t.Fatalf("expected finished, got %s", s.Phase)
	}
	results, err := s.Results()
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if results.Score != 1 || results.TotalQuestions != 2 || results.Percentage != 50 || results.Chocolates != 1 {
		t.Fatalf("unexpected results %+v", results)
	}
	expectRejected(t, s, Event{Type: EventNext, At: t0.Add(5 * time.Second)})
}

// TestPercentage verifies rounding and the zero-total guard.
func TestPercentage(t *testing.T) {
	cases := []struct{ score, total, want int }{
		{7, 10, 70},
		{0, 0, 0},
		{2, 3, 67},
		{1, 3, 33},
		{5, 5, 100},
	}
	for _, tc := range cases {
		if got := Percentage(tc.score, tc.total); got != tc.want {
			t.Fatalf("Percentage(%d, %d) = %d, want %d", tc.score, tc.total, got, tc.want)
		}
	}
}

// TestLoadFailureAndRetry verifies the failed state and its retry path.
func TestLoadFailureAndRetry(t *testing.T) {
	s := NewSession("s1", LoadRequest{Source: SourceGenerate}, 0)
	s = mustReduce(t, s, Event{Type: EventLoadFailed, At: t0, Error: "Error generating questions"}, nil)
	if s.Phase != PhaseFailed || s.Error != "Error generating questions" {
		t.Fatalf("expected failed state, got %+v", s)
	}
	expectRejected(t, s, Event{Type: EventSubmit, At: t0, Option: "A"})

	s = mustReduce(t, s, Event{Type: EventRetry, At: t0}, nil)
	if s.Phase != PhaseLoading || s.Error != "" {
		t.Fatalf("expected loading after retry, got %+v", s)
	}
	s = mustReduce(t, s, Event{Type: EventLoaded, At: t0, Questions: nil}, nil)
	if s.Phase != PhaseFailed {
		t.Fatalf("an empty question set must fail the load, got %s", s.Phase)
	}
}

// TestViewHidesAnswerUntilLocked verifies the correct answer is not leaked.
func TestViewHidesAnswerUntilLocked(t *testing.T) {
	s := loadedSession(t, 1)
	v := s.View(t0.Add(10 * time.Second))
	if v.CorrectAnswer != "" || v.Question == nil || v.SecondsLeft != 20 {
		t.Fatalf("unexpected presenting view %+v", v)
	}
	s = mustReduce(t, s, Event{Type: EventSubmit, At: t0.Add(11 * time.Second), Option: "A"}, nil)
	v = s.View(t0.Add(11 * time.Second))
	if v.CorrectAnswer != "Correct answer: B" || v.LastFeedback == nil || v.LastFeedback.Correct {
		t.Fatalf("unexpected submitted view %+v", v)
	}
}

// TestReduceDoesNotMutateInput verifies the reducer is pure.
func TestReduceDoesNotMutateInput(t *testing.T) {
	s := loadedSession(t, 1)
	s = mustReduce(t, s, Event{Type: EventPresented, At: t0}, nil)
	before := len(s.Options)
	_ = mustReduce(t, s, Event{Type: EventLifeline, At: t0, Lifeline: LifelineFiftyFifty}, &seqDice{})
	if len(s.Options) != before {
		t.Fatalf("input session was mutated")
	}
}
