package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"chocoraga"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

// player runs a single-player quiz on a terminal.
type player struct {
	in           *bufio.Scanner
	out          io.Writer
	dice         chocoraga.Dice
	noColor      bool
	now          func() time.Time
	questionTime time.Duration
}

func newPlayer(in io.Reader, out io.Writer, dice chocoraga.Dice, noColor bool) *player {
	return &player{
		in:           bufio.NewScanner(in),
		out:          out,
		dice:         dice,
		noColor:      noColor,
		now:          time.Now,
		questionTime: chocoraga.DefaultQuestionTime,
	}
}

var lifelineCommands = map[string]chocoraga.Lifeline{
	"50":     chocoraga.LifelineFiftyFifty,
	"50/50":  chocoraga.LifelineFiftyFifty,
	"poll":   chocoraga.LifelineAudiencePoll,
	"friend": chocoraga.LifelinePhoneAFriend,
}

// Play asks every question in turn and returns the final results.
func (p *player) Play(req chocoraga.LoadRequest, questions []chocoraga.Question) (chocoraga.Results, error) {
	s := chocoraga.NewSession(uuid.NewString(), req, p.questionTime)
	s, err := chocoraga.Reduce(s, chocoraga.Event{Type: chocoraga.EventLoaded, At: p.now(), Questions: questions}, p.dice)
	if err != nil {
		return chocoraga.Results{}, err
	}
	if s.Phase == chocoraga.PhaseFailed {
		return chocoraga.Results{}, errors.New(s.Error)
	}

	fmt.Fprintln(p.out, p.style("ChocoRaga Quest", "205", true))
	if req.SelectedMusic != "" {
		fmt.Fprintf(p.out, "Category: %s\n", req.SelectedMusic)
	}
	fmt.Fprintf(p.out, "%d questions, %s per question\n\n", len(questions), p.questionTime)

	for s.Phase != chocoraga.PhaseFinished {
		p.renderQuestion(s)
		s, _ = chocoraga.Reduce(s, chocoraga.Event{Type: chocoraga.EventPresented, At: p.now()}, p.dice)

		for s.Phase == chocoraga.PhasePresenting {
			fmt.Fprint(p.out, "Answer (A-D), or 50/poll/friend: ")
			if !p.in.Scan() {
				if err := p.in.Err(); err != nil {
					return chocoraga.Results{}, err
				}
				return chocoraga.Results{}, io.ErrUnexpectedEOF
			}
			line := strings.ToLower(strings.TrimSpace(p.in.Text()))

			event := chocoraga.Event{Type: chocoraga.EventSubmit, At: p.now(), Option: line}
			if kind, ok := lifelineCommands[line]; ok {
				event = chocoraga.Event{Type: chocoraga.EventLifeline, At: p.now(), Lifeline: kind}
			}

			next, err := chocoraga.Reduce(s, event, p.dice)
			if err != nil && next.Phase == chocoraga.PhasePresenting {
				fmt.Fprintln(p.out, p.style(rejection(err), "214", false))
			}
			s = next
			if err == nil && event.Type == chocoraga.EventLifeline {
				p.renderLifeline(s, event.Lifeline)
			}
		}

		p.renderFeedback(s)
		s, err = chocoraga.Reduce(s, chocoraga.Event{Type: chocoraga.EventNext, At: p.now()}, p.dice)
		if err != nil {
			return chocoraga.Results{}, err
		}
	}

	results, err := s.Results()
	if err != nil {
		return chocoraga.Results{}, err
	}
	p.renderResults(results)
	return results, nil
}

func rejection(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	return msg
}

func (p *player) renderQuestion(s chocoraga.Session) {
	v := s.View(p.now())
	header := fmt.Sprintf("Question %d/%d", v.Question.Number, v.Total)
	fmt.Fprintln(p.out, p.style(header, "39", true))
	fmt.Fprintln(p.out, v.Question.Text)
	for _, option := range v.Question.Options {
		fmt.Fprintf(p.out, "  %s\n", option)
	}
	p.renderLifelinesLeft(v.Lifelines)
}

func (p *player) renderLifelinesLeft(used chocoraga.LifelinesUsed) {
	var left []string
	if !used.FiftyFifty {
		left = append(left, "50")
	}
	if !used.AudiencePoll {
		left = append(left, "poll")
	}
	if !used.PhoneAFriend {
		left = append(left, "friend")
	}
	if len(left) == 0 {
		return
	}
	fmt.Fprintln(p.out, p.style("Lifelines: "+strings.Join(left, ", "), "244", false))
}

func (p *player) renderLifeline(s chocoraga.Session, kind chocoraga.Lifeline) {
	v := s.View(p.now())
	switch kind {
	case chocoraga.LifelineFiftyFifty:
		fmt.Fprintln(p.out, "Two options remain:")
		for _, option := range v.Question.Options {
			fmt.Fprintf(p.out, "  %s\n", option)
		}
	case chocoraga.LifelineAudiencePoll:
		fmt.Fprintln(p.out, "Audience poll:")
		for _, share := range v.Poll {
			bar := strings.Repeat("#", share.Percent/5)
			fmt.Fprintf(p.out, "  %s: %3d%% %s\n", share.Letter, share.Percent, bar)
		}
	case chocoraga.LifelinePhoneAFriend:
		confidence := "isn't sure, but thinks"
		if v.Friend.Confident {
			confidence = "is fairly sure it's"
		}
		fmt.Fprintf(p.out, "Your friend %s: %s\n", confidence, v.Friend.Suggestion)
	}
}

func (p *player) renderFeedback(s chocoraga.Session) {
	v := s.View(p.now())
	switch {
	case v.LastFeedback == nil:
	case v.LastFeedback.TimedOut:
		fmt.Fprintln(p.out, p.style("Time's up! "+v.CorrectAnswer, "196", false))
	case v.LastFeedback.Correct:
		fmt.Fprintln(p.out, p.style("Correct!", "42", true))
	default:
		fmt.Fprintln(p.out, p.style("Incorrect. "+v.CorrectAnswer, "196", false))
	}
	fmt.Fprintf(p.out, "Score: %d/%d\n\n", v.Score, v.Question.Number)
}

func (p *player) renderResults(results chocoraga.Results) {
	fmt.Fprintln(p.out, p.style("Quiz completed!", "205", true))
	fmt.Fprintf(p.out, "Score: %d/%d (%d%%)\n", results.Score, results.TotalQuestions, results.Percentage)
	fmt.Fprintf(p.out, "Chocolates earned: %d\n", results.Chocolates)

	switch {
	case results.Percentage >= 80:
		fmt.Fprintln(p.out, "Excellent work!")
	case results.Percentage >= 60:
		fmt.Fprintln(p.out, "Good job!")
	default:
		fmt.Fprintln(p.out, "Keep practicing!")
	}
}

func (p *player) style(text, color string, bold bool) string {
	if p.noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(bold).Render(text)
}
