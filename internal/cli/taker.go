package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/session"
)

// ErrQuit is returned when the student leaves before submitting. Progress
// stays saved.
var ErrQuit = errors.New("quit before submitting")

const helpText = `Commands:
  <n> <choice>     answer question n, e.g. "3 B" or "4 A,C"
  <n> -            clear the answer to question n
  n / p            next / previous page
  l                show the current page again
  s                submit
  q                quit (progress is saved)`

// Taker runs one attempt interactively.
type Taker struct {
	console *Console
	ctrl    *session.Controller
	page    int
	log     zerolog.Logger
}

// NewTaker creates a Taker for a started controller.
func NewTaker(console *Console, ctrl *session.Controller, log zerolog.Logger) *Taker {
	return &Taker{
		console: console,
		ctrl:    ctrl,
		log:     log.With().Str("component", "cli_taker").Logger(),
	}
}

// Run shows the quiz and processes commands until the attempt is submitted,
// the student quits or ctx ends.
func (t *Taker) Run(ctx context.Context) (*model.QuizResult, error) {
	events, unsubscribe := t.ctrl.Subscribe()
	defer unsubscribe()

	quiz := t.ctrl.Quiz()
	t.console.Printf("\n%s (%d questions, %d min)\n", quiz.Title, len(quiz.Questions), quiz.TimeLimit)
	t.console.Println(helpText)
	t.showPage()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-t.ctrl.Done():
			return t.finish(t.ctrl.Result()), nil

		case ev := <-events:
			switch ev.Type {
			case session.EventTick:
				if ev.TimeLeft > 0 && (ev.TimeLeft%60 == 0 || ev.TimeLeft <= 10) {
					t.console.Printf("[%s left]\n", model.FormatClock(ev.TimeLeft))
				}
			case session.EventSubmitted:
				return t.finish(ev.Result), nil
			case session.EventSubmitFailed:
				t.console.Printf("Submission failed: %s\nType s to retry.\n", ev.Error)
			}

		case line, ok := <-t.console.Lines():
			if !ok {
				return nil, ErrQuit
			}
			res, done, err := t.handle(ctx, line)
			if done || err != nil {
				return res, err
			}
		}
	}
}

func (t *Taker) handle(ctx context.Context, line string) (*model.QuizResult, bool, error) {
	switch strings.ToLower(line) {
	case "":
		return nil, false, nil
	case "?", "h", "help":
		t.console.Println(helpText)
	case "n":
		if t.ctrl.Pager().HasNext(t.page) {
			t.page++
		}
		t.showPage()
	case "p":
		if t.page > 0 {
			t.page--
		}
		t.showPage()
	case "l":
		t.showPage()
	case "q":
		t.console.Println("Progress saved. Run again to resume.")
		return nil, true, ErrQuit
	case "s":
		return t.submit(ctx)
	default:
		t.answer(ctx, line)
	}
	return nil, false, nil
}

func (t *Taker) submit(ctx context.Context) (*model.QuizResult, bool, error) {
	confirm := session.ConfirmFunc(func(ctx context.Context, unanswered int) (bool, error) {
		return t.console.Confirm(ctx,
			fmt.Sprintf("%d question(s) unanswered. Submit anyway? [y/N] ", unanswered), false)
	})

	res, err := t.ctrl.SubmitWith(ctx, confirm)
	switch {
	case err == nil:
		return t.finish(res), true, nil
	case errors.Is(err, session.ErrSubmitCancelled):
		t.console.Println("Submission cancelled.")
	case errors.Is(err, session.ErrSubmitInProgress):
		t.console.Println("Submission already in progress.")
	case errors.Is(err, session.ErrAlreadySubmitted):
		return t.finish(t.ctrl.Result()), true, nil
	case errors.Is(err, ErrInputClosed):
		return nil, true, ErrQuit
	default:
		t.log.Warn().Err(err).Msg("Submit failed")
		t.console.Printf("Submission failed: %v\nYour answers are saved; type s to retry.\n", err)
	}
	return nil, false, nil
}

func (t *Taker) answer(ctx context.Context, line string) {
	num, raw, _ := strings.Cut(line, " ")
	n, err := strconv.Atoi(num)
	quiz := t.ctrl.Quiz()
	if err != nil || n < 1 || n > len(quiz.Questions) {
		t.console.Println("Unknown command. Type ? for help.")
		return
	}
	q := quiz.Questions[n-1]

	ans, err := ParseAnswer(&q, raw)
	if err != nil {
		t.console.Printf("Question %d: %v\n", n, err)
		return
	}
	if err := t.ctrl.SetAnswer(ctx, q.ID, ans); err != nil {
		t.console.Printf("Question %d: %v\n", n, err)
		return
	}
	t.page = t.ctrl.Pager().PageOf(n - 1)
	t.console.Printf("Saved. %d of %d answered.\n", len(quiz.Questions)-t.ctrl.Unanswered(), len(quiz.Questions))
}

func (t *Taker) showPage() {
	quiz := t.ctrl.Quiz()
	pager := t.ctrl.Pager()
	answers := t.ctrl.Answers()
	start, end := pager.Bounds(t.page)

	t.console.Printf("\n── Page %d/%d · %s left · %.0f%% answered ──\n",
		t.page+1, pager.TotalPages(), model.FormatClock(t.ctrl.TimeLeft()), t.ctrl.Progress())

	for i := start; i < end; i++ {
		q := quiz.Questions[i]
		kind := ""
		if q.IsMultiple() {
			kind = " (choose all that apply)"
		}
		t.console.Printf("%d. %s%s\n", i+1, q.Prompt, kind)
		selected := answers[q.ID].Normalize()
		for j, choice := range q.Choices {
			mark := " "
			if contains(selected, choice) {
				mark = "*"
			}
			t.console.Printf("   %s %c) %s\n", mark, 'A'+j, choice)
		}
	}
}

func (t *Taker) finish(res *model.QuizResult) *model.QuizResult {
	if res == nil {
		return nil
	}
	t.console.Printf("\n══ %s ══\n", res.Title)
	t.console.Printf("Student:   %s\n", res.StudentName)
	t.console.Printf("Class:     %s\n", res.ClassName)
	t.console.Printf("Subject:   %s\n", res.Subject)
	t.console.Printf("Duration:  %s\n", res.DurationText)
	t.console.Printf("Score:     %.2f\n", res.Score)
	t.console.Printf("Questions: %d\n", res.TotalQuestions)
	return res
}

// ParseAnswer turns choice letters ("B", "A,C", "a c") into an answer for
// q. "-" or an empty string clears it.
func ParseAnswer(q *model.Question, raw string) (model.Answer, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "-" {
		if q.IsMultiple() {
			return model.MultiAnswer(), nil
		}
		return model.SingleAnswer(""), nil
	}

	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
	choices := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) != 1 {
			return model.Answer{}, fmt.Errorf("%q is not a choice letter", f)
		}
		idx := int(strings.ToUpper(f)[0] - 'A')
		if idx < 0 || idx >= len(q.Choices) {
			return model.Answer{}, fmt.Errorf("choice %q does not exist", strings.ToUpper(f))
		}
		if !contains(choices, q.Choices[idx]) {
			choices = append(choices, q.Choices[idx])
		}
	}

	if q.IsMultiple() {
		return model.MultiAnswer(choices...), nil
	}
	if len(choices) > 1 {
		return model.Answer{}, errors.New("only one choice allowed")
	}
	return model.SingleAnswer(choices[0]), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
