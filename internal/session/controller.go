// Package session runs one student's timed attempt at one quiz: it restores
// or starts the attempt, autosaves answers, counts down the deadline and
// submits exactly once, manually or on expiry.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/config"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/store"
)

// Session errors.
var (
	ErrInvalidQuiz      = errors.New("quiz has no time limit or no questions")
	ErrNotStarted       = errors.New("session not started")
	ErrSubmitInProgress = errors.New("submission already in progress")
	ErrAlreadySubmitted = errors.New("session already submitted")
	ErrSubmitCancelled  = errors.New("submission cancelled")
	ErrSubmitFailed     = errors.New("submission failed")
	ErrUnknownQuestion  = errors.New("question does not belong to this quiz")
	ErrStoreUnavailable = errors.New("progress store unavailable")
)

// State is the lifecycle stage of an attempt.
type State string

const (
	StateUnstarted  State = "UNSTARTED"
	StateActive     State = "ACTIVE"
	StateSubmitting State = "SUBMITTING"
	StateSubmitted  State = "SUBMITTED"
)

// Identity is the caller on whose behalf the attempt runs.
type Identity struct {
	StudentID string
	Token     string
}

// Submitter delivers a finished attempt to the backend.
type Submitter interface {
	SubmitQuiz(ctx context.Context, token string, req *model.SubmissionRequest) (*model.SubmissionResult, error)
}

// Confirmer asks the student whether to submit with unanswered questions.
type Confirmer interface {
	ConfirmUnanswered(ctx context.Context, unanswered int) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, unanswered int) (bool, error)

func (f ConfirmFunc) ConfirmUnanswered(ctx context.Context, unanswered int) (bool, error) {
	return f(ctx, unanswered)
}

// Options configures a Controller.
type Options struct {
	Identity  Identity
	Quiz      *model.Quiz
	Store     store.Store
	Submitter Submitter
	// Confirmer defaults to declining, so a bare Submit never sends an
	// attempt with blanks while time remains.
	Confirmer        Confirmer
	Clock            Clock
	QuestionsPerPage int
	Log              zerolog.Logger
}

// Controller owns the lifecycle of one attempt. It is safe for concurrent use.
type Controller struct {
	identity  Identity
	quiz      *model.Quiz
	key       string
	store     store.Store
	submitter Submitter
	confirmer Confirmer
	clock     Clock
	pager     Pager
	log       zerolog.Logger

	mu        sync.Mutex
	state     State
	startTime time.Time
	answers   map[int64]model.Answer
	timeLeft  int
	result    *model.QuizResult

	stopTick context.CancelFunc
	tickDone chan struct{}
	done     chan struct{}
	closed   bool

	subMu       sync.Mutex
	subscribers map[chan Event]struct{}
}

// New validates opts and returns an UNSTARTED controller.
func New(opts Options) (*Controller, error) {
	if opts.Quiz == nil || opts.Quiz.TimeLimit <= 0 || len(opts.Quiz.Questions) == 0 {
		return nil, ErrInvalidQuiz
	}
	if opts.Identity.StudentID == "" {
		return nil, errors.New("student id is required")
	}
	if opts.Store == nil || opts.Submitter == nil {
		return nil, errors.New("store and submitter are required")
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Confirmer == nil {
		opts.Confirmer = ConfirmFunc(func(context.Context, int) (bool, error) { return false, nil })
	}

	key := config.CacheKey.QuizProgressKey(opts.Quiz.ID, opts.Identity.StudentID)

	return &Controller{
		identity:  opts.Identity,
		quiz:      opts.Quiz,
		key:       key,
		store:     opts.Store,
		submitter: opts.Submitter,
		confirmer: opts.Confirmer,
		clock:     opts.Clock,
		pager:     NewPager(len(opts.Quiz.Questions), opts.QuestionsPerPage),
		log: opts.Log.With().
			Str("component", "quiz_session").
			Int64("quiz_id", opts.Quiz.ID).
			Str("student_id", opts.Identity.StudentID).
			Logger(),
		state:       StateUnstarted,
		answers:     make(map[int64]model.Answer),
		done:        make(chan struct{}),
		subscribers: make(map[chan Event]struct{}),
	}, nil
}

// Key returns the progress key of this attempt.
func (c *Controller) Key() string { return c.key }

// Quiz returns the quiz definition.
func (c *Controller) Quiz() *model.Quiz { return c.quiz }

// Pager returns the question pager.
func (c *Controller) Pager() Pager { return c.pager }

// Done is closed once the attempt has been submitted successfully.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Start restores saved progress or initializes a fresh attempt, then starts
// the countdown. A restored attempt whose time has run out is submitted
// immediately in the background. Calling Start again is a no-op.
//
// When saved progress cannot be read, Start returns ErrStoreUnavailable and
// leaves the attempt UNSTARTED so the stored entry is never overwritten.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateUnstarted {
		c.mu.Unlock()
		return nil
	}

	if err := c.restoreOrInitLocked(ctx); err != nil {
		c.mu.Unlock()
		c.log.Error().Err(err).Msg("Cannot read saved progress")
		return err
	}
	c.state = StateActive
	c.saveLocked(ctx)

	expired := c.timeLeft == 0
	if !expired {
		c.startCountdownLocked()
	}
	left := c.timeLeft
	c.mu.Unlock()

	c.log.Info().Int("time_left", left).Msg("Session active")

	if expired {
		go c.autoSubmit()
	}
	return nil
}

func (c *Controller) restoreOrInitLocked(ctx context.Context) error {
	var saved model.Progress
	err := store.GetJSON(ctx, c.store, c.key, &saved)

	var corrupt *store.CorruptError
	switch {
	case err == nil && saved.StartTime != nil && !saved.StartTime.IsZero():
		c.startTime = saved.StartTime.UTC()
		c.timeLeft = c.remainingLocked(c.clock.Now())
		for qid, a := range saved.Answers {
			c.answers[qid] = a
		}
		c.log.Info().
			Time("start_time", c.startTime).
			Int("answers", len(c.answers)).
			Msg("Restored saved progress")
		return nil

	case err == nil, errors.As(err, &corrupt):
		c.log.Warn().Err(err).Msg("Discarding corrupt saved progress")
		if delErr := c.store.Delete(ctx, c.key); delErr != nil {
			c.log.Warn().Err(delErr).Msg("Failed to delete corrupt progress")
		}

	case errors.Is(err, store.ErrNotFound):

	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	c.startTime = c.clock.Now().UTC()
	c.timeLeft = c.limitSeconds()
	return nil
}

// SetAnswer records the answer for a question and autosaves.
func (c *Controller) SetAnswer(ctx context.Context, questionID int64, answer model.Answer) error {
	if !c.quiz.HasQuestion(questionID) {
		return ErrUnknownQuestion
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateUnstarted:
		return ErrNotStarted
	case StateSubmitting:
		return ErrSubmitInProgress
	case StateSubmitted:
		return ErrAlreadySubmitted
	}

	c.answers[questionID] = answer
	c.saveLocked(ctx)
	return nil
}

// Close stops the countdown for good. A submission in flight still
// completes, but a failed one no longer restarts the countdown. Close is
// safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopCountdownLocked()
	done := c.tickDone
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Countdown
// ────────────────────────────────────────────────────────────────────────────

func (c *Controller) startCountdownLocked() {
	if c.closed || c.stopTick != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	ticker := c.clock.NewTicker(time.Second)
	done := make(chan struct{})
	c.stopTick = cancel
	c.tickDone = done

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				if ctx.Err() != nil {
					return
				}
				if c.tick() {
					return
				}
			}
		}
	}()
}

// stopCountdownLocked cancels the countdown without waiting for it, so it
// may be called from the countdown goroutine itself.
func (c *Controller) stopCountdownLocked() {
	if c.stopTick != nil {
		c.stopTick()
		c.stopTick = nil
	}
}

// tick advances the countdown by one second. It reports true when the
// countdown has finished.
func (c *Controller) tick() bool {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return true
	}

	left := c.timeLeft - 1
	if derived := c.remainingLocked(c.clock.Now()); derived < left {
		left = derived
	}
	if left < 0 {
		left = 0
	}
	c.timeLeft = left
	c.mu.Unlock()

	c.publish(Event{Type: EventTick, TimeLeft: left})

	if left == 0 {
		go c.autoSubmit()
		return true
	}
	return false
}

func (c *Controller) autoSubmit() {
	c.log.Info().Msg("Time is up, submitting automatically")
	if _, err := c.Submit(context.Background()); err != nil &&
		!errors.Is(err, ErrSubmitInProgress) && !errors.Is(err, ErrAlreadySubmitted) {
		c.log.Error().Err(err).Msg("Automatic submission failed")
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Submission
// ────────────────────────────────────────────────────────────────────────────

// Submit submits the attempt using the configured Confirmer.
func (c *Controller) Submit(ctx context.Context) (*model.QuizResult, error) {
	return c.SubmitWith(ctx, c.confirmer)
}

// SubmitWith submits the attempt, asking confirmer when time remains and
// some questions are unanswered. Concurrent calls collapse to one network
// submission; the losers get ErrSubmitInProgress or ErrAlreadySubmitted.
func (c *Controller) SubmitWith(ctx context.Context, confirmer Confirmer) (*model.QuizResult, error) {
	c.mu.Lock()
	switch c.state {
	case StateUnstarted:
		c.mu.Unlock()
		return nil, ErrNotStarted
	case StateSubmitting:
		c.mu.Unlock()
		return nil, ErrSubmitInProgress
	case StateSubmitted:
		c.mu.Unlock()
		return nil, ErrAlreadySubmitted
	}

	c.state = StateSubmitting
	c.stopCountdownLocked()
	answers := c.normalizedAnswersLocked()
	timeLeft := c.timeLeft
	startTime := c.startTime
	c.mu.Unlock()

	if timeLeft > 0 {
		if unanswered := countEmpty(answers); unanswered > 0 {
			ok, err := confirmer.ConfirmUnanswered(ctx, unanswered)
			if err != nil {
				c.resume(true)
				return nil, fmt.Errorf("confirm submission: %w", err)
			}
			if !ok {
				c.resume(true)
				return nil, ErrSubmitCancelled
			}
		}
	}

	req := &model.SubmissionRequest{
		QuizID:    c.quiz.ID,
		StudentID: c.identity.StudentID,
		StartAt:   startTime,
		EndAt:     c.clock.Now().UTC(),
		Answers:   answers,
	}

	res, err := c.submitter.SubmitQuiz(ctx, c.identity.Token, req)
	if err != nil {
		c.log.Error().Err(err).Msg("Submission failed, session kept for retry")
		c.resume(false)
		c.publish(Event{Type: EventSubmitFailed, TimeLeft: c.TimeLeft(), Error: err.Error()})
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	result := model.NewQuizResult(c.quiz, res)

	c.mu.Lock()
	c.state = StateSubmitted
	c.result = result
	if delErr := c.store.Delete(ctx, c.key); delErr != nil {
		c.log.Warn().Err(delErr).Msg("Failed to clear saved progress")
	}
	close(c.done)
	c.mu.Unlock()

	c.log.Info().
		Float64("score", res.Score).
		Int("total", len(c.quiz.Questions)).
		Msg("Quiz submitted")

	c.publish(Event{Type: EventSubmitted, Result: result})
	return result, nil
}

// resume returns a SUBMITTING session to ACTIVE. The countdown restarts if
// time remains; autoExpire triggers automatic submission when the deadline
// passed while the submission was pending (not after a failed network
// call, which the student retries by hand).
func (c *Controller) resume(autoExpire bool) {
	c.mu.Lock()
	if c.state != StateSubmitting {
		c.mu.Unlock()
		return
	}
	c.state = StateActive
	if derived := c.remainingLocked(c.clock.Now()); derived < c.timeLeft {
		c.timeLeft = derived
	}
	expired := c.timeLeft == 0
	closed := c.closed
	if !expired {
		c.startCountdownLocked()
	}
	c.mu.Unlock()

	if expired && autoExpire && !closed {
		go c.autoSubmit()
	}
}

// normalizedAnswersLocked builds the submission payload: one entry per
// question, each a list of choices.
func (c *Controller) normalizedAnswersLocked() map[int64][]string {
	out := make(map[int64][]string, len(c.quiz.Questions))
	for _, q := range c.quiz.Questions {
		out[q.ID] = c.answers[q.ID].Normalize()
	}
	return out
}

func countEmpty(answers map[int64][]string) int {
	n := 0
	for _, a := range answers {
		if len(a) == 0 {
			n++
		}
	}
	return n
}

// ────────────────────────────────────────────────────────────────────────────
// Persistence and time
// ────────────────────────────────────────────────────────────────────────────

// saveLocked overwrites the stored progress. Failures are logged only:
// local persistence is best effort.
func (c *Controller) saveLocked(ctx context.Context) {
	if c.state == StateSubmitted {
		return
	}
	start := c.startTime
	answers := make(map[int64]model.Answer, len(c.answers))
	for k, v := range c.answers {
		answers[k] = v
	}
	progress := model.Progress{Answers: answers, StartTime: &start, QuizID: c.quiz.ID}
	if err := store.SetJSON(ctx, c.store, c.key, progress); err != nil {
		c.log.Warn().Err(err).Msg("Autosave failed")
	}
}

func (c *Controller) limitSeconds() int {
	return int(c.quiz.TimeLimitDuration() / time.Second)
}

// remainingLocked derives the seconds left at now from the start time,
// clamped to [0, limit].
func (c *Controller) remainingLocked(now time.Time) int {
	elapsed := int(now.Sub(c.startTime) / time.Second)
	left := c.limitSeconds() - elapsed
	if left < 0 {
		return 0
	}
	if left > c.limitSeconds() {
		return c.limitSeconds()
	}
	return left
}
