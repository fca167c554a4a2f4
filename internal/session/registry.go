package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/config"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/store"
	"golang.org/x/sync/singleflight"
)

// ExpiredGrace is how long an attempt whose time ran out without a
// successful submission stays tracked while nobody is watching it. Its
// progress stays in the store, so the next Open restores and submits it.
const ExpiredGrace = 10 * time.Minute

// QuizSource fetches quiz definitions.
type QuizSource interface {
	GetQuiz(ctx context.Context, token string, quizID int64) (*model.Quiz, error)
}

// Registry keeps at most one live Controller per (quiz, student).
type Registry struct {
	quizzes          QuizSource
	store            store.Store
	submitter        Submitter
	clock            Clock
	questionsPerPage int
	log              zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Controller
	group    singleflight.Group
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Quizzes          QuizSource
	Store            store.Store
	Submitter        Submitter
	Clock            Clock
	QuestionsPerPage int
	Log              zerolog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	return &Registry{
		quizzes:          opts.Quizzes,
		store:            opts.Store,
		submitter:        opts.Submitter,
		clock:            opts.Clock,
		questionsPerPage: opts.QuestionsPerPage,
		log:              opts.Log,
		sessions:         make(map[string]*Controller),
	}
}

// Open returns the live attempt for (quizID, student), fetching the quiz
// and starting a restored or fresh attempt when none is live or the tracked
// one was submitted. Concurrent opens of the same attempt share one fetch,
// which outlives any single caller's cancellation.
func (r *Registry) Open(ctx context.Context, id Identity, quizID int64) (*Controller, error) {
	key := config.CacheKey.QuizProgressKey(quizID, id.StudentID)
	ctx = context.WithoutCancel(ctx)

	if c, ok := r.live(key); ok {
		return c, nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		if c, ok := r.live(key); ok {
			return c, nil
		}

		quiz, err := r.quizzes.GetQuiz(ctx, id.Token, quizID)
		if err != nil {
			return nil, err
		}

		c, err := New(Options{
			Identity:         id,
			Quiz:             quiz,
			Store:            r.store,
			Submitter:        r.submitter,
			Clock:            r.clock,
			QuestionsPerPage: r.questionsPerPage,
			Log:              r.log,
		})
		if err != nil {
			return nil, fmt.Errorf("open quiz %d: %w", quizID, err)
		}
		if err := c.Start(ctx); err != nil {
			return nil, err
		}

		r.mu.Lock()
		prev := r.sessions[key]
		r.sessions[key] = c
		r.mu.Unlock()
		if prev != nil {
			go prev.Close()
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Controller), nil
}

// Get returns the tracked attempt, if any. A submitted attempt stays
// visible, with its result, until the next Open or Sweep.
func (r *Registry) Get(studentID string, quizID int64) (*Controller, bool) {
	key := config.CacheKey.QuizProgressKey(quizID, studentID)

	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.sessions[key]
	return c, ok
}

// live returns the tracked attempt under key unless it has been submitted.
func (r *Registry) live(key string) (*Controller, bool) {
	r.mu.Lock()
	c, ok := r.sessions[key]
	r.mu.Unlock()
	if !ok || c.State() == StateSubmitted {
		return nil, false
	}
	return c, true
}

// Sweep drops submitted attempts, and unwatched attempts that expired more
// than ExpiredGrace ago, and reports how many were removed.
func (r *Registry) Sweep() int {
	now := r.clock.Now()

	r.mu.Lock()
	var done []*Controller
	for key, c := range r.sessions {
		if c.State() == StateSubmitted || r.abandoned(c, now) {
			delete(r.sessions, key)
			done = append(done, c)
		}
	}
	r.mu.Unlock()

	for _, c := range done {
		c.Close()
	}
	return len(done)
}

func (r *Registry) abandoned(c *Controller, now time.Time) bool {
	if c.State() != StateActive || c.TimeLeft() > 0 || c.Subscribers() > 0 {
		return false
	}
	return now.Sub(c.Deadline()) > ExpiredGrace
}

// Len returns the number of tracked attempts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll stops every countdown. Saved progress is left in the store so
// attempts resume after restart.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Controller)
	r.mu.Unlock()

	for _, c := range sessions {
		c.Close()
	}
	r.log.Info().Int("count", len(sessions)).Msg("Closed all quiz sessions")
}
