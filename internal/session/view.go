package session

import (
	"time"

	"github.com/stemsi/quizdesk/internal/model"
)

// View is a point-in-time copy of the attempt state.
type View struct {
	QuizID     int64                  `json:"quiz_id"`
	Title      string                 `json:"title"`
	StudentID  string                 `json:"student_id"`
	State      State                  `json:"state"`
	StartTime  time.Time              `json:"start_time"`
	TimeLeft   int                    `json:"time_left"`
	Clock      string                 `json:"clock"`
	Answers    map[int64]model.Answer `json:"answers"`
	Answered   int                    `json:"answered"`
	Total      int                    `json:"total"`
	Progress   float64                `json:"progress"`
	TotalPages int                    `json:"total_pages"`
	Result     *model.QuizResult      `json:"result,omitempty"`
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TimeLeft returns the remaining seconds.
func (c *Controller) TimeLeft() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeLeft
}

// StartTime returns when the attempt began (zero before Start).
func (c *Controller) StartTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startTime
}

// Deadline returns when the attempt runs out of time (zero before Start).
func (c *Controller) Deadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateUnstarted {
		return time.Time{}
	}
	return c.startTime.Add(c.quiz.TimeLimitDuration())
}

// Answers returns a copy of the recorded answers.
func (c *Controller) Answers() map[int64]model.Answer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyAnswersLocked()
}

// Result returns the submission result once SUBMITTED.
func (c *Controller) Result() *model.QuizResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Unanswered returns how many questions have no selected choice.
func (c *Controller) Unanswered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.quiz.Questions) - c.answeredLocked()
}

// Progress returns the answered share of questions as a percentage.
func (c *Controller) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progressLocked()
}

// Snapshot returns a consistent View of the attempt.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		QuizID:     c.quiz.ID,
		Title:      c.quiz.Title,
		StudentID:  c.identity.StudentID,
		State:      c.state,
		StartTime:  c.startTime,
		TimeLeft:   c.timeLeft,
		Clock:      model.FormatClock(c.timeLeft),
		Answers:    c.copyAnswersLocked(),
		Answered:   c.answeredLocked(),
		Total:      len(c.quiz.Questions),
		Progress:   c.progressLocked(),
		TotalPages: c.pager.TotalPages(),
		Result:     c.result,
	}
}

// Page returns the questions on page n.
func (c *Controller) Page(n int) []model.Question {
	start, end := c.pager.Bounds(n)
	return c.quiz.Questions[start:end]
}

func (c *Controller) copyAnswersLocked() map[int64]model.Answer {
	out := make(map[int64]model.Answer, len(c.answers))
	for k, v := range c.answers {
		out[k] = v
	}
	return out
}

func (c *Controller) answeredLocked() int {
	n := 0
	for _, q := range c.quiz.Questions {
		if a, ok := c.answers[q.ID]; ok && !a.IsEmpty() {
			n++
		}
	}
	return n
}

func (c *Controller) progressLocked() float64 {
	if len(c.quiz.Questions) == 0 {
		return 0
	}
	return float64(c.answeredLocked()) / float64(len(c.quiz.Questions)) * 100
}
