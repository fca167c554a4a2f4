package model

import "time"

// Quiz is the read-only quiz definition fetched from the backend.
type Quiz struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	ClassName   string     `json:"className,omitempty"`
	Subject     string     `json:"subject,omitempty"`
	TimeLimit   int        `json:"timeLimit"` // minutes
	Questions   []Question `json:"questions"`
}

// TimeLimitDuration returns the attempt duration.
func (q *Quiz) TimeLimitDuration() time.Duration {
	return time.Duration(q.TimeLimit) * time.Minute
}

// HasQuestion reports whether id belongs to this quiz.
func (q *Quiz) HasQuestion(id int64) bool {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return true
		}
	}
	return false
}

// StudentQuiz is one entry of the student quiz list.
type StudentQuiz struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	ClassName     string   `json:"className,omitempty"`
	TimeLimit     int      `json:"timeLimit,omitempty"`
	TotalQuestion int      `json:"totalQuestion,omitempty"`
	StartDate     string   `json:"startDate,omitempty"`
	EndDate       string   `json:"endDate,omitempty"`
	Subject       string   `json:"subject,omitempty"`
	Submitted     bool     `json:"submitted"`
	Score         *float64 `json:"score,omitempty"`
}
