package model

import (
	"fmt"
	"time"
)

// Progress is the locally persisted state of an in-progress attempt.
// The countdown is never stored; it is always derived from StartTime.
type Progress struct {
	Answers   map[int64]Answer `json:"answers"`
	StartTime *time.Time       `json:"startTime"`
	QuizID    int64            `json:"quizId"`
}

// SubmissionRequest is the body of the backend submit endpoint.
type SubmissionRequest struct {
	QuizID    int64              `json:"quizId"`
	StudentID string             `json:"studentId"`
	StartAt   time.Time          `json:"startAt"`
	EndAt     time.Time          `json:"endAt"`
	Answers   map[int64][]string `json:"answers"`
}

// SubmissionResult is the backend's response to a successful submission.
type SubmissionResult struct {
	StudentName string  `json:"studentName"`
	ClassName   string  `json:"className"`
	SubjectName string  `json:"subjectName"`
	StartAt     string  `json:"startAt"`
	EndAt       string  `json:"endAt"`
	Score       float64 `json:"score"`
}

// QuizResult is the display view shown after submission.
type QuizResult struct {
	Title          string        `json:"title"`
	StudentName    string        `json:"studentName"`
	ClassName      string        `json:"className"`
	Subject        string        `json:"subject"`
	Duration       time.Duration `json:"-"`
	DurationText   string        `json:"duration"`
	StartTime      time.Time     `json:"startTime"`
	EndTime        time.Time     `json:"endTime"`
	Score          float64       `json:"score"`
	TotalQuestions int           `json:"totalQuestions"`
}

// NewQuizResult builds the result view from the server-reported timing.
func NewQuizResult(quiz *Quiz, res *SubmissionResult) *QuizResult {
	start, _ := ParseTimestamp(res.StartAt)
	end, _ := ParseTimestamp(res.EndAt)

	var d time.Duration
	if !start.IsZero() && !end.IsZero() && end.After(start) {
		d = end.Sub(start).Truncate(time.Second)
	}

	return &QuizResult{
		Title:          quiz.Title,
		StudentName:    res.StudentName,
		ClassName:      res.ClassName,
		Subject:        res.SubjectName,
		Duration:       d,
		DurationText:   FormatDuration(d),
		StartTime:      start,
		EndTime:        end,
		Score:          res.Score,
		TotalQuestions: len(quiz.Questions),
	}
}

// FormatDuration renders d as "M min S sec".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d min %d sec", secs/60, secs%60)
}

// FormatClock renders a countdown as MM:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		return "00:00"
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
