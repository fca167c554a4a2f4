package model

// QuestionType distinguishes single-choice from multi-choice questions.
type QuestionType string

const (
	QuestionTypeSingle   QuestionType = "SINGLE"
	QuestionTypeMultiple QuestionType = "MULTIPLE"
)

// Question represents a single quiz question as served by the backend.
type Question struct {
	ID      int64        `json:"id"`
	Prompt  string       `json:"prompt" binding:"required,max=2000"`
	Choices []string     `json:"choices" binding:"min=2,unique,dive,required"`
	Type    QuestionType `json:"type" binding:"omitempty,oneof=SINGLE MULTIPLE"`
}

// IsMultiple reports whether more than one choice may be selected.
func (q *Question) IsMultiple() bool {
	return q.Type == QuestionTypeMultiple
}
