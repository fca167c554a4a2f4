package model

import "time"

// PublishMode selects what the teacher's primary action does with a draft.
type PublishMode string

const (
	PublishModeCreate  PublishMode = "create"
	PublishModeEdit    PublishMode = "edit"
	PublishModeApprove PublishMode = "approve"
)

// QuizDraft is a teacher's quiz before it is published. Drafts are kept in
// the local store between the extract and preview steps.
type QuizDraft struct {
	ID          int64      `json:"id,omitempty"`
	Title       string     `json:"title" binding:"required,min=3,max=255"`
	Description string     `json:"description,omitempty" binding:"max=2000"`
	ClassID     int64      `json:"classId" binding:"required"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	TimeLimit   int        `json:"timeLimit" binding:"required,min=1,max=480"`
	StartDate   *time.Time `json:"startDate" binding:"required"`
	EndDate     *time.Time `json:"endDate" binding:"required,gtefield=StartDate"`
	FileName    string     `json:"fileName,omitempty"`
	Subject     string     `json:"subject,omitempty"`
	Questions   []Question `json:"questions" binding:"required,min=1,dive"`
}

// QuizMetaUpdate is the metadata half of an edit.
type QuizMetaUpdate struct {
	Title       string     `json:"title"`
	ClassID     int64      `json:"classId"`
	TimeLimit   int        `json:"timeLimit"`
	Description string     `json:"description,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
}

// ReplaceContentRequest replaces every question of a quiz.
type ReplaceContentRequest struct {
	Questions []Question `json:"questions"`
}

// ExtractedQuestions is the backend's document extraction response.
type ExtractedQuestions struct {
	Questions []Question `json:"questions"`
	Message   string     `json:"message,omitempty"`
}

// TeacherClass is a class a teacher may assign quizzes to.
type TeacherClass struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// UploadFile is one document sent for question extraction.
type UploadFile struct {
	Name    string
	Content []byte
}
