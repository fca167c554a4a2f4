package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuizProgressKey returns the store key for a student's in-progress attempt.
// One key per (quiz, student) pair keeps at most one active attempt.
func (r *CacheKeyStruct) QuizProgressKey(quizID int64, studentID string) string {
	return fmt.Sprintf("quiz_progress_%d_student_%s", quizID, studentID)
}

// TeacherDraftKey returns the store key for a teacher's unpublished quiz draft
func (r *CacheKeyStruct) TeacherDraftKey(teacherID string) string {
	return fmt.Sprintf("quiz_draft_teacher_%s", teacherID)
}

var CacheKey = NewCacheKeyStruct()
