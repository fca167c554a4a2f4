package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/store"
	"github.com/stemsi/quizdesk/internal/validator"
	"github.com/stretchr/testify/require"
)

type stubAuthor struct {
	extracted []model.Question
	err       error
	calls     []string
	metaID    int64
	meta      *model.QuizMetaUpdate
	replaced  []model.Question
	created   *model.QuizDraft
}

func (s *stubAuthor) ExtractQuestions(_ context.Context, _ string, _ []model.UploadFile) ([]model.Question, error) {
	s.calls = append(s.calls, "extract")
	return s.extracted, s.err
}

func (s *stubAuthor) CreateQuiz(_ context.Context, _ string, d *model.QuizDraft) (*model.Quiz, error) {
	s.calls = append(s.calls, "create")
	s.created = d
	if s.err != nil {
		return nil, s.err
	}
	return &model.Quiz{ID: 77, Title: d.Title, TimeLimit: d.TimeLimit, Questions: d.Questions}, nil
}

func (s *stubAuthor) ApproveQuiz(context.Context, string, *model.QuizDraft) error {
	s.calls = append(s.calls, "approve")
	return s.err
}

func (s *stubAuthor) UpdateQuizMeta(_ context.Context, _ string, id int64, meta *model.QuizMetaUpdate) error {
	s.calls = append(s.calls, "meta")
	s.metaID = id
	s.meta = meta
	return s.err
}

func (s *stubAuthor) ReplaceQuizContent(_ context.Context, _ string, _ int64, qs []model.Question) error {
	s.calls = append(s.calls, "content")
	s.replaced = qs
	return s.err
}

func (s *stubAuthor) ListTeacherClasses(context.Context, string, string) ([]model.TeacherClass, error) {
	return nil, s.err
}

var teacher = Teacher{ID: "t-1", Token: "tok"}

func sampleQuestions() []model.Question {
	return []model.Question{
		{ID: 1, Prompt: "2+2?", Choices: []string{"3", "4"}},
		{ID: 2, Prompt: "Pick primes", Choices: []string{"2", "4", "5"}, Type: model.QuestionTypeMultiple},
	}
}

func validDraft() *model.QuizDraft {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	return &model.QuizDraft{
		Title:     "Arithmetic",
		ClassID:   3,
		TimeLimit: 45,
		StartDate: &start,
		Questions: sampleQuestions(),
	}
}

func newAuthoring(backend *stubAuthor) (*AuthoringService, *store.Memory) {
	validator.Setup()
	mem := store.NewMemory()
	return NewAuthoringService(backend, mem, validator.Struct, zerolog.Nop()), mem
}

func TestEndDate(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	require.Equal(t, start.Add(45*time.Minute), *EndDate(&start, 45))
	require.Nil(t, EndDate(&start, 0))
	require.Nil(t, EndDate(nil, 45))
}

func TestExtractSavesDraft(t *testing.T) {
	backend := &stubAuthor{extracted: sampleQuestions()}
	svc, _ := newAuthoring(backend)
	ctx := context.Background()

	require.ErrorIs(t, ignoreDraft(svc.Extract(ctx, teacher, nil)), ErrNoFiles)

	require.NoError(t, svc.SaveDraft(ctx, teacher.ID, &model.QuizDraft{Title: "Kept title"}))
	draft, err := svc.Extract(ctx, teacher, []model.UploadFile{{Name: "unit1.pdf", Content: []byte("%PDF")}})
	require.NoError(t, err)
	require.Equal(t, "Kept title", draft.Title)
	require.Equal(t, "unit1.pdf", draft.FileName)
	require.Len(t, draft.Questions, 2)

	stored, err := svc.GetDraft(ctx, teacher.ID)
	require.NoError(t, err)
	require.Equal(t, draft.Questions, stored.Questions)
	require.Equal(t, "t-1", stored.CreatedBy)
}

func TestExtractNothingFound(t *testing.T) {
	svc, _ := newAuthoring(&stubAuthor{})
	_, err := svc.Extract(context.Background(), teacher, []model.UploadFile{{Name: "a.docx"}})
	require.ErrorIs(t, err, ErrNoQuestionsExtracted)

	_, err = svc.GetDraft(context.Background(), teacher.ID)
	require.ErrorIs(t, err, ErrDraftNotFound)
}

func TestCorruptDraftIsDiscarded(t *testing.T) {
	svc, mem := newAuthoring(&stubAuthor{})
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, "quiz_draft_teacher_t-1", []byte("{oops")))

	_, err := svc.GetDraft(ctx, teacher.ID)
	require.ErrorIs(t, err, ErrDraftNotFound)
	_, err = mem.Get(ctx, "quiz_draft_teacher_t-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPublishCreateClearsDraft(t *testing.T) {
	backend := &stubAuthor{}
	svc, _ := newAuthoring(backend)
	ctx := context.Background()
	require.NoError(t, svc.SaveDraft(ctx, teacher.ID, validDraft()))

	quiz, err := svc.Publish(ctx, teacher, model.PublishModeCreate)
	require.NoError(t, err)
	require.Equal(t, int64(77), quiz.ID)
	require.Equal(t, []string{"create"}, backend.calls)
	require.Equal(t, time.Date(2025, 3, 1, 8, 45, 0, 0, time.UTC), *backend.created.EndDate)

	_, err = svc.GetDraft(ctx, teacher.ID)
	require.ErrorIs(t, err, ErrDraftNotFound)
}

func TestPublishEditUpdatesMetaThenContent(t *testing.T) {
	backend := &stubAuthor{}
	svc, _ := newAuthoring(backend)
	ctx := context.Background()

	d := validDraft()
	require.NoError(t, svc.SaveDraft(ctx, teacher.ID, d))
	_, err := svc.Publish(ctx, teacher, model.PublishModeEdit)
	require.ErrorIs(t, err, ErrQuizIDRequired)

	d.ID = 9
	require.NoError(t, svc.SaveDraft(ctx, teacher.ID, d))
	_, err = svc.Publish(ctx, teacher, model.PublishModeEdit)
	require.NoError(t, err)
	require.Equal(t, []string{"meta", "content"}, backend.calls)
	require.Equal(t, int64(9), backend.metaID)
	require.Equal(t, "Arithmetic", backend.meta.Title)
	require.Len(t, backend.replaced, 2)

	// Edits keep the draft for further changes.
	_, err = svc.GetDraft(ctx, teacher.ID)
	require.NoError(t, err)
}

func TestPublishApprove(t *testing.T) {
	backend := &stubAuthor{}
	svc, _ := newAuthoring(backend)
	ctx := context.Background()
	require.NoError(t, svc.SaveDraft(ctx, teacher.ID, validDraft()))

	_, err := svc.Publish(ctx, teacher, model.PublishModeApprove)
	require.NoError(t, err)
	require.Equal(t, []string{"approve"}, backend.calls)

	_, err = svc.Publish(ctx, teacher, model.PublishMode("archive"))
	require.ErrorIs(t, err, ErrUnknownPublishMode)
}

func TestPublishRejectsInvalidDraft(t *testing.T) {
	backend := &stubAuthor{}
	svc, _ := newAuthoring(backend)
	ctx := context.Background()

	d := validDraft()
	d.Title = ""
	d.TimeLimit = 0
	d.Questions[0].Choices = []string{"only one"}
	require.NoError(t, svc.SaveDraft(ctx, teacher.ID, d))

	_, err := svc.Publish(ctx, teacher, model.PublishModeCreate)
	require.Error(t, err)
	fields := validator.TranslateErrors(err)
	require.Contains(t, fields, "title")
	require.Contains(t, fields, "timeLimit")
	require.Contains(t, fields, "questions[0].choices")
	require.Empty(t, backend.calls)
}

func TestPublishBackendFailureKeepsDraft(t *testing.T) {
	backend := &stubAuthor{err: errors.New("500")}
	svc, _ := newAuthoring(backend)
	ctx := context.Background()
	require.NoError(t, svc.SaveDraft(ctx, teacher.ID, validDraft()))

	_, err := svc.Publish(ctx, teacher, model.PublishModeCreate)
	require.Error(t, err)
	_, err = svc.GetDraft(ctx, teacher.ID)
	require.NoError(t, err)
}

func ignoreDraft(_ *model.QuizDraft, err error) error { return err }
