package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/config"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/store"
)

// Authoring errors
var (
	ErrNoFiles              = errors.New("at least one file is required")
	ErrNoQuestionsExtracted = errors.New("no questions could be extracted from the uploaded files")
	ErrDraftNotFound        = errors.New("no draft saved")
	ErrUnknownPublishMode   = errors.New("unknown publish mode")
	ErrQuizIDRequired       = errors.New("quiz id is required to edit")
)

// QuizAuthor is the backend surface used by the teacher flow.
type QuizAuthor interface {
	ExtractQuestions(ctx context.Context, token string, files []model.UploadFile) ([]model.Question, error)
	CreateQuiz(ctx context.Context, token string, draft *model.QuizDraft) (*model.Quiz, error)
	ApproveQuiz(ctx context.Context, token string, draft *model.QuizDraft) error
	UpdateQuizMeta(ctx context.Context, token string, quizID int64, meta *model.QuizMetaUpdate) error
	ReplaceQuizContent(ctx context.Context, token string, quizID int64, questions []model.Question) error
	ListTeacherClasses(ctx context.Context, token, teacherID string) ([]model.TeacherClass, error)
}

// Teacher identifies the caller of the authoring flow.
type Teacher struct {
	ID    string
	Token string
}

// AuthoringService drives extract → draft → preview → publish.
type AuthoringService struct {
	backend  QuizAuthor
	store    store.Store
	validate func(interface{}) error
	log      zerolog.Logger
}

// NewAuthoringService creates an AuthoringService. validate checks a draft's
// binding tags before publishing.
func NewAuthoringService(backend QuizAuthor, st store.Store, validate func(interface{}) error, log zerolog.Logger) *AuthoringService {
	return &AuthoringService{
		backend:  backend,
		store:    st,
		validate: validate,
		log:      log.With().Str("component", "authoring_service").Logger(),
	}
}

// EndDate returns start plus limit minutes, or nil when either is unusable.
func EndDate(start *time.Time, limitMinutes int) *time.Time {
	if start == nil || start.IsZero() || limitMinutes <= 0 {
		return nil
	}
	end := start.Add(time.Duration(limitMinutes) * time.Minute)
	return &end
}

// Extract uploads files for question extraction and stores the questions in
// the teacher's draft, keeping any metadata already entered.
func (s *AuthoringService) Extract(ctx context.Context, t Teacher, files []model.UploadFile) (*model.QuizDraft, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	questions, err := s.backend.ExtractQuestions(ctx, t.Token, files)
	if err != nil {
		return nil, fmt.Errorf("extract questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestionsExtracted
	}

	draft, err := s.GetDraft(ctx, t.ID)
	if err != nil && !errors.Is(err, ErrDraftNotFound) {
		return nil, err
	}
	if draft == nil {
		draft = &model.QuizDraft{}
	}
	draft.Questions = questions
	if draft.FileName == "" {
		draft.FileName = files[0].Name
	}

	if err := s.SaveDraft(ctx, t.ID, draft); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("teacher_id", t.ID).
		Int("files", len(files)).
		Int("questions", len(questions)).
		Msg("Questions extracted")
	return draft, nil
}

// GetDraft loads the teacher's draft. A corrupt draft is discarded and
// reported as ErrDraftNotFound.
func (s *AuthoringService) GetDraft(ctx context.Context, teacherID string) (*model.QuizDraft, error) {
	key := config.CacheKey.TeacherDraftKey(teacherID)

	var draft model.QuizDraft
	err := store.GetJSON(ctx, s.store, key, &draft)

	var corrupt *store.CorruptError
	switch {
	case err == nil:
		return &draft, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrDraftNotFound
	case errors.As(err, &corrupt):
		s.log.Warn().Err(err).Str("teacher_id", teacherID).Msg("Discarding corrupt draft")
		_ = s.store.Delete(ctx, key)
		return nil, ErrDraftNotFound
	default:
		return nil, fmt.Errorf("load draft: %w", err)
	}
}

// SaveDraft stores draft for the teacher. The end date is derived from the
// start date and time limit when both are set.
func (s *AuthoringService) SaveDraft(ctx context.Context, teacherID string, draft *model.QuizDraft) error {
	if end := EndDate(draft.StartDate, draft.TimeLimit); end != nil {
		draft.EndDate = end
	}
	if draft.CreatedBy == "" {
		draft.CreatedBy = teacherID
	}
	if err := store.SetJSON(ctx, s.store, config.CacheKey.TeacherDraftKey(teacherID), draft); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// DeleteDraft removes the teacher's draft.
func (s *AuthoringService) DeleteDraft(ctx context.Context, teacherID string) error {
	return s.store.Delete(ctx, config.CacheKey.TeacherDraftKey(teacherID))
}

// Publish sends the saved draft to the backend according to mode. A
// successful create clears the draft.
func (s *AuthoringService) Publish(ctx context.Context, t Teacher, mode model.PublishMode) (*model.Quiz, error) {
	draft, err := s.GetDraft(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(draft); err != nil {
		return nil, err
	}

	log := s.log.With().Str("teacher_id", t.ID).Str("mode", string(mode)).Logger()

	switch mode {
	case model.PublishModeCreate:
		quiz, err := s.backend.CreateQuiz(ctx, t.Token, draft)
		if err != nil {
			return nil, fmt.Errorf("create quiz: %w", err)
		}
		if err := s.DeleteDraft(ctx, t.ID); err != nil {
			log.Warn().Err(err).Msg("Failed to clear draft after create")
		}
		log.Info().Int64("quiz_id", quiz.ID).Msg("Quiz created")
		return quiz, nil

	case model.PublishModeEdit:
		if draft.ID == 0 {
			return nil, ErrQuizIDRequired
		}
		meta := &model.QuizMetaUpdate{
			Title:       draft.Title,
			ClassID:     draft.ClassID,
			TimeLimit:   draft.TimeLimit,
			Description: draft.Description,
			StartDate:   draft.StartDate,
			EndDate:     draft.EndDate,
		}
		if err := s.backend.UpdateQuizMeta(ctx, t.Token, draft.ID, meta); err != nil {
			return nil, fmt.Errorf("update quiz: %w", err)
		}
		if len(draft.Questions) > 0 {
			if err := s.backend.ReplaceQuizContent(ctx, t.Token, draft.ID, draft.Questions); err != nil {
				return nil, fmt.Errorf("replace quiz content: %w", err)
			}
		}
		log.Info().Int64("quiz_id", draft.ID).Msg("Quiz updated")
		return draftQuiz(draft), nil

	case model.PublishModeApprove:
		if err := s.backend.ApproveQuiz(ctx, t.Token, draft); err != nil {
			return nil, fmt.Errorf("approve quiz: %w", err)
		}
		log.Info().Msg("Quiz approved")
		return draftQuiz(draft), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPublishMode, mode)
	}
}

// Classes lists the classes the teacher may assign quizzes to.
func (s *AuthoringService) Classes(ctx context.Context, t Teacher) ([]model.TeacherClass, error) {
	classes, err := s.backend.ListTeacherClasses(ctx, t.Token, t.ID)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	if classes == nil {
		classes = []model.TeacherClass{}
	}
	return classes, nil
}

func draftQuiz(d *model.QuizDraft) *model.Quiz {
	return &model.Quiz{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Subject:     d.Subject,
		TimeLimit:   d.TimeLimit,
		Questions:   d.Questions,
	}
}
