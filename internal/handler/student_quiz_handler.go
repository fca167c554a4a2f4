package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/middleware"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/response"
	"github.com/stemsi/quizdesk/internal/service"
	"github.com/stemsi/quizdesk/internal/session"
	"github.com/stemsi/quizdesk/internal/validator"
)

// StudentQuizHandler handles the student quiz list and quiz-taking endpoints.
type StudentQuizHandler struct {
	catalog  *service.CatalogService
	sessions *session.Registry
	log      zerolog.Logger
}

// NewStudentQuizHandler creates a new StudentQuizHandler.
func NewStudentQuizHandler(catalog *service.CatalogService, sessions *session.Registry, log zerolog.Logger) *StudentQuizHandler {
	return &StudentQuizHandler{
		catalog:  catalog,
		sessions: sessions,
		log:      log.With().Str("component", "student_quiz_handler").Logger(),
	}
}

// sessionPage is one page of an attempt plus its live state.
type sessionPage struct {
	session.View
	Page      int              `json:"page"`
	Questions []model.Question `json:"questions"`
	HasNext   bool             `json:"has_next"`
}

// ListQuizzes godoc
// GET /api/v1/student/quizzes
// Returns the caller's quizzes grouped by class and tab.
func (h *StudentQuizHandler) ListQuizzes(c *gin.Context) {
	catalog, err := h.catalog.Load(c.Request.Context(), middleware.GetToken(c))
	if err != nil {
		failUpstream(c, h.log, err, response.ErrBackendUnavailable)
		return
	}
	response.Success(c, http.StatusOK, catalog)
}

// OpenSession godoc
// POST /api/v1/student/quizzes/:quiz_id/session
// Restores the saved attempt or starts a new one.
func (h *StudentQuizHandler) OpenSession(c *gin.Context) {
	id, quizID, ok := h.identity(c)
	if !ok {
		return
	}

	ctrl, err := h.sessions.Open(c.Request.Context(), id, quizID)
	if err != nil {
		failOpen(c, h.log, err)
		return
	}

	h.writePage(c, ctrl, http.StatusOK)
}

// GetSession godoc
// GET /api/v1/student/quizzes/:quiz_id/session?page=1
// Returns time left, answers, progress and one page of questions.
func (h *StudentQuizHandler) GetSession(c *gin.Context) {
	ctrl, ok := h.liveSession(c)
	if !ok {
		return
	}
	h.writePage(c, ctrl, http.StatusOK)
}

// SetAnswer godoc
// PUT /api/v1/student/quizzes/:quiz_id/answers/:question_id
// Records one answer and autosaves the attempt.
func (h *StudentQuizHandler) SetAnswer(c *gin.Context) {
	ctrl, ok := h.liveSession(c)
	if !ok {
		return
	}

	questionID, ok := parseIDParam(c, "question_id")
	if !ok {
		return
	}

	var req model.SetAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := ctrl.SetAnswer(c.Request.Context(), questionID, req.Answer); err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"question_id": questionID,
		"answered":    len(ctrl.Quiz().Questions) - ctrl.Unanswered(),
		"progress":    ctrl.Progress(),
	})
}

// Submit godoc
// POST /api/v1/student/quizzes/:quiz_id/submit
// Submits the attempt. With unanswered questions and time remaining the
// caller must resend with confirm_unanswered=true.
func (h *StudentQuizHandler) Submit(c *gin.Context) {
	ctrl, ok := h.liveSession(c)
	if !ok {
		return
	}

	var req model.SubmitQuizRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	unanswered := 0
	confirm := session.ConfirmFunc(func(_ context.Context, n int) (bool, error) {
		unanswered = n
		return req.ConfirmUnanswered, nil
	})

	// A client that hangs up must not abort a submission the backend may
	// already have scored.
	result, err := ctrl.SubmitWith(context.WithoutCancel(c.Request.Context()), confirm)
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, result)
	case errors.Is(err, session.ErrSubmitCancelled):
		response.FailWithDetail(c, http.StatusConflict, response.ErrUnansweredQuestions, "",
			gin.H{"unanswered": unanswered, "time_left": ctrl.TimeLeft()})
	case errors.Is(err, session.ErrSubmitFailed):
		response.FailWithDetail(c, http.StatusBadGateway, response.ErrSubmissionFailed, strings.TrimPrefix(err.Error(), session.ErrSubmitFailed.Error()+": "),
			gin.H{"time_left": ctrl.TimeLeft()})
	default:
		failSession(c, err)
	}
}

// identity reads the caller and the quiz id, writing the failure response
// itself when either is missing.
func (h *StudentQuizHandler) identity(c *gin.Context) (session.Identity, int64, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return session.Identity{}, 0, false
	}
	quizID, ok := parseIDParam(c, "quiz_id")
	if !ok {
		return session.Identity{}, 0, false
	}
	return session.Identity{StudentID: claims.ID(), Token: middleware.GetToken(c)}, quizID, true
}

func (h *StudentQuizHandler) liveSession(c *gin.Context) (*session.Controller, bool) {
	id, quizID, ok := h.identity(c)
	if !ok {
		return nil, false
	}
	ctrl, ok := h.sessions.Get(id.StudentID, quizID)
	if !ok {
		response.Fail(c, http.StatusConflict, response.ErrSessionNotStarted)
		return nil, false
	}
	return ctrl, true
}

func (h *StudentQuizHandler) writePage(c *gin.Context, ctrl *session.Controller, status int) {
	pager := ctrl.Pager()

	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		page = n
	}
	idx := page - 1

	view := ctrl.Snapshot()
	response.SuccessWithPagination(c, status, sessionPage{
		View:      view,
		Page:      page,
		Questions: ctrl.Page(idx),
		HasNext:   pager.HasNext(idx),
	}, &response.Pagination{
		Page:       page,
		PerPage:    pager.PerPage(),
		TotalItems: view.Total,
		TotalPages: pager.TotalPages(),
	})
}

// failSession maps controller errors onto the response envelope.
func failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrUnknownQuestion):
		response.Fail(c, http.StatusNotFound, response.ErrUnknownQuestion)
	case errors.Is(err, session.ErrNotStarted):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotStarted)
	case errors.Is(err, session.ErrSubmitInProgress):
		response.Fail(c, http.StatusConflict, response.ErrSubmissionInProgress)
	case errors.Is(err, session.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
