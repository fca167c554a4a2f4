package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	govalidator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/middleware"
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/response"
	"github.com/stemsi/quizdesk/internal/service"
	"github.com/stemsi/quizdesk/internal/validator"
)

// TeacherQuizHandler handles the teacher authoring flow.
type TeacherQuizHandler struct {
	authoring    *service.AuthoringService
	mediaService *service.MediaService
	log          zerolog.Logger
}

// NewTeacherQuizHandler creates a new TeacherQuizHandler.
func NewTeacherQuizHandler(authoring *service.AuthoringService, mediaService *service.MediaService, log zerolog.Logger) *TeacherQuizHandler {
	return &TeacherQuizHandler{
		authoring:    authoring,
		mediaService: mediaService,
		log:          log.With().Str("component", "teacher_quiz_handler").Logger(),
	}
}

// ExtractQuestions godoc
// POST /api/v1/teacher/extract
// Uploads one or more documents (multipart field "file") and stores the
// extracted questions in the teacher's draft.
func (h *TeacherQuizHandler) ExtractQuestions(c *gin.Context) {
	teacher, ok := teacherFrom(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil || len(form.File["file"]) == 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}

	files, err := h.mediaService.ReadUploads(form.File["file"])
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileTooLarge):
			response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
		case errors.Is(err, service.ErrUnsupportedFileType):
			response.FailWithDetail(c, http.StatusBadRequest, response.ErrInvalidPayload, err.Error(), nil)
		default:
			response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		}
		return
	}

	draft, err := h.authoring.Extract(c.Request.Context(), teacher, files)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoFiles):
			response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		case errors.Is(err, service.ErrNoQuestionsExtracted):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrNothingExtracted)
		default:
			failUpstream(c, h.log, err, response.ErrBackendUnavailable)
		}
		return
	}

	response.Success(c, http.StatusOK, draft)
}

// GetDraft godoc
// GET /api/v1/teacher/draft
func (h *TeacherQuizHandler) GetDraft(c *gin.Context) {
	teacher, ok := teacherFrom(c)
	if !ok {
		return
	}

	draft, err := h.authoring.GetDraft(c.Request.Context(), teacher.ID)
	if err != nil {
		if errors.Is(err, service.ErrDraftNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrDraftNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Load draft failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, draft)
}

// SaveDraft godoc
// PUT /api/v1/teacher/draft
// Replaces the draft. Drafts may be incomplete, so the body is decoded
// without binding validation; Publish validates.
func (h *TeacherQuizHandler) SaveDraft(c *gin.Context) {
	teacher, ok := teacherFrom(c)
	if !ok {
		return
	}

	var draft model.QuizDraft
	if err := json.NewDecoder(c.Request.Body).Decode(&draft); err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, validator.TranslateErrors(err))
		return
	}

	if err := h.authoring.SaveDraft(c.Request.Context(), teacher.ID, &draft); err != nil {
		h.log.Error().Err(err).Msg("Save draft failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, draft)
}

// DeleteDraft godoc
// DELETE /api/v1/teacher/draft
func (h *TeacherQuizHandler) DeleteDraft(c *gin.Context) {
	teacher, ok := teacherFrom(c)
	if !ok {
		return
	}

	if err := h.authoring.DeleteDraft(c.Request.Context(), teacher.ID); err != nil {
		h.log.Error().Err(err).Msg("Delete draft failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Publish godoc
// POST /api/v1/teacher/publish?mode=create|edit|approve
func (h *TeacherQuizHandler) Publish(c *gin.Context) {
	teacher, ok := teacherFrom(c)
	if !ok {
		return
	}

	mode := model.PublishMode(c.DefaultQuery("mode", string(model.PublishModeCreate)))

	quiz, err := h.authoring.Publish(c.Request.Context(), teacher, mode)
	if err != nil {
		var ve govalidator.ValidationErrors
		switch {
		case errors.As(err, &ve):
			response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, validator.TranslateErrors(err))
		case errors.Is(err, service.ErrDraftNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrDraftNotFound)
		case errors.Is(err, service.ErrUnknownPublishMode):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPublishMode)
		case errors.Is(err, service.ErrQuizIDRequired):
			response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation,
				map[string]string{"id": err.Error()})
		default:
			failUpstream(c, h.log, err, response.ErrBackendUnavailable)
		}
		return
	}

	response.Success(c, http.StatusOK, quiz)
}

// ListClasses godoc
// GET /api/v1/teacher/classes
func (h *TeacherQuizHandler) ListClasses(c *gin.Context) {
	teacher, ok := teacherFrom(c)
	if !ok {
		return
	}

	classes, err := h.authoring.Classes(c.Request.Context(), teacher)
	if err != nil {
		failUpstream(c, h.log, err, response.ErrBackendUnavailable)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"classes": classes})
}

func teacherFrom(c *gin.Context) (service.Teacher, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return service.Teacher{}, false
	}
	return service.Teacher{ID: claims.ID(), Token: middleware.GetToken(c)}, true
}
