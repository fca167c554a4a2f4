// Package backend is the HTTP client for the quiz backend service, which
// owns scoring, question banks, document extraction and persistence.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/model"
)

// ErrMalformedResponse is returned when a 2xx body does not have the expected shape.
var ErrMalformedResponse = errors.New("backend: malformed response")

// Error is a non-2xx response. Body holds the response text verbatim.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("backend request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend request failed with status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the backend on behalf of one end user per call; the
// bearer token is passed explicitly with every request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a Client. A zero timeout leaves requests bounded only
// by their context.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "backend_client").Logger(),
	}
}

// GetQuiz fetches a quiz definition with its ordered questions.
func (c *Client) GetQuiz(ctx context.Context, token string, quizID int64) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := c.doJSON(ctx, token, http.MethodGet, "/api/quizzes/"+strconv.FormatInt(quizID, 10), nil, &quiz); err != nil {
		return nil, fmt.Errorf("get quiz %d: %w", quizID, err)
	}
	return &quiz, nil
}

// ListStudentQuizzes returns the quizzes visible to the calling student.
func (c *Client) ListStudentQuizzes(ctx context.Context, token string) ([]model.StudentQuiz, error) {
	var quizzes []model.StudentQuiz
	if err := c.doJSON(ctx, token, http.MethodGet, "/api/quizzes/student", nil, &quizzes); err != nil {
		return nil, fmt.Errorf("list student quizzes: %w", err)
	}
	return quizzes, nil
}

// SubmitQuiz sends a finished attempt for scoring. No retry is attempted.
func (c *Client) SubmitQuiz(ctx context.Context, token string, req *model.SubmissionRequest) (*model.SubmissionResult, error) {
	var res model.SubmissionResult
	if err := c.doJSON(ctx, token, http.MethodPost, "/api/quiz-submissions", req, &res); err != nil {
		return nil, fmt.Errorf("submit quiz %d: %w", req.QuizID, err)
	}
	return &res, nil
}

// ExtractQuestions uploads documents and returns the questions the backend
// extracted from them.
func (c *Client) ExtractQuestions(ctx context.Context, token string, files []model.UploadFile) ([]model.Question, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile("file", f.Name)
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, fmt.Errorf("write form file: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var res model.ExtractedQuestions
	if err := c.do(ctx, token, http.MethodPost, "/api/files/extract-questions", mw.FormDataContentType(), &body, &res); err != nil {
		return nil, fmt.Errorf("extract questions: %w", err)
	}
	// An empty list decodes to a non-nil slice; nil means the field is absent.
	if res.Questions == nil {
		return nil, fmt.Errorf("extract questions: %w: missing questions field", ErrMalformedResponse)
	}
	if res.Message != "" {
		c.log.Debug().Str("message", res.Message).Int("questions", len(res.Questions)).Msg("Extraction finished")
	}
	return res.Questions, nil
}

// CreateQuiz publishes a new quiz from a draft.
func (c *Client) CreateQuiz(ctx context.Context, token string, draft *model.QuizDraft) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := c.doJSON(ctx, token, http.MethodPost, "/api/quizzes", draft, &quiz); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	return &quiz, nil
}

// ApproveQuiz approves an extracted draft.
func (c *Client) ApproveQuiz(ctx context.Context, token string, draft *model.QuizDraft) error {
	if err := c.doJSON(ctx, token, http.MethodPost, "/api/quizzes/approve", draft, nil); err != nil {
		return fmt.Errorf("approve quiz: %w", err)
	}
	return nil
}

// UpdateQuizMeta updates a published quiz's metadata.
func (c *Client) UpdateQuizMeta(ctx context.Context, token string, quizID int64, meta *model.QuizMetaUpdate) error {
	if err := c.doJSON(ctx, token, http.MethodPut, "/api/quizzes/"+strconv.FormatInt(quizID, 10), meta, nil); err != nil {
		return fmt.Errorf("update quiz %d: %w", quizID, err)
	}
	return nil
}

// ReplaceQuizContent replaces every question of a published quiz.
func (c *Client) ReplaceQuizContent(ctx context.Context, token string, quizID int64, questions []model.Question) error {
	path := "/api/quizzes/" + strconv.FormatInt(quizID, 10) + "/content"
	if err := c.doJSON(ctx, token, http.MethodPut, path, model.ReplaceContentRequest{Questions: questions}, nil); err != nil {
		return fmt.Errorf("replace quiz %d content: %w", quizID, err)
	}
	return nil
}

// ListTeacherClasses returns the classes taught by teacherID.
func (c *Client) ListTeacherClasses(ctx context.Context, token, teacherID string) ([]model.TeacherClass, error) {
	var classes []model.TeacherClass
	if err := c.doJSON(ctx, token, http.MethodGet, "/api/classes/teacher/"+teacherID, nil, &classes); err != nil {
		return nil, fmt.Errorf("list teacher classes: %w", err)
	}
	return classes, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

func (c *Client) doJSON(ctx context.Context, token, method, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.do(ctx, token, method, path, contentType, body, out)
}

func (c *Client) do(ctx context.Context, token, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if err := json.Unmarshal(unwrapData(raw), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// unwrapData returns the "data" member when the body is an envelope
// object carrying one, else the body itself.
func unwrapData(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return raw
	}
	data, ok := envelope["data"]
	if !ok || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return raw
	}
	return data
}
