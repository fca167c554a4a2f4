// Package response writes the JSON envelope every quizdesk endpoint
// returns: data on success, a coded error on failure, and request metadata
// in both cases so browser and server logs can be joined.
package response

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Response is the envelope. Data may accompany an error, for example the
// unanswered count behind a 409 submit.
type Response struct {
	Data       interface{} `json:"data"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Metadata   Metadata    `json:"metadata"`
}

// ErrorBody carries a stable code, its English message, and optionally the
// backend's own explanation (Detail) or per-field validation messages.
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Detail  string            `json:"detail,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Pagination describes one page of quiz questions.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// Success writes data with status.
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope(c, data, nil))
}

// SuccessWithPagination writes one page of data.
func SuccessWithPagination(c *gin.Context, status int, data interface{}, page *Pagination) {
	body := envelope(c, data, nil)
	body.Pagination = page
	c.JSON(status, body)
}

// Fail writes the error code alone.
func Fail(c *gin.Context, status int, code ErrCode) {
	c.JSON(status, envelope(c, nil, errorBody(code)))
}

// FailWithFields writes a validation failure keyed by JSON field path.
func FailWithFields(c *gin.Context, status int, code ErrCode, fields map[string]string) {
	eb := errorBody(code)
	eb.Fields = fields
	c.JSON(status, envelope(c, nil, eb))
}

// FailWithDetail writes an error with the upstream explanation and
// optional data.
func FailWithDetail(c *gin.Context, status int, code ErrCode, detail string, data interface{}) {
	eb := errorBody(code)
	eb.Detail = detail
	c.JSON(status, envelope(c, data, eb))
}

// AbortFail stops the middleware chain with an error. Auth guards use it.
func AbortFail(c *gin.Context, status int, code ErrCode) {
	c.AbortWithStatusJSON(status, envelope(c, nil, errorBody(code)))
}

func errorBody(code ErrCode) *ErrorBody {
	return &ErrorBody{Code: code, Message: GetMessage(code)}
}

func envelope(c *gin.Context, data interface{}, eb *ErrorBody) Response {
	id := RequestID(c)
	if id == "" {
		// Routes mounted without RequestIDMiddleware, as in handler tests.
		id = uuid.New().String()
	}
	return Response{
		Data:  data,
		Error: eb,
		Metadata: Metadata{
			RequestID: id,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}
