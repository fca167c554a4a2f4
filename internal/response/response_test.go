package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ok", func(c *gin.Context) { Success(c, http.StatusOK, gin.H{"n": 1}) })
	r.GET("/confirm", func(c *gin.Context) {
		FailWithDetail(c, http.StatusConflict, ErrUnansweredQuestions, "", gin.H{"unanswered": 2})
	})
	r.GET("/guard", func(c *gin.Context) {
		AbortFail(c, http.StatusUnauthorized, ErrTokenRequired)
	}, func(c *gin.Context) { t.Error("chain must stop") })

	get := func(path, reqID string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if reqID != "" {
			req.Header.Set(HeaderRequestID, reqID)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		var body map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return w, body
	}

	w, body := get("/ok", "trace-1")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "trace-1", w.Header().Get(HeaderRequestID))
	require.JSONEq(t, `{"n":1}`, string(body["data"]))
	require.NotContains(t, body, "error")
	require.Contains(t, string(body["metadata"]), `"request_id":"trace-1"`)

	w, body = get("/confirm", "has space")
	require.Equal(t, http.StatusConflict, w.Code)
	require.NotEqual(t, "has space", w.Header().Get(HeaderRequestID))
	require.JSONEq(t, `{"unanswered":2}`, string(body["data"]))
	require.JSONEq(t, `{"code":"UNANSWERED_QUESTIONS","message":"`+GetMessage(ErrUnansweredQuestions)+`"}`, string(body["error"]))

	w, body = get("/guard", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `null`, string(body["data"]))
	require.Contains(t, string(body["error"]), `"TOKEN_REQUIRED"`)
}
