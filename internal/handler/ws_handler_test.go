package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/middleware"
	"github.com/stemsi/quizdesk/internal/service"
	"github.com/stemsi/quizdesk/internal/session"
	"github.com/stemsi/quizdesk/internal/store"
	"github.com/stretchr/testify/require"
)

type wsMessage struct {
	Event      string          `json:"event"`
	QID        int64           `json:"q_id"`
	Unanswered int             `json:"unanswered"`
	Error      string          `json:"error"`
	State      json.RawMessage `json:"state"`
	Result     *struct {
		Score float64 `json:"score"`
	} `json:"result"`
}

func newStreamServer(t *testing.T, be *stubBackend) (*httptest.Server, *session.Registry) {
	t.Helper()

	reg := session.NewRegistry(session.RegistryOptions{
		Quizzes:   be,
		Store:     store.NewMemory(),
		Submitter: be,
		Clock:     session.SystemClock{},
		Log:       zerolog.Nop(),
	})

	h := NewWSHandler(reg, zerolog.Nop(), nil)
	r := gin.New()
	r.GET("/ws/v1/student/quizzes/:quiz_id/stream",
		middleware.RequireStudentJWT(service.NewAuthService(testSecret)), h.QuizStream)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		reg.CloseAll()
	})
	return srv, reg
}

func dialStream(t *testing.T, srv *httptest.Server, path, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path + "?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	return conn
}

// next reads messages until one with the given event arrives, skipping
// countdown ticks.
func next(t *testing.T, conn *websocket.Conn, event string) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Event == "tick" && event != "tick" {
			continue
		}
		require.Equal(t, event, msg.Event, "unexpected message: %+v", msg)
		return msg
	}
}

func TestQuizStreamFlow(t *testing.T) {
	be := &stubBackend{quiz: handlerQuiz()}
	srv, reg := newStreamServer(t, be)
	conn := dialStream(t, srv, "/ws/v1/student/quizzes/5/stream", tokenFor(t, "STUDENT", time.Hour))
	defer conn.Close()

	var state struct {
		State    string `json:"state"`
		TimeLeft int    `json:"time_left"`
	}
	require.NoError(t, json.Unmarshal(next(t, conn, "state").State, &state))
	require.Equal(t, "ACTIVE", state.State)
	require.InDelta(t, 20*60, state.TimeLeft, 2)

	ctrl, ok := reg.Get("s-1", 5)
	require.True(t, ok)
	require.Equal(t, 1, ctrl.Subscribers())

	// Countdown ticks are relayed.
	require.Equal(t, "tick", next(t, conn, "tick").Event)

	require.NoError(t, conn.WriteJSON(gin.H{"action": "answer", "q_id": 1, "ans": "2"}))
	require.Equal(t, int64(1), next(t, conn, "saved").QID)
	require.Equal(t, []string{"2"}, ctrl.Answers()[1].Normalize())

	require.NoError(t, conn.WriteJSON(gin.H{"action": "answer", "q_id": 99, "ans": "2"}))
	require.Contains(t, next(t, conn, "error").Error, "does not belong")

	require.NoError(t, conn.WriteJSON(gin.H{"action": "submit"}))
	require.Equal(t, 2, next(t, conn, "confirm_required").Unanswered)
	require.Zero(t, be.submits.Load())
	require.Equal(t, session.StateActive, ctrl.State())

	require.NoError(t, conn.WriteJSON(gin.H{"action": "ping"}))
	next(t, conn, "pong")

	require.NoError(t, conn.WriteJSON(gin.H{"action": "submit", "confirm_unanswered": true}))
	done := next(t, conn, "submitted")
	require.NotNil(t, done.Result)
	require.Equal(t, 80.0, done.Result.Score)
	require.EqualValues(t, 1, be.submits.Load())

	require.NoError(t, conn.WriteJSON(gin.H{"action": "submit", "confirm_unanswered": true}))
	require.Contains(t, next(t, conn, "error").Error, "already submitted")
	require.EqualValues(t, 1, be.submits.Load())
}

func TestQuizStreamUnsubscribesOnDisconnect(t *testing.T) {
	srv, reg := newStreamServer(t, &stubBackend{quiz: handlerQuiz()})
	tok := tokenFor(t, "STUDENT", time.Hour)

	first := dialStream(t, srv, "/ws/v1/student/quizzes/5/stream", tok)
	next(t, first, "state")
	second := dialStream(t, srv, "/ws/v1/student/quizzes/5/stream", tok)
	next(t, second, "state")

	ctrl, ok := reg.Get("s-1", 5)
	require.True(t, ok)
	require.Equal(t, 2, ctrl.Subscribers())

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return ctrl.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, second.Close())
	require.Eventually(t, func() bool { return ctrl.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)

	// The attempt itself keeps running for the next connection.
	require.Equal(t, session.StateActive, ctrl.State())
}

func TestQuizStreamRejectsBeforeUpgrade(t *testing.T) {
	srv, _ := newStreamServer(t, &stubBackend{quiz: handlerQuiz()})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/student/quizzes/5/stream"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token="+tokenFor(t, "TEACHER", time.Hour), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}
