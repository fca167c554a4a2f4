package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/middleware"
	"github.com/stemsi/quizdesk/internal/response"
	"github.com/stemsi/quizdesk/internal/session"
	ws "github.com/stemsi/quizdesk/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a quiz attempt over WebSocket: countdown ticks and
// submission events out, answers and submit actions in.
type WSHandler struct {
	sessions *session.Registry
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *session.Registry, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// QuizStream godoc
// WS /ws/v1/student/quizzes/:quiz_id/stream
// Opens (restores or starts) the attempt, then relays its events.
func (h *WSHandler) QuizStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, ok := parseIDParam(c, "quiz_id")
	if !ok {
		return
	}

	id := session.Identity{StudentID: claims.ID(), Token: middleware.GetToken(c)}
	ctrl, err := h.sessions.Open(c.Request.Context(), id, quizID)
	if err != nil {
		failOpen(c, h.log, err)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Str("student_id", id.StudentID).
		Int64("quiz_id", quizID).
		Logger()
	events, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	wsLog.Info().Int("streams", ctrl.Subscribers()).Msg("Student connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.relay(ctx, conn, events, wsLog)

	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: ctrl.Snapshot()})

	for {
		req, err := conn.ReadRequest()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch req.Action {
		case ws.ActionAnswer:
			h.handleAnswer(ctx, conn, ctrl, req)
		case ws.ActionSubmit:
			h.handleSubmit(ctx, conn, ctrl, req)
		case ws.ActionState:
			conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: ctrl.Snapshot()})
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(req.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(req.Action))
		}
	}
}

// relay forwards controller events until ctx ends or the stream closes.
func (h *WSHandler) relay(ctx context.Context, conn *ws.Conn, events <-chan session.Event, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteTyped(ev); err != nil {
				log.Debug().Err(err).Msg("Event write failed")
				return
			}
		}
	}
}

func (h *WSHandler) handleAnswer(ctx context.Context, conn *ws.Conn, ctrl *session.Controller, req *ws.Request) {
	if req.QID <= 0 {
		conn.WriteError("q_id is required")
		return
	}
	if err := ctrl.SetAnswer(ctx, req.QID, req.Answer); err != nil {
		conn.WriteError(err.Error())
		return
	}
	conn.WriteTyped(ws.SavedResponse{Event: ws.EventSaved, QID: req.QID})
}

// handleSubmit runs a manual submission. Success and failure reach the
// client through the relayed controller events.
func (h *WSHandler) handleSubmit(ctx context.Context, conn *ws.Conn, ctrl *session.Controller, req *ws.Request) {
	unanswered := 0
	confirm := session.ConfirmFunc(func(_ context.Context, n int) (bool, error) {
		unanswered = n
		return req.ConfirmUnanswered, nil
	})

	_, err := ctrl.SubmitWith(ctx, confirm)
	switch {
	case err == nil, errors.Is(err, session.ErrSubmitFailed):
	case errors.Is(err, session.ErrSubmitCancelled):
		conn.WriteTyped(ws.ConfirmRequiredResponse{Event: ws.EventConfirmRequired, Unanswered: unanswered})
	default:
		conn.WriteError(err.Error())
	}
}
