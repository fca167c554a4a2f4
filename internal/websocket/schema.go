package websocket

import (
	"github.com/stemsi/quizdesk/internal/model"
	"github.com/stemsi/quizdesk/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionSubmit Action = "submit"
	ActionState  Action = "state"
	ActionPing   Action = "ping"
)

// Request is any client message. Fields beyond Action depend on the action.
type Request struct {
	Action            Action       `json:"action"`
	QID               int64        `json:"q_id,omitempty"`
	Answer            model.Answer `json:"ans"`
	ConfirmUnanswered bool         `json:"confirm_unanswered,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError           Event = "error"
	EventSaved           Event = "saved"
	EventState           Event = "state"
	EventConfirmRequired Event = "confirm_required"
	EventPong            Event = "pong"
)

type SavedResponse struct {
	Event Event `json:"event"`
	QID   int64 `json:"q_id"`
}

type StateResponse struct {
	Event Event        `json:"event"`
	State session.View `json:"state"`
}

type ConfirmRequiredResponse struct {
	Event      Event `json:"event"`
	Unanswered int   `json:"unanswered"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
