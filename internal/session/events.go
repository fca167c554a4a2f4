package session

import "github.com/stemsi/quizdesk/internal/model"

// EventType names a session event.
type EventType string

const (
	EventTick         EventType = "tick"
	EventSubmitted    EventType = "submitted"
	EventSubmitFailed EventType = "submit_failed"
)

// Event is published to subscribers as the attempt progresses.
type Event struct {
	Type     EventType         `json:"event"`
	TimeLeft int               `json:"time_left"`
	Result   *model.QuizResult `json:"result,omitempty"`
	Error    string            `json:"error,omitempty"`
}

const subscriberBuffer = 16

// Subscribe returns a channel of session events and a function that
// unsubscribes and closes it. Slow subscribers miss events rather than
// stall the countdown.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	c.subMu.Lock()
	c.subscribers[ch] = struct{}{}
	c.subMu.Unlock()

	var once bool
	return ch, func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if once {
			return
		}
		once = true
		delete(c.subscribers, ch)
		close(ch)
	}
}

func (c *Controller) publish(ev Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for ch := range c.subscribers {
		select {
		case ch <- ev:
		default:
			c.log.Debug().Str("event", string(ev.Type)).Msg("Subscriber full, event dropped")
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (c *Controller) Subscribers() int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return len(c.subscribers)
}
