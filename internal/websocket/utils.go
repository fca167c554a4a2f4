package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// Conn serializes writes to a gorilla connection, which allows one
// concurrent writer only.
type Conn struct {
	*websocket.Conn
	mu sync.Mutex
}

// NewConn wraps conn.
func NewConn(conn *websocket.Conn) *Conn {
	return &Conn{Conn: conn}
}

// WriteTyped sends a strongly-typed payload.
func (c *Conn) WriteTyped(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse.
func (c *Conn) WriteError(errMsg string) error {
	return c.WriteTyped(ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadRequest reads and decodes a client message with a read deadline.
func (c *Conn) ReadRequest() (*Request, error) {
	c.SetReadDeadline(time.Now().Add(readWait))
	var req Request
	if err := c.ReadJSON(&req); err != nil {
		return nil, err
	}
	return &req, nil
}
