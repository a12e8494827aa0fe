package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"nexasphere/internal/presence"
)

// wsConn serializes writes to a websocket connection. Gorilla connections
// support one concurrent writer only, and the hub may push to the same
// connection from many request goroutines.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

var _ presence.Conn = (*wsConn)(nil)

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
