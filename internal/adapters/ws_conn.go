// Package adapters owns transport resources: websocket upgrades, the
// read/write pumps and the control-plane HTTP surface live here.
package adapters

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/auralabs/voicelink/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

const writeWait = 5 * time.Second

// WSConn is an indirection over *websocket.Conn to ease testing.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// outMessage pairs a payload with its websocket frame type so the write
// pump can interleave binary audio and text control replies on one
// socket.
type outMessage struct {
	mt   int
	data []byte
}

// relayConn is a transport endpoint over a websocket. It implements
// core.Transport; frames are queued on a bounded channel so TrySend
// never blocks the relay fan-out.
type relayConn struct {
	id   core.ConnID
	conn WSConn
	send chan outMessage

	mu     sync.RWMutex
	closed bool
}

func newRelayConn(id core.ConnID, ws WSConn, buffer int) *relayConn {
	return &relayConn{
		id:   id,
		conn: ws,
		send: make(chan outMessage, buffer),
	}
}

func (c *relayConn) TrySend(f core.Frame) error {
	return c.enqueue(websocket.BinaryMessage, f)
}

func (c *relayConn) trySendText(data []byte) error {
	return c.enqueue(websocket.TextMessage, data)
}

func (c *relayConn) enqueue(mt int, data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.send <- outMessage{mt: mt, data: data}:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *relayConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
