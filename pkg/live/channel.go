package live

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrChannelClosed is returned when a frame is pushed to a closed channel.
var ErrChannelClosed = errors.New("live: channel closed")

const (
	defaultSendQueue    = 32
	defaultWriteTimeout = 10 * time.Second
)

// Channel is the server end of one connected page. Frames pushed onto it
// are serialized by a single writer goroutine, so it is safe to push from
// signal subscribers and guard callbacks concurrently.
//
// Channel implements guard.Navigator: a redirect decided on the server is
// delivered to the page as a navigate frame, so the client changes routes
// without a full reload.
type Channel struct {
	conn   *websocket.Conn
	send   chan Frame
	done   chan struct{}
	closer sync.Once
	logger *slog.Logger

	writeTimeout time.Duration
}

func newChannel(conn *websocket.Conn, logger *slog.Logger) *Channel {
	c := &Channel{
		conn:         conn,
		send:         make(chan Frame, defaultSendQueue),
		done:         make(chan struct{}),
		logger:       logger,
		writeTimeout: defaultWriteTimeout,
	}
	go c.writePump()
	return c
}

// Navigate queues a navigation instruction for the page.
func (c *Channel) Navigate(path string) {
	c.push(NavigateFrame(path))
}

// PushFrame queues an arbitrary frame for the page.
func (c *Channel) PushFrame(f Frame) error {
	return c.push(f)
}

func (c *Channel) push(f Frame) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	case c.send <- f:
		return nil
	default:
		// Queue full. Drop rather than block the state machine; the
		// client resynchronizes from the next auth_state frame.
		c.logger.Warn("send queue full, dropping frame", "type", f.Type)
		return nil
	}
}

// Close tears down the connection. Safe to call more than once.
func (c *Channel) Close() error {
	var err error
	c.closer.Do(func() {
		close(c.done)
		deadline := time.Now().Add(c.writeTimeout)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = c.conn.Close()
	})
	return err
}

func (c *Channel) writePump() {
	for {
		select {
		case <-c.done:
			return
		case f := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteJSON(f); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Warn("write error", "error", err)
				}
				c.Close()
				return
			}
		}
	}
}
