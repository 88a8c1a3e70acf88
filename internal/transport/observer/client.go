package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/elektrokombinacija/nova-swarm/internal/sim"
)

// Client is a viewer connection.
type Client struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

// Dial connects to a server's /v1/ws endpoint and waits for its HELLO.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{conn: conn}

	var hello Message
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read hello: %w", err)
	}
	if hello.Type != TypeHello || hello.ProtocolVersion != Version {
		conn.Close()
		return nil, fmt.Errorf("unexpected hello %s v%s", hello.Type, hello.ProtocolVersion)
	}
	_ = conn.SetReadDeadline(time.Time{})
	return c, nil
}

// Next blocks until the next snapshot arrives.
func (c *Client) Next() (*sim.Snapshot, error) {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		var m Message
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode frame: %w", err)
		}
		switch m.Type {
		case TypeSnapshot:
			if m.Snapshot != nil {
				return m.Snapshot, nil
			}
		case TypeError:
			return nil, fmt.Errorf("observer: %s", m.Error)
		}
	}
}

// Control sends pause, resume or stop.
func (c *Client) Control(action string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(ControlMsg{Type: TypeControl, Action: action})
}

// Close ends the connection.
func (c *Client) Close() error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	return c.conn.Close()
}
