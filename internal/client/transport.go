// internal/client/transport.go
package client

import (
	"context"

	"github.com/coder/websocket"
)

// Conn is the minimal transport surface the session needs. The production
// implementation wraps a websocket; tests substitute an in-memory fake.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// DialFunc establishes a channel to the engine. Injected so the retry and
// timeout behavior can be exercised without a live server.
type DialFunc func(ctx context.Context, url string) (Conn, error)

// WebsocketDial is the production DialFunc.
func WebsocketDial(ctx context.Context, url string) (Conn, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{c: c}, nil
}

type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.c.Read(ctx)
	return data, err
}

func (w *wsConn) Write(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) Close(code websocket.StatusCode, reason string) error {
	return w.c.Close(code, reason)
}
