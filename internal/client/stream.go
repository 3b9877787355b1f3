package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/vedran77/chronofeed/internal/transport/ws"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const dialAttempts = 5

// Stream is an authenticated realtime connection.
type Stream struct {
	conn *websocket.Conn
}

// Dial opens the realtime channel, retrying with backoff while the server is
// unreachable. Authentication failures are not retried.
func (c *Client) Dial(ctx context.Context) (*Stream, error) {
	endpoint, err := c.streamURL()
	if err != nil {
		return nil, err
	}

	var conn *websocket.Conn
	backoff := retry.WithMaxRetries(dialAttempts, retry.NewExponential(time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		wsConn, resp, dialErr := websocket.Dial(ctx, endpoint, nil)
		if dialErr == nil {
			conn = wsConn
			return nil
		}
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return &APIError{Status: resp.StatusCode, Code: "UNAUTHORIZED", Message: "invalid or expired token"}
		}
		slog.Warn("stream dial failed", "error", dialErr)
		return retry.RetryableError(dialErr)
	})
	if err != nil {
		return nil, err
	}
	return &Stream{conn: conn}, nil
}

func (c *Client) streamURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {c.Token()}}.Encode()
	return u.String(), nil
}

// Next blocks until the server sends an event.
func (s *Stream) Next(ctx context.Context) (*ws.Event, error) {
	var evt ws.Event
	if err := wsjson.Read(ctx, s.conn, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

func (s *Stream) Send(ctx context.Context, eventType string, payload any) error {
	evt, err := ws.NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	return wsjson.Write(ctx, s.conn, evt)
}

func (s *Stream) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "bye")
}
