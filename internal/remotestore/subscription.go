package remotestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"

	"github.com/jonahr4/taskapp-sync/internal/model"
)

// Subscription is a live change feed from the remote store.
//
// Events arrive on Events() until Close is called, the context given to
// Subscribe is cancelled, or the connection drops. The channel is closed
// in all three cases; consumers that need the feed back reconnect by
// calling Subscribe again.
type Subscription struct {
	conn   *websocket.Conn
	events chan Event
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *log.Logger

	mu     sync.Mutex
	closed bool
	err    error
}

// Subscribe implements Store.Subscribe.
//
// It dials the events endpoint over WebSocket and starts a reader
// goroutine that decodes change notifications into Events.
func (c *Client) Subscribe(ctx context.Context, session *model.AuthSession) (*Subscription, error) {
	if !session.Valid() {
		return nil, ErrNoSession
	}

	wsURL, err := eventsURL(c.baseURL, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to build events URL: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)

	conn, _, err := websocket.Dial(subCtx, wsURL, &websocket.DialOptions{
		HTTPHeader: map[string][]string{
			"Authorization": {"Bearer " + session.Token},
		},
	})
	if err != nil {
		cancel()
		return nil, &UnavailableError{Op: "subscribe", Err: err}
	}

	sub := &Subscription{
		conn:   conn,
		events: make(chan Event, 64),
		cancel: cancel,
		logger: c.logger,
	}

	sub.wg.Add(1)
	go sub.readLoop(subCtx)

	c.logger.Printf("Subscribed to remote events for user %s", session.UserID)
	return sub, nil
}

// Events returns the channel that emits change notifications.
// The channel is closed when the subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Err returns the error that terminated the subscription, if any.
// It is valid to call only after the Events channel has been closed.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close shuts down the subscription and releases the connection.
// Safe to call more than once.
func (s *Subscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	if s.conn != nil {
		_ = s.conn.Close(websocket.StatusNormalClosure, "client closing")
	}
	s.wg.Wait()
	return nil
}

// readLoop decodes messages off the wire until the connection ends.
func (s *Subscription) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.events)

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			s.mu.Lock()
			if !s.closed && ctx.Err() == nil {
				s.err = &UnavailableError{Op: "subscription read", Err: err}
				s.logger.Printf("Subscription ended: %v", err)
			}
			s.mu.Unlock()
			return
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			s.logger.Printf("Warning: skipping malformed event: %v", err)
			continue
		}

		select {
		case s.events <- event:
		case <-ctx.Done():
			return
		}
	}
}

// eventsURL converts the HTTP base URL to the ws/wss events endpoint.
func eventsURL(baseURL, userID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/users/" + url.PathEscape(userID) + "/events"
	return u.String(), nil
}
