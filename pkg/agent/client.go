package agent

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Message types on the agent socket.
const (
	MsgTurn   = "turn"
	MsgCancel = "cancel"
	MsgStep   = "step"
	MsgResult = "result"
	MsgError  = "error"
)

// Message is the JSON frame exchanged with a remote agent.
//
// The client sends "turn" (ID, Items, StartURL, Task, History) and
// "cancel" (ID). The agent answers a turn with any number of "step"
// frames (Text) followed by one "result" (Items, or Text) or "error"
// (Error).
type Message struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Items    []Item `json:"items,omitempty"`
	StartURL string `json:"start_url,omitempty"`
	Task     string `json:"task,omitempty"`
	History  string `json:"history,omitempty"`
	Text     string `json:"text,omitempty"`
	Error    string `json:"error,omitempty"`
}

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultPingInterval     = 30 * time.Second
	writeTimeout            = 10 * time.Second
)

// Client is an Agent reached over a WebSocket. It reconnects on the
// next turn after the connection drops. Safe for concurrent use.
type Client struct {
	url          string
	header       http.Header
	dialer       websocket.Dialer
	pingInterval time.Duration
	logger       *slog.Logger

	connMu sync.Mutex
	conn   *websocket.Conn
	done   chan struct{} // closed when the reader for conn exits
	closed bool

	writeMu sync.Mutex

	mu    sync.Mutex
	turns map[string]*turn
}

type turn struct {
	msgs chan Message
	done chan struct{}
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHeader adds a header to the handshake request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) { c.header.Add(key, value) }
}

// WithToken sends token as a bearer Authorization header.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		if token != "" {
			c.header.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithHandshakeTimeout bounds the WebSocket handshake.
func WithHandshakeTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.dialer.HandshakeTimeout = d }
}

// WithPingInterval sets how often keepalive pings are sent.
func WithPingInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.pingInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// Dial connects to the agent at url (ws:// or wss://).
func Dial(ctx context.Context, url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:          url,
		header:       make(http.Header),
		dialer:       websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout},
		pingInterval: defaultPingInterval,
		logger:       slog.Default(),
		turns:        make(map[string]*turn),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "agent.Client")

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connectLocked(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return fmt.Errorf("agent: connect %s: %w", c.url, err)
	}

	// A missed pong means the agent is gone.
	deadline := func() time.Time { return time.Now().Add(3 * c.pingInterval) }
	conn.SetReadDeadline(deadline())
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(deadline())
	})

	done := make(chan struct{})
	c.conn = conn
	c.done = done

	go c.readLoop(conn, done)
	go c.keepAlive(conn, done)

	c.logger.Debug("connected", "url", c.url)
	return nil
}

// liveConn returns a live connection, redialing if the last one dropped.
func (c *Client) liveConn(ctx context.Context) (*websocket.Conn, chan struct{}, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.closed {
		return nil, nil, ErrClosed
	}
	if c.conn != nil {
		select {
		case <-c.done:
			c.logger.Info("reconnecting to agent")
		default:
			return c.conn, c.done, nil
		}
	}
	if err := c.connectLocked(ctx); err != nil {
		return nil, nil, err
	}
	return c.conn, c.done, nil
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	defer conn.Close()

	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			c.connMu.Lock()
			closed := c.closed
			c.connMu.Unlock()
			if !closed {
				c.logger.Warn("agent connection lost", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(3 * c.pingInterval))
		c.dispatch(m)
	}
}

func (c *Client) dispatch(m Message) {
	c.mu.Lock()
	t := c.turns[m.ID]
	c.mu.Unlock()

	if t == nil {
		c.logger.Debug("message for unknown turn", "type", m.Type, "turn", m.ID)
		return
	}
	select {
	case t.msgs <- m:
	case <-t.done:
	}
}

func (c *Client) keepAlive(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

func (c *Client) write(conn *websocket.Conn, m Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(m)
}

// RunTurn sends the turn and relays steps until the agent answers.
func (c *Client) RunTurn(ctx context.Context, items []Item, startURL string, onStep StepFunc) ([]Item, error) {
	task, err := Task(items)
	if err != nil {
		return nil, err
	}

	conn, done, err := c.liveConn(ctx)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	t := &turn{msgs: make(chan Message, 64), done: make(chan struct{})}
	c.mu.Lock()
	c.turns[id] = t
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.turns, id)
		c.mu.Unlock()
		close(t.done)
	}()

	req := Message{
		Type:     MsgTurn,
		ID:       id,
		Items:    items,
		StartURL: startURL,
		Task:     task,
		History:  History(items),
	}
	if err := c.write(conn, req); err != nil {
		return nil, fmt.Errorf("agent: send turn: %w", err)
	}
	c.logger.Debug("turn started", "turn", id, "task", task)

	for {
		select {
		case m := <-t.msgs:
			switch m.Type {
			case MsgStep:
				if onStep != nil && m.Text != "" {
					onStep(m.Text)
				}
			case MsgResult:
				if len(m.Items) == 0 && m.Text != "" {
					return []Item{{Role: RoleAssistant, Content: m.Text}}, nil
				}
				return m.Items, nil
			case MsgError:
				return nil, &RemoteError{TurnID: id, Message: m.Error}
			default:
				c.logger.Debug("ignoring message", "type", m.Type, "turn", id)
			}
		case <-done:
			return nil, ErrDisconnected
		case <-ctx.Done():
			if err := c.write(conn, Message{Type: MsgCancel, ID: id}); err != nil {
				c.logger.Debug("send cancel", "error", err)
			}
			return nil, ctx.Err()
		}
	}
}

// Close closes the connection. Turns in flight fail with ErrDisconnected.
func (c *Client) Close() error {
	c.connMu.Lock()
	if c.closed {
		c.connMu.Unlock()
		return nil
	}
	c.closed = true
	conn, done := c.conn, c.done
	c.connMu.Unlock()

	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	if err != nil {
		c.logger.Debug("send close frame", "error", err)
	}

	conn.Close()
	<-done
	return nil
}

var _ Agent = (*Client)(nil)
