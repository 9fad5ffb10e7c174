package agent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeAgent is a scripted remote agent. The task text selects behavior:
// "fail" answers with an error, "hang" waits for a cancel, "drop" closes
// the connection, anything else reports two steps and a result.
type fakeAgent struct {
	t        *testing.T
	upgrader websocket.Upgrader

	mu      sync.Mutex
	turns   []Message
	cancels []string
	auth    []string
	conns   int
}

func (f *fakeAgent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	f.mu.Lock()
	f.conns++
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.mu.Unlock()

	for {
		var m Message
		if err := conn.ReadJSON(&m); err != nil {
			return
		}

		f.mu.Lock()
		switch m.Type {
		case MsgTurn:
			f.turns = append(f.turns, m)
		case MsgCancel:
			f.cancels = append(f.cancels, m.ID)
		}
		f.mu.Unlock()

		if m.Type != MsgTurn {
			continue
		}

		switch m.Task {
		case "fail":
			conn.WriteJSON(Message{Type: MsgError, ID: m.ID, Error: "page not found"})
		case "hang":
		case "drop":
			return
		case "text result":
			conn.WriteJSON(Message{Type: MsgResult, ID: m.ID, Text: "plain answer"})
		default:
			conn.WriteJSON(Message{Type: MsgStep, ID: m.ID, Text: "Opening " + m.StartURL})
			conn.WriteJSON(Message{Type: "thinking", ID: m.ID})
			conn.WriteJSON(Message{Type: MsgStep, ID: "someone-else", Text: "stray"})
			conn.WriteJSON(Message{Type: MsgStep, ID: m.ID, Text: "Searching for " + m.Task})
			conn.WriteJSON(Message{
				Type:  MsgResult,
				ID:    m.ID,
				Items: []Item{{Role: RoleAssistant, Content: "Found " + m.Task}},
			})
		}
	}
}

func (f *fakeAgent) snapshot() (turns []Message, cancels []string, auth []string, conns int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.turns...), append([]string(nil), f.cancels...), append([]string(nil), f.auth...), f.conns
}

func startAgent(t *testing.T, opts ...ClientOption) (*fakeAgent, *Client) {
	t.Helper()
	f := &fakeAgent{t: t}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, err := Dial(context.Background(), url, opts...)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return f, c
}

func TestClient_RunTurn(t *testing.T) {
	f, c := startAgent(t, WithToken("secret"))

	items := []Item{
		{RoleUser, "open google"},
		{RoleAssistant, "Opened."},
		{RoleUser, " weather in Paris "},
	}
	var steps []string
	out, err := c.RunTurn(context.Background(), items, "https://bing.com", func(s string) {
		steps = append(steps, s)
	})
	if err != nil {
		t.Fatal(err)
	}

	wantSteps := []string{"Opening https://bing.com", "Searching for weather in Paris"}
	if !reflect.DeepEqual(steps, wantSteps) {
		t.Errorf("steps = %v, want %v", steps, wantSteps)
	}
	if Reply(out) != "Found weather in Paris" {
		t.Errorf("reply = %q", Reply(out))
	}

	turns, _, auth, _ := f.snapshot()
	if len(turns) != 1 {
		t.Fatalf("server saw %d turns", len(turns))
	}
	got := turns[0]
	if got.ID == "" || got.Task != "weather in Paris" || got.StartURL != "https://bing.com" {
		t.Errorf("turn = %+v", got)
	}
	if got.History != "User: open google\nAgent: Opened." || len(got.Items) != 3 {
		t.Errorf("history = %q, items = %d", got.History, len(got.Items))
	}
	if auth[0] != "Bearer secret" {
		t.Errorf("Authorization = %q", auth[0])
	}
}

func TestClient_TextResult(t *testing.T) {
	_, c := startAgent(t)
	out, err := c.RunTurn(context.Background(), []Item{{RoleUser, "text result"}}, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Role != RoleAssistant || out[0].Content != "plain answer" {
		t.Errorf("items = %+v", out)
	}
}

func TestClient_RemoteError(t *testing.T) {
	_, c := startAgent(t)

	_, err := c.RunTurn(context.Background(), []Item{{RoleUser, "fail"}}, "", nil)
	var re *RemoteError
	if !errors.As(err, &re) || re.Message != "page not found" || re.TurnID == "" {
		t.Fatalf("error = %v", err)
	}

	// The connection stays usable.
	if _, err := c.RunTurn(context.Background(), []Item{{RoleUser, "next"}}, "", nil); err != nil {
		t.Errorf("turn after remote error: %v", err)
	}
}

func TestClient_ContextCancelSendsCancel(t *testing.T) {
	f, c := startAgent(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.RunTurn(ctx, []Item{{RoleUser, "hang"}}, "", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		turns, cancels, _, _ := f.snapshot()
		if len(cancels) == 1 {
			if cancels[0] != turns[0].ID {
				t.Errorf("cancel id = %q, turn id = %q", cancels[0], turns[0].ID)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("server never saw the cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClient_Reconnects(t *testing.T) {
	f, c := startAgent(t)

	_, err := c.RunTurn(context.Background(), []Item{{RoleUser, "drop"}}, "", nil)
	if !errors.Is(err, ErrDisconnected) {
		t.Fatalf("error = %v, want ErrDisconnected", err)
	}

	out, err := c.RunTurn(context.Background(), []Item{{RoleUser, "again"}}, "", nil)
	if err != nil {
		t.Fatalf("turn after drop: %v", err)
	}
	if Reply(out) != "Found again" {
		t.Errorf("reply = %q", Reply(out))
	}
	if _, _, _, conns := f.snapshot(); conns != 2 {
		t.Errorf("connections = %d, want 2", conns)
	}
}

func TestClient_ContractAndLifecycle(t *testing.T) {
	f, c := startAgent(t)

	if _, err := c.RunTurn(context.Background(), []Item{{RoleAssistant, "x"}}, "", nil); !errors.Is(err, ErrLastNotUser) {
		t.Errorf("error = %v", err)
	}
	if turns, _, _, _ := f.snapshot(); len(turns) != 0 {
		t.Error("invalid turn was sent")
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := c.RunTurn(context.Background(), []Item{{RoleUser, "x"}}, "", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("RunTurn after Close = %v", err)
	}
}

func TestDial_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	if _, err := Dial(context.Background(), url, WithHandshakeTimeout(time.Second)); err == nil {
		t.Error("Dial to a closed server succeeded")
	}
}
