package assistant

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/voicenav/internal/log"
	"github.com/teslashibe/voicenav/pkg/agent"
	"github.com/teslashibe/voicenav/pkg/voice"
)

// scriptListener returns its inputs in order, then io.EOF.
type scriptListener struct {
	inputs []string
	errs   map[int]error
	calls  int
}

func (s *scriptListener) Listen(ctx context.Context) (string, error) {
	i := s.calls
	s.calls++
	if err, ok := s.errs[i]; ok {
		return "", err
	}
	if i >= len(s.inputs) {
		return "", io.EOF
	}
	return s.inputs[i], nil
}

type recordingNarrator struct {
	mu   sync.Mutex
	said []string
}

func (r *recordingNarrator) Say(_ context.Context, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.said = append(r.said, text)
}

func newLoop(l Listener, n Narrator, a agent.Agent, out io.Writer) *Loop {
	return &Loop{
		Listener:     l,
		Narrator:     n,
		Conversation: agent.NewConversation(a, "https://bing.com"),
		Greeting:     VoiceGreeting,
		Waiting:      WaitingPrompt,
		Out:          out,
		Logger:       log.Discard(),
	}
}

func TestIsExit(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"exit", true},
		{"Exit.", true},
		{" EXIT! ", true},
		{"exit the page", false},
		{"", false},
		{"quit", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := IsExit(tt.text); got != tt.want {
				t.Errorf("IsExit(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestLoop_Turns(t *testing.T) {
	l := &scriptListener{inputs: []string{"", "  weather in Paris ", "Exit.", "never reached"}}
	n := &recordingNarrator{}
	m := agent.NewMock("Navigating to bing.com")
	var out bytes.Buffer

	if err := newLoop(l, n, m, &out).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []string{
		VoiceGreeting,
		WaitingPrompt,
		WaitingPrompt,
		"Executing input: weather in Paris",
		"Navigating to bing.com",
		"Done: weather in Paris",
		WaitingPrompt,
	}
	if !reflect.DeepEqual(n.said, want) {
		t.Errorf("said = %q\nwant   %q", n.said, want)
	}
	if l.calls != 3 {
		t.Errorf("Listen calls = %d, want 3", l.calls)
	}
	if len(m.Calls()) != 1 {
		t.Errorf("agent calls = %d", len(m.Calls()))
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestLoop_AgentErrorContinues(t *testing.T) {
	l := &scriptListener{inputs: []string{"open google", "open bing"}}
	n := &recordingNarrator{}
	m := agent.NewMock()
	fail := true
	m.RunFunc = func(ctx context.Context, items []agent.Item, startURL string, onStep agent.StepFunc) ([]agent.Item, error) {
		if fail {
			fail = false
			return nil, &agent.RemoteError{TurnID: "t1", Message: "browser crashed"}
		}
		return []agent.Item{{Role: agent.RoleAssistant, Content: "Opened bing."}}, nil
	}
	var out bytes.Buffer

	if err := newLoop(l, n, m, &out).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out.String(), "[Error] ") || !strings.Contains(out.String(), "browser crashed") {
		t.Errorf("output = %q", out.String())
	}
	if !strings.HasSuffix(out.String(), "\nExiting...\n") {
		t.Errorf("output = %q, want exit notice", out.String())
	}
	if last := n.said[len(n.said)-2]; last != "Opened bing." {
		t.Errorf("said = %q", n.said)
	}
}

func TestLoop_ListenerError(t *testing.T) {
	boom := errors.New("voice: not running")
	l := &scriptListener{errs: map[int]error{0: boom}}
	err := newLoop(l, &recordingNarrator{}, agent.NewMock(), io.Discard).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Run = %v, want %v", err, boom)
	}
}

func TestLoop_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := agent.NewMock()
	m.RunFunc = func(ctx context.Context, items []agent.Item, startURL string, onStep agent.StepFunc) ([]agent.Item, error) {
		cancel()
		return nil, ctx.Err()
	}
	l := &scriptListener{inputs: []string{"open google", "open bing"}}
	var out bytes.Buffer

	if err := newLoop(l, &recordingNarrator{}, m, &out).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if out.String() != "\nExiting...\n" {
		t.Errorf("output = %q", out.String())
	}
	if l.calls != 1 {
		t.Errorf("Listen calls = %d", l.calls)
	}
}

func TestConsole(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("open google\n\nexit\n"), &out)

	var got []string
	for {
		line, err := c.Listen(context.Background())
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, line)
	}
	if !reflect.DeepEqual(got, []string{"open google", "", "exit"}) {
		t.Errorf("lines = %q", got)
	}

	c.Say(context.Background(), "Opened.")
	if want := strings.Repeat(Prompt, 4) + "Opened.\n"; out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestConsole_ContextCancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	c := NewConsole(r, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Listen(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Listen = %v", err)
	}

	// The pending line is still delivered to the next Listen.
	go w.Write([]byte("late line\n"))
	line, err := c.Listen(context.Background())
	if err != nil || line != "late line" {
		t.Errorf("Listen = %q, %v", line, err)
	}
}

type fakeSpeaker struct {
	outcome voice.Outcome
	err     error
	spoken  []string
}

func (f *fakeSpeaker) Speak(_ context.Context, text string) (voice.Outcome, error) {
	f.spoken = append(f.spoken, text)
	return f.outcome, f.err
}

func TestVoiceNarrator(t *testing.T) {
	tests := []struct {
		name    string
		speaker *fakeSpeaker
		want    string
	}{
		{"spoken", &fakeSpeaker{outcome: voice.OutcomeCompleted}, "Opened.\n"},
		{"skipped", &fakeSpeaker{outcome: voice.OutcomeSkipped}, "Opened.\n"},
		{"failed", &fakeSpeaker{err: errors.New("device gone")}, "Opened.\n[VoiceIO] Failed to speak: device gone\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			NewVoiceNarrator(tt.speaker, &out, log.Discard()).Say(context.Background(), "Opened.")
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
			if len(tt.speaker.spoken) != 1 {
				t.Errorf("spoken = %q", tt.speaker.spoken)
			}
		})
	}
}
