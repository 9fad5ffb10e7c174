// Package assistant runs the conversation loop: take an instruction,
// hand it to the browsing agent, narrate its progress and its answer.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/teslashibe/voicenav/pkg/agent"
)

// Prompts spoken by the loop.
const (
	VoiceGreeting = "Push-to-talk enabled. Hold SPACE to speak, release to send. Say 'exit' to quit."
	TextGreeting  = "Type your instructions (or 'exit' to quit):"
	WaitingPrompt = "Waiting for input..."
)

// Listener produces the next instruction. An empty string means nothing
// usable was heard. io.EOF ends the loop.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

// Narrator tells the user something. It never fails; problems are
// reported to the user by the narrator itself.
type Narrator interface {
	Say(ctx context.Context, text string)
}

// Loop is the interactive session.
type Loop struct {
	Listener     Listener
	Narrator     Narrator
	Conversation *agent.Conversation

	// Greeting is said once at start.
	Greeting string

	// Waiting, if set, is said before every Listen.
	Waiting string

	// Out receives errors and the exit notice. Defaults to os.Stdout.
	Out io.Writer

	Logger *slog.Logger
}

// IsExit reports whether text asks to quit. Case and trailing
// punctuation are ignored, so a transcribed "Exit." counts.
func IsExit(text string) bool {
	t := strings.TrimRight(strings.TrimSpace(text), ".!")
	return strings.EqualFold(t, "exit")
}

// Run loops until the user says exit, input ends, or ctx is cancelled.
// Only listener failures other than io.EOF are returned.
func (l *Loop) Run(ctx context.Context) error {
	out := l.Out
	if out == nil {
		out = os.Stdout
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "assistant.Loop")

	if l.Greeting != "" {
		l.Narrator.Say(ctx, l.Greeting)
	}

	for {
		if l.Waiting != "" {
			l.Narrator.Say(ctx, l.Waiting)
		}

		input, err := l.Listener.Listen(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				fmt.Fprintln(out, "\nExiting...")
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if IsExit(input) {
			logger.Info("exit requested")
			return nil
		}

		l.Narrator.Say(ctx, "Executing input: "+input)

		reply, err := l.Conversation.Send(ctx, input, func(step string) {
			l.Narrator.Say(ctx, step)
		})
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(out, "\nExiting...")
				return nil
			}
			logger.Warn("turn failed", "error", err)
			fmt.Fprintf(out, "[Error] %v\n", err)
			continue
		}
		if reply != "" {
			l.Narrator.Say(ctx, reply)
		}
	}
}
