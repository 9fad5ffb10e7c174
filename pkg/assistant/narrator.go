package assistant

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/teslashibe/voicenav/pkg/voice"
)

// Speaker is the voice side of a Narrator.
type Speaker interface {
	Speak(ctx context.Context, text string) (voice.Outcome, error)
}

// VoiceNarrator prints each message and then speaks it.
type VoiceNarrator struct {
	speaker Speaker
	out     io.Writer
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewVoiceNarrator creates a narrator printing to out.
func NewVoiceNarrator(s Speaker, out io.Writer, logger *slog.Logger) *VoiceNarrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoiceNarrator{
		speaker: s,
		out:     out,
		logger:  logger.With("component", "assistant.VoiceNarrator"),
	}
}

// Say prints text, then speaks it. It returns when playback ends or is
// skipped.
func (n *VoiceNarrator) Say(ctx context.Context, text string) {
	n.print(text)

	outcome, err := n.speaker.Speak(ctx, text)
	if err != nil {
		if ctx.Err() == nil {
			n.print(fmt.Sprintf("[VoiceIO] Failed to speak: %v", err))
		}
		return
	}
	n.logger.Debug("spoke", "outcome", outcome.String())
}

func (n *VoiceNarrator) print(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.out, text)
}
