package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/teslashibe/voicenav/pkg/audioio"
)

// FilePlaceholder in a Command argv is replaced with the WAV path.
const FilePlaceholder = "{file}"

// Command runs an on-device transcriber such as whisper.cpp. The audio is
// written to a temporary WAV file and the tool's stdout is the transcript.
type Command struct {
	config *Config
	logger *slog.Logger
}

// NewCommand creates a local transcriber. If argv has no {file}
// placeholder the path is appended as the last argument.
func NewCommand(opts ...Option) (*Command, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if len(cfg.Command) == 0 {
		return nil, errors.New("stt: command provider needs an argv")
	}
	return &Command{
		config: cfg,
		logger: cfg.Logger.With("component", "stt.command", "tool", cfg.Command[0]),
	}, nil
}

// Name returns "command".
func (p *Command) Name() string { return "command" }

// Transcribe runs the tool on buf.
func (p *Command) Transcribe(ctx context.Context, buf audioio.Buffer) (string, error) {
	if err := checkAudio(p.Name(), buf); err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", "voicenav-*.wav")
	if err != nil {
		return "", wrap(p.Name(), 0, err)
	}
	path := f.Name()
	defer os.Remove(path)

	_, werr := f.Write(audioio.EncodeWAV(buf.Convert(audioio.CaptureSampleRate, 1)))
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return "", wrap(p.Name(), 0, werr)
	}

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	args := p.argv(path)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return "", wrap(p.Name(), 0, err)
	}

	text := strings.Join(strings.Fields(stdout.String()), " ")
	if text == "" {
		return "", wrap(p.Name(), 0, ErrNoSpeech)
	}
	p.logger.Debug("transcribed", "audio", buf.Duration(), "chars", len(text))
	return text, nil
}

func (p *Command) argv(path string) []string {
	out := make([]string, 0, len(p.config.Command)+1)
	replaced := false
	for _, a := range p.config.Command {
		if strings.Contains(a, FilePlaceholder) {
			a = strings.ReplaceAll(a, FilePlaceholder, path)
			replaced = true
		}
		out = append(out, a)
	}
	if !replaced {
		out = append(out, path)
	}
	return out
}

var _ Provider = (*Command)(nil)
