package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/teslashibe/voicenav/pkg/audioio"
)

const providerSystem = "system"

// OutputPlaceholder in a System argv is replaced with a temporary WAV path.
// Without it the tool must write WAV to stdout.
const OutputPlaceholder = "{file}"

// System speaks with an on-device engine: espeak-ng on Linux, say on macOS.
// Text is written to the tool's stdin.
type System struct {
	config *Config
	logger *slog.Logger
}

// DefaultSystemCommand returns the platform's voice argv.
func DefaultSystemCommand() []string {
	if runtime.GOOS == "darwin" {
		return []string{"say", "-o", OutputPlaceholder, "--file-format=WAVE", "--data-format=LEI16@22050"}
	}
	return []string{"espeak-ng", "--stdout"}
}

// NewSystem creates a system voice provider. The tool must exist on PATH.
func NewSystem(opts ...Option) (*System, error) {
	cfg := DefaultConfig()
	cfg.Command = DefaultSystemCommand()
	cfg.Apply(opts...)

	if len(cfg.Command) == 0 {
		return nil, WrapError(providerSystem, errors.New("empty command"))
	}
	if _, err := exec.LookPath(cfg.Command[0]); err != nil {
		return nil, WrapError(providerSystem, fmt.Errorf("%s not installed: %w", cfg.Command[0], err))
	}

	return &System{
		config: cfg,
		logger: cfg.Logger.With("component", "tts.system", "tool", cfg.Command[0]),
	}, nil
}

// Name returns "system".
func (s *System) Name() string { return providerSystem }

// Synthesize runs the tool and decodes its WAV output.
func (s *System) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if text == "" {
		return nil, WrapError(providerSystem, ErrEmptyText)
	}
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}
	start := time.Now()

	var outPath string
	args := make([]string, 0, len(s.config.Command))
	for _, a := range s.config.Command {
		if strings.Contains(a, OutputPlaceholder) {
			if outPath == "" {
				dir, err := os.MkdirTemp("", "voicenav-tts-")
				if err != nil {
					return nil, WrapError(providerSystem, err)
				}
				defer os.RemoveAll(dir)
				outPath = filepath.Join(dir, "speech.wav")
			}
			a = strings.ReplaceAll(a, OutputPlaceholder, outPath)
		}
		args = append(args, a)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, WrapError(providerSystem, err)
	}

	wav := stdout.Bytes()
	if outPath != "" {
		data, err := os.ReadFile(outPath)
		if err != nil {
			return nil, WrapError(providerSystem, err)
		}
		wav = data
	}

	buf, err := audioio.DecodeWAV(wav)
	if err != nil {
		return nil, WrapError(providerSystem, err)
	}
	if buf.IsEmpty() {
		return nil, WrapError(providerSystem, ErrEmptyAudio)
	}

	latency := time.Since(start)
	s.logger.Debug("synthesized audio", "chars", len(text), "duration", buf.Duration(), "latency_ms", latency.Milliseconds())
	return newResult(providerSystem, text, buf, encodingFor(buf.SampleRate()), latency), nil
}

func encodingFor(rate int) Encoding {
	switch rate {
	case 16000:
		return EncodingPCM16
	case 22050:
		return EncodingPCM22
	case 44100:
		return EncodingPCM44
	default:
		return EncodingPCM24
	}
}

// Health checks the tool is still on PATH.
func (s *System) Health(ctx context.Context) error {
	_, err := exec.LookPath(s.config.Command[0])
	return WrapError(providerSystem, err)
}

// Close is a no-op.
func (s *System) Close() error { return nil }

var _ Provider = (*System)(nil)
