package audioio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// commandSpec describes an external tool that streams raw PCM16 on stdout
// (capture) or reads it on stdin (playback).
type commandSpec struct {
	backend Backend
	device  string
	name    string
	args    []string
}

func (s commandSpec) label() string {
	if s.device == "" {
		return string(s.backend)
	}
	return string(s.backend) + ":" + s.device
}

// lookup resolves the tool binary or returns a DeviceError with install guidance.
func (s commandSpec) lookup() (string, error) {
	path, err := exec.LookPath(s.name)
	if err != nil {
		cause := fmt.Errorf("%w: %s not found", ErrDeviceUnavailable, s.name)
		return "", &DeviceError{Device: s.label(), Op: "open", Err: cause, Hint: hintFor(s.backend, cause)}
	}
	return path, nil
}

func (s commandSpec) deviceError(op string, stderr string, cause error) error {
	err := classifyStderr(stderr, cause)
	return &DeviceError{Device: s.label(), Op: op, Err: err, Hint: hintFor(s.backend, err)}
}

// lockedBuffer collects stderr from a child process.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// commandSource captures audio by reading a recorder tool's stdout.
type commandSource struct {
	cfg    Config
	spec   commandSpec
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	streamCh chan AudioChunk
	cancel   context.CancelFunc
	done     chan struct{}
	exitErr  error

	// Stats
	chunksRead  atomic.Int64
	samplesRead atomic.Int64
	overruns    atomic.Int64
}

func newCommandSource(cfg Config, spec commandSpec, logger *slog.Logger) *commandSource {
	closed := make(chan AudioChunk)
	close(closed)
	return &commandSource{
		cfg:      cfg,
		spec:     spec,
		logger:   logger,
		streamCh: closed,
	}
}

// Start launches the recorder tool.
func (s *commandSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	path, err := s.spec.lookup()
	if err != nil {
		return err
	}

	cctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(cctx, path, s.spec.args...)
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return s.spec.deviceError("open", "", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return s.spec.deviceError("open", stderr.String(), err)
	}

	ch := make(chan AudioChunk, 32)
	done := make(chan struct{})
	s.running = true
	s.streamCh = ch
	s.cancel = cancel
	s.done = done
	s.exitErr = nil

	go s.captureLoop(cctx, cmd, stdout, stderr, ch, done)

	s.logger.Debug("audio source started",
		"backend", s.spec.backend,
		"device", s.spec.device,
	)
	return nil
}

func (s *commandSource) captureLoop(ctx context.Context, cmd *exec.Cmd, stdout io.Reader, stderr *lockedBuffer, ch chan AudioChunk, done chan struct{}) {
	defer close(done)
	defer close(ch)

	buf := make([]byte, s.cfg.BufferBytes())
	for {
		n, err := io.ReadFull(stdout, buf)
		if n >= 2 {
			chunk := ChunkFromBytes(buf[:n-n%2], s.cfg.SampleRate, s.cfg.Channels)
			select {
			case ch <- chunk:
				s.chunksRead.Add(1)
				s.samplesRead.Add(int64(len(chunk.Samples)))
			default:
				s.overruns.Add(1)
				s.logger.Debug("audio source: buffer full, dropping chunk")
			}
		}
		if err != nil {
			break
		}
	}

	waitErr := cmd.Wait()
	if ctx.Err() == nil {
		// The tool exited on its own: the device refused us or went away.
		if waitErr == nil {
			waitErr = errors.New("recorder exited")
		}
		exitErr := s.spec.deviceError("read", stderr.String(), waitErr)
		s.mu.Lock()
		s.exitErr = exitErr
		s.mu.Unlock()
		s.logger.Warn("audio source exited", "error", exitErr)
	}
}

// Stop kills the recorder tool and waits for the stream to close.
func (s *commandSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		err := s.exitErr
		s.exitErr = nil
		s.mu.Unlock()
		return err
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	err := s.exitErr
	s.exitErr = nil
	s.mu.Unlock()

	s.logger.Debug("audio source stopped", "backend", s.spec.backend)
	return err
}

// Read reads the next audio chunk.
func (s *commandSource) Read(ctx context.Context) (AudioChunk, error) {
	ch := s.Stream()
	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	case chunk, ok := <-ch:
		if !ok {
			return AudioChunk{}, io.EOF
		}
		return chunk, nil
	}
}

// Stream returns the audio chunk channel of the current run.
func (s *commandSource) Stream() <-chan AudioChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamCh
}

// Config returns the audio configuration.
func (s *commandSource) Config() Config {
	return s.cfg
}

// Name returns the backend name.
func (s *commandSource) Name() string {
	return string(s.spec.backend)
}

// Close releases resources.
func (s *commandSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.Stop()
	return nil
}

// Stats returns source statistics.
func (s *commandSource) Stats() SourceStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return SourceStats{
		ChunksRead:  s.chunksRead.Load(),
		SamplesRead: s.samplesRead.Load(),
		Overruns:    s.overruns.Load(),
		Running:     running,
		Backend:     string(s.spec.backend),
	}
}

var _ SourceWithStats = (*commandSource)(nil)

// commandSink plays audio by feeding a player tool's stdin.
// The process is spawned lazily on the first Write and killed by Clear,
// which is the only reliable way to drop audio the tool has already buffered.
type commandSink struct {
	cfg    Config
	spec   commandSpec
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	closed  bool
	proc    *sinkProcess

	// Stats
	chunksWritten  atomic.Int64
	samplesWritten atomic.Int64
	clears         atomic.Int64
}

type sinkProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *lockedBuffer
}

func newCommandSink(cfg Config, spec commandSpec, logger *slog.Logger) *commandSink {
	return &commandSink{cfg: cfg, spec: spec, logger: logger}
}

// Start checks the player tool is available.
func (s *commandSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if _, err := s.spec.lookup(); err != nil {
		return err
	}
	s.running = true
	return nil
}

// Stop kills any running player.
func (s *commandSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	s.killLocked()
	return nil
}

func (s *commandSink) spawnLocked() error {
	path, err := s.spec.lookup()
	if err != nil {
		return err
	}

	cmd := exec.Command(path, s.spec.args...)
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return s.spec.deviceError("open", "", err)
	}
	if err := cmd.Start(); err != nil {
		return s.spec.deviceError("open", stderr.String(), err)
	}

	s.proc = &sinkProcess{cmd: cmd, stdin: stdin, stderr: stderr}
	return nil
}

func (s *commandSink) killLocked() {
	if s.proc == nil {
		return
	}
	s.proc.stdin.Close()
	if s.proc.cmd.Process != nil {
		s.proc.cmd.Process.Kill()
	}
	s.proc.cmd.Wait()
	s.proc = nil
}

// Write sends PCM to the player's stdin.
func (s *commandSink) Write(ctx context.Context, chunk AudioChunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.running {
		return io.ErrClosedPipe
	}
	if s.proc == nil {
		if err := s.spawnLocked(); err != nil {
			return err
		}
	}

	if _, err := s.proc.stdin.Write(chunk.Bytes()); err != nil {
		stderr := s.proc.stderr.String()
		s.killLocked()
		return s.spec.deviceError("write", stderr, err)
	}

	s.chunksWritten.Add(1)
	s.samplesWritten.Add(int64(len(chunk.Samples)))
	return nil
}

// Flush closes the player's stdin and waits for it to drain.
func (s *commandSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	proc := s.proc
	s.proc = nil
	s.mu.Unlock()

	if proc == nil {
		return nil
	}

	proc.stdin.Close()
	done := make(chan error, 1)
	go func() { done <- proc.cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return s.spec.deviceError("write", proc.stderr.String(), err)
		}
		return nil
	case <-ctx.Done():
		proc.cmd.Process.Kill()
		<-done
		return ctx.Err()
	case <-time.After(10 * time.Second):
		proc.cmd.Process.Kill()
		<-done
		return s.spec.deviceError("flush", proc.stderr.String(), errors.New("player did not exit"))
	}
}

// Clear kills the player, dropping whatever it buffered.
func (s *commandSink) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.killLocked()
	s.clears.Add(1)
	return nil
}

// Config returns the audio configuration.
func (s *commandSink) Config() Config {
	return s.cfg
}

// Name returns the backend name.
func (s *commandSink) Name() string {
	return string(s.spec.backend)
}

// Close releases resources.
func (s *commandSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.Stop()
}

// Stats returns sink statistics.
func (s *commandSink) Stats() SinkStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return SinkStats{
		ChunksWritten:  s.chunksWritten.Load(),
		SamplesWritten: s.samplesWritten.Load(),
		Clears:         s.clears.Load(),
		Running:        running,
		Backend:        string(s.spec.backend),
	}
}

var _ SinkWithStats = (*commandSink)(nil)
