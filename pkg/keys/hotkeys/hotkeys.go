// Package hotkeys implements keys.Source with OS-level global hotkeys.
//
// It lives apart from package keys because it needs cgo and, on Linux,
// the X11 headers. On macOS the process must run hotkey callbacks on the
// main thread: call mainthread.Init from main and run the app inside it.
package hotkeys

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.design/x/hotkey"

	"github.com/teslashibe/voicenav/pkg/keys"
)

var codes = map[string]hotkey.Key{
	"space":  hotkey.KeySpace,
	"escape": hotkey.KeyEscape,
	"tab":    hotkey.KeyTab,
	"return": hotkey.KeyReturn,
	"s":      hotkey.KeyS,
	"k":      hotkey.KeyK,
	"f1":     hotkey.KeyF1,
	"f2":     hotkey.KeyF2,
	"f3":     hotkey.KeyF3,
	"f4":     hotkey.KeyF4,
}

// Source listens for the configured talk and skip keys system-wide.
type Source struct {
	bindings keys.Bindings
	logger   *slog.Logger

	events chan keys.Event

	mu      sync.Mutex
	started bool
	closed  bool
	hks     []*hotkey.Hotkey
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a hotkey source. Bindings are validated here.
func New(b keys.Bindings, logger *slog.Logger) (*Source, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		bindings: b,
		logger:   logger.With("component", "hotkeys"),
		events:   make(chan keys.Event, 16),
	}, nil
}

// Start registers both hotkeys.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("hotkeys: source closed")
	}
	if s.started {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	bind := []struct {
		key  keys.Key
		name string
	}{
		{keys.KeyTalk, keys.Normalize(s.bindings.Talk)},
		{keys.KeySkip, keys.Normalize(s.bindings.Skip)},
	}

	for _, b := range bind {
		hk := hotkey.New(nil, codes[b.name])
		if err := hk.Register(); err != nil {
			cancel()
			s.unregisterLocked()
			return fmt.Errorf("%w: %s (%v): %s", keys.ErrInputMonitoring, b.name, err, permissionHint())
		}
		s.hks = append(s.hks, hk)

		s.wg.Add(1)
		go s.forward(ctx, hk, b.key)
	}

	s.cancel = cancel
	s.started = true
	s.logger.Info("global hotkeys registered", "talk", s.bindings.Talk, "skip", s.bindings.Skip)
	return nil
}

func (s *Source) forward(ctx context.Context, hk *hotkey.Hotkey, key keys.Key) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-hk.Keydown():
			s.emit(keys.Event{Key: key, Pressed: true, Time: time.Now()})
		case <-hk.Keyup():
			s.emit(keys.Event{Key: key, Pressed: false, Time: time.Now()})
		}
	}
}

func (s *Source) emit(ev keys.Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("key event dropped", "key", ev.Key, "pressed", ev.Pressed)
	}
}

// Events returns the event channel.
func (s *Source) Events() <-chan keys.Event {
	return s.events
}

// Close unregisters the hotkeys and closes the event channel.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.unregisterLocked()
	s.mu.Unlock()

	close(s.events)
	return nil
}

func (s *Source) unregisterLocked() {
	for _, hk := range s.hks {
		if err := hk.Unregister(); err != nil {
			s.logger.Debug("unregister hotkey", "error", err)
		}
	}
	s.hks = nil
}

func permissionHint() string {
	switch runtime.GOOS {
	case "darwin":
		return "allow your terminal under System Settings > Privacy & Security > Accessibility"
	case "linux":
		return "global hotkeys need an X11 session; another application may already hold this key"
	default:
		return "another application may already hold this key"
	}
}

var _ keys.Source = (*Source)(nil)
