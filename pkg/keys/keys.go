// Package keys turns global keyboard activity into push-to-talk and skip events.
//
// Two logical keys exist. The talk key is held while speaking; its press and
// release bracket a recording. The skip key interrupts playback. Physical
// bindings are configurable by name ("space", "escape", "f1", ...).
package keys

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Key is a logical control key.
type Key int

const (
	// KeyTalk is the push-to-talk key.
	KeyTalk Key = iota
	// KeySkip interrupts playback.
	KeySkip
)

func (k Key) String() string {
	switch k {
	case KeyTalk:
		return "talk"
	case KeySkip:
		return "skip"
	default:
		return fmt.Sprintf("key(%d)", int(k))
	}
}

// Event is a single press or release.
type Event struct {
	Key     Key
	Pressed bool
	Time    time.Time
}

// Source delivers key events.
//
// Events must be consumed promptly; sources drop events rather than block
// the OS callback that produced them.
type Source interface {
	// Start begins listening. It returns once hooks are installed.
	Start(ctx context.Context) error

	// Events returns the event channel. It is closed after Close.
	Events() <-chan Event

	// Close removes the hooks.
	Close() error
}

// Bindings names the physical keys for each logical key.
type Bindings struct {
	Talk string
	Skip string
}

// DefaultBindings returns space to talk and escape to skip.
func DefaultBindings() Bindings {
	return Bindings{Talk: "space", Skip: "escape"}
}

var (
	// ErrUnknownKey is returned for a binding name that is not recognised.
	ErrUnknownKey = errors.New("keys: unknown key name")

	// ErrInputMonitoring is returned when the OS refuses a global key hook.
	ErrInputMonitoring = errors.New("keys: global key hook refused")
)

// Validate checks both names resolve and are distinct.
func (b Bindings) Validate() error {
	talk := Normalize(b.Talk)
	skip := Normalize(b.Skip)
	if _, ok := keyNames[talk]; !ok {
		return fmt.Errorf("%w: talk=%q", ErrUnknownKey, b.Talk)
	}
	if _, ok := keyNames[skip]; !ok {
		return fmt.Errorf("%w: skip=%q", ErrUnknownKey, b.Skip)
	}
	if talk == skip {
		return fmt.Errorf("keys: talk and skip are both bound to %q", talk)
	}
	return nil
}

// keyNames lists accepted binding names.
var keyNames = map[string]struct{}{
	"space": {}, "escape": {}, "tab": {}, "return": {},
	"s": {}, "k": {},
	"f1": {}, "f2": {}, "f3": {}, "f4": {},
}

var aliases = map[string]string{
	"esc":   "escape",
	"enter": "return",
}

// Normalize lower-cases a binding name and resolves aliases such as "esc".
func Normalize(name string) string {
	if name == " " {
		return "space"
	}
	n := strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[n]; ok {
		return a
	}
	return n
}

// KeyNames returns the accepted binding names, sorted.
func KeyNames() []string {
	names := make([]string, 0, len(keyNames))
	for n := range keyNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
