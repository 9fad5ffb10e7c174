// Package agent connects the assistant to the browser-automation agent
// that carries out instructions.
//
// The agent itself (page navigation, clicking, the language model that
// decides what to do) runs elsewhere. This package defines the turn
// contract, a WebSocket client for a remote agent, and a Mock.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Role identifies who produced an Item.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Item is one message of the conversation.
type Item struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// StepFunc receives progress messages while a turn runs. Calls are
// made on the goroutine running the turn, in order.
type StepFunc func(step string)

// Agent runs conversation turns.
type Agent interface {
	// RunTurn runs the last item of items as the current task, with the
	// earlier items as context. startURL is opened before the first
	// turn. It returns the items produced by the agent.
	RunTurn(ctx context.Context, items []Item, startURL string, onStep StepFunc) ([]Item, error)

	// Close releases the agent's resources, such as its browser session.
	Close() error
}

// Turn contract errors.
var (
	ErrNoItems      = errors.New("agent: items cannot be empty")
	ErrLastNotUser  = errors.New("agent: last item must be a user message")
	ErrEmptyTask    = errors.New("agent: current user message is empty")
	ErrClosed       = errors.New("agent: closed")
	ErrDisconnected = errors.New("agent: connection lost")
)

// RemoteError is an error reported by the agent for a turn.
type RemoteError struct {
	TurnID  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("agent: turn %s: %s", e.TurnID, e.Message)
}

// Task checks items against the turn contract and returns the trimmed
// current task.
func Task(items []Item) (string, error) {
	if len(items) == 0 {
		return "", ErrNoItems
	}
	last := items[len(items)-1]
	if last.Role != RoleUser {
		return "", ErrLastNotUser
	}
	task := strings.TrimSpace(last.Content)
	if task == "" {
		return "", ErrEmptyTask
	}
	return task, nil
}

// History renders the items before the current task as
// "User: ...\nAgent: ..." pairs separated by blank lines. Items that do
// not form a user/assistant pair are left out.
func History(items []Item) string {
	if len(items) < 2 {
		return ""
	}
	prior := items[:len(items)-1]

	var pairs []string
	for i := 0; i < len(prior); i++ {
		if prior[i].Role == RoleUser && i+1 < len(prior) && prior[i+1].Role == RoleAssistant {
			pairs = append(pairs, "User: "+prior[i].Content+"\nAgent: "+prior[i+1].Content)
			i++
		}
	}
	return strings.Join(pairs, "\n\n")
}

// Reply joins the content of the assistant items.
func Reply(items []Item) string {
	var parts []string
	for _, it := range items {
		if it.Role == RoleAssistant && strings.TrimSpace(it.Content) != "" {
			parts = append(parts, strings.TrimSpace(it.Content))
		}
	}
	return strings.Join(parts, "\n")
}
