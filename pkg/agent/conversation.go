package agent

import (
	"context"
	"sync"
)

// Conversation keeps the item history across turns.
type Conversation struct {
	agent    Agent
	startURL string

	// OnItem, if set, sees every item added to the history.
	OnItem func(Item)

	mu    sync.Mutex
	items []Item
}

// NewConversation creates an empty conversation with a.
func NewConversation(a Agent, startURL string) *Conversation {
	return &Conversation{agent: a, startURL: startURL}
}

// Send runs text as the next turn and returns the agent's reply. On
// failure the history is left as it was.
func (c *Conversation) Send(ctx context.Context, text string, onStep StepFunc) (string, error) {
	user := Item{Role: RoleUser, Content: text}

	c.mu.Lock()
	items := append(append([]Item(nil), c.items...), user)
	c.mu.Unlock()

	if _, err := Task(items); err != nil {
		return "", err
	}

	out, err := c.agent.RunTurn(ctx, items, c.startURL, onStep)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.items = append(c.items, user)
	c.items = append(c.items, out...)
	c.mu.Unlock()

	if c.OnItem != nil {
		c.OnItem(user)
		for _, it := range out {
			c.OnItem(it)
		}
	}
	return Reply(out), nil
}

// Items returns a copy of the history.
func (c *Conversation) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Item(nil), c.items...)
}

// Reset forgets the history.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}
