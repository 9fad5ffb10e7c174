package httpc

import (
	"net/http"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	c := NewClient(5 * time.Second)
	if c.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", c.Timeout)
	}
	if _, ok := c.Transport.(*http.Transport); !ok {
		t.Errorf("expected *http.Transport, got %T", c.Transport)
	}
}

func TestOrDefault(t *testing.T) {
	if OrDefault(nil) != Client {
		t.Error("nil should map to the shared client")
	}
	custom := &http.Client{}
	if OrDefault(custom) != custom {
		t.Error("non-nil client should be returned unchanged")
	}
}
