// Package chat holds the displayed message history of the current session, the loader
// that fills it and the dispatcher that appends to it.
package chat

import (
	"clementus360/agent-client/types"
	"sync"
)

// History is the ordered, oldest-first message list shown to the user.
type History struct {
	mu       sync.RWMutex
	messages []types.Message
}

func (h *History) Messages() []types.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]types.Message(nil), h.messages...)
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

func (h *History) Append(m types.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, m)
}

func (h *History) Replace(messages []types.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append([]types.Message(nil), messages...)
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}
