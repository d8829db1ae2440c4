// Package memory keeps published audit events in process. It backs the
// service when no Pub/Sub topic is configured and doubles as a test fake.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// DefaultLimit bounds how many messages New retains.
const DefaultLimit = 256

// Publisher stores the most recent published payloads for inspection.
type Publisher struct {
	mu       sync.RWMutex
	limit    int
	total    int
	messages []PublishedMessage
}

// PublishedMessage captures one publish call.
type PublishedMessage struct {
	ID      string
	Topic   string
	Payload any
}

// New returns a Publisher retaining the last DefaultLimit messages.
func New() *Publisher {
	return NewWithLimit(DefaultLimit)
}

// NewWithLimit returns a Publisher retaining the last limit messages; limit
// <= 0 retains everything.
func NewWithLimit(limit int) *Publisher {
	return &Publisher{limit: limit}
}

// Publish records the message and returns a sequential ID.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("memory publish: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total++
	id := fmt.Sprintf("memory-%d", p.total)
	p.messages = append(p.messages, PublishedMessage{ID: id, Topic: topic, Payload: payload})
	if p.limit > 0 && len(p.messages) > p.limit {
		p.messages = append([]PublishedMessage(nil), p.messages[len(p.messages)-p.limit:]...)
	}
	return id, nil
}

// Messages returns a copy of the retained messages, oldest first.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}
