// Package llmtest provides completion clients for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/gamesmith/internal/llm"
	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock of llm.Client.
type MockClient struct {
	mock.Mock
}

// Complete implements llm.Client.
func (m *MockClient) Complete(ctx context.Context, systemPrompt string, turns []llm.Message, opts ...llm.CallOption) (string, error) {
	args := m.Called(ctx, systemPrompt, turns)
	return args.String(0), args.Error(1)
}

// Reply is one scripted completion result.
type Reply struct {
	Text string
	Err  error
}

// Request records what a Scripted client was asked.
type Request struct {
	System  string
	Turns   []llm.Message
	Options llm.CallOptions
}

// Scripted answers completions from a fixed list of replies, in order, and
// records every request.
type Scripted struct {
	mu       sync.Mutex
	replies  []Reply
	requests []Request
}

// NewScripted returns a client that answers with texts in order.
func NewScripted(texts ...string) *Scripted {
	s := &Scripted{}
	for _, t := range texts {
		s.replies = append(s.replies, Reply{Text: t})
	}
	return s
}

// ThenError appends a failing reply.
func (s *Scripted) ThenError(err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, Reply{Err: err})
	return s
}

// Complete implements llm.Client.
func (s *Scripted) Complete(ctx context.Context, systemPrompt string, turns []llm.Message, opts ...llm.CallOption) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var o llm.CallOptions
	for _, opt := range opts {
		opt(&o)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]llm.Message, len(turns))
	copy(copied, turns)
	s.requests = append(s.requests, Request{System: systemPrompt, Turns: copied, Options: o})

	idx := len(s.requests) - 1
	if idx >= len(s.replies) {
		return "", fmt.Errorf("llmtest: script exhausted after %d replies", len(s.replies))
	}
	r := s.replies[idx]
	return r.Text, r.Err
}

// Requests returns every request received so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Calls returns how many completions were requested.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

var (
	_ llm.Client = (*MockClient)(nil)
	_ llm.Client = (*Scripted)(nil)
)
