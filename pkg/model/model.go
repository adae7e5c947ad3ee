// Package model defines the boundary between the agent loop and a generative
// model provider.
package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/registry"
)

// Model produces the next conversation items from the messages so far.
// Implementations own transport concerns such as authentication and retries.
type Model interface {
	Invoke(ctx context.Context, messages []domain.Message, tools []registry.Definition) (*Response, error)
}

// Response holds the items a model produced in one call: assistant messages,
// function calls, or both.
type Response struct {
	Output []domain.Message `json:"output"`
}

// Func adapts a plain function to Model.
type Func func(ctx context.Context, messages []domain.Message, tools []registry.Definition) (*Response, error)

func (f Func) Invoke(ctx context.Context, messages []domain.Message, tools []registry.Definition) (*Response, error) {
	return f(ctx, messages, tools)
}

// ErrScriptExhausted is returned by Scripted once every response has been served.
var ErrScriptExhausted = errors.New("scripted model has no responses left")

// Scripted replays canned responses in order. It is useful for tests and
// offline demos. Safe for concurrent use.
type Scripted struct {
	mu        sync.Mutex
	responses []Response
	calls     [][]domain.Message
}

// NewScripted creates a model that answers with responses, one per call.
func NewScripted(responses ...Response) *Scripted {
	return &Scripted{responses: responses}
}

// Invoke returns the next scripted response and records the messages it was called with.
func (s *Scripted) Invoke(ctx context.Context, messages []domain.Message, _ []registry.Definition) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, append([]domain.Message(nil), messages...))
	n := len(s.calls)
	if n > len(s.responses) {
		return nil, fmt.Errorf("call %d: %w", n, ErrScriptExhausted)
	}
	resp := s.responses[n-1]
	resp.Output = append([]domain.Message(nil), resp.Output...)
	return &resp, nil
}

// Calls returns the message lists the model was invoked with.
func (s *Scripted) Calls() [][]domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]domain.Message(nil), s.calls...)
}

// Reply is shorthand for a response holding a single assistant message.
func Reply(text string) Response {
	return Response{Output: []domain.Message{domain.AssistantMessage(text)}}
}

// Call is shorthand for a response requesting the given function calls.
func Call(calls ...domain.Message) Response {
	return Response{Output: calls}
}
