// Package llm streams text completions for generator nodes.
package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// TokenFunc receives the cumulative text produced so far. done is true exactly
// once, on the final call, when the stream finished normally.
type TokenFunc func(text string, done bool)

// Generator produces a completion for a prompt.
//
// Stream calls onToken for every partial result. It returns nil only after
// onToken has been called with done set. On error the stream ends without a
// done call and the partial text delivered so far stands.
type Generator interface {
	Stream(ctx context.Context, prompt string, onToken TokenFunc) error
}

// Reply is one scripted completion.
type Reply struct {
	// Chunks are appended to the text one at a time.
	Chunks []string
	// Err, when set, ends the stream after the chunks instead of done.
	Err error
	// Wait, when set, holds the stream until it is closed or ctx ends.
	Wait <-chan struct{}
}

// ErrScriptExhausted is returned when a Script has no replies left.
var ErrScriptExhausted = errors.New("script exhausted")

// Script is a Generator that plays back replies in order. It is safe for
// concurrent use and records every prompt it receives.
type Script struct {
	mu      sync.Mutex
	replies []Reply
	prompts []string
}

// NewScript creates a Script playing replies in order.
func NewScript(replies ...Reply) *Script {
	return &Script{replies: replies}
}

// Stream implements Generator.
func (s *Script) Stream(ctx context.Context, prompt string, onToken TokenFunc) error {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	if len(s.replies) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("prompt %q: %w", prompt, ErrScriptExhausted)
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	s.mu.Unlock()

	if r.Wait != nil {
		select {
		case <-r.Wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	text := ""
	for _, chunk := range r.Chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		text += chunk
		onToken(text, false)
	}
	if r.Err != nil {
		return r.Err
	}
	onToken(text, true)
	return nil
}

// Prompts returns the prompts received so far.
func (s *Script) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}
