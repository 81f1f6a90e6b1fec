package shopsearch

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/shopsearch/internal/usecase/interpret"
)

// Completer sends one system + user exchange to an LLM.
// Implementations should honour ctx cancellation; the client abandons calls
// that outlive the configured timeout.
type Completer interface {
	Complete(ctx context.Context, system, user string) (Completion, error)
}

// Completion is the text returned by a Completer with its token usage.
type Completion struct {
	Content      string
	PromptTokens int
	TotalTokens  int
}

// completerAdapter wraps a public Completer to satisfy interpret.Completer.
type completerAdapter struct {
	inner Completer
}

func (a *completerAdapter) Complete(ctx context.Context, system, user string) (interpret.Completion, error) {
	c, err := a.inner.Complete(ctx, system, user)
	if err != nil {
		return interpret.Completion{}, fmt.Errorf("complete: %w", err)
	}
	return interpret.Completion{
		Content:      c.Content,
		PromptTokens: c.PromptTokens,
		TotalTokens:  c.TotalTokens,
	}, nil
}
