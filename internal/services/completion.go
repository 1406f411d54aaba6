package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"chat-backend/internal/models"
)

// Completion providers selectable through COMPLETION_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// CompletionProvider generates one reply for an ordered, role-tagged history.
type CompletionProvider interface {
	Name() string
	Complete(ctx context.Context, history []models.ChatMessage) (string, error)
}

type ProviderOptions struct {
	Name      string
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

// NewCompletionProvider builds the configured remote provider. A missing API
// key is not an error: it returns a nil provider and replies come from the
// fallback pool.
func NewCompletionProvider(ctx context.Context, opts ProviderOptions) (CompletionProvider, error) {
	if opts.APIKey == "" {
		return nil, nil
	}
	switch opts.Name {
	case ProviderOpenAI:
		return NewOpenAIProvider(opts), nil
	case ProviderGemini:
		p, err := NewGeminiProvider(ctx, opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderAnthropic:
		return NewAnthropicProvider(opts), nil
	}
	return nil, fmt.Errorf("unknown completion provider %q", opts.Name)
}

func ValidProviderName(name string) error {
	switch name {
	case ProviderOpenAI, ProviderGemini, ProviderAnthropic:
		return nil
	}
	return fmt.Errorf("unknown completion provider %q (want %s, %s or %s)", name, ProviderOpenAI, ProviderGemini, ProviderAnthropic)
}

// CompletionService calls the remote provider and masks its failures with a
// deterministic canned reply.
type CompletionService struct {
	provider CompletionProvider
	timeout  time.Duration
	rateChan chan struct{} // Token bucket
}

// NewCompletionService wraps provider, which may be nil. timeout bounds each
// upstream call (zero disables it); concurrentReqs caps in-flight calls.
func NewCompletionService(provider CompletionProvider, timeout time.Duration, concurrentReqs int) *CompletionService {
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &CompletionService{
		provider: provider,
		timeout:  timeout,
		rateChan: rateChan,
	}
}

// Configured reports whether a remote provider is in use.
func (s *CompletionService) Configured() bool {
	return s.provider != nil
}

// Complete returns the provider's reply, the placeholder for an empty reply,
// or a fallback reply when the provider is absent or fails. It errors only
// when ctx itself is done.
func (s *CompletionService) Complete(ctx context.Context, history []models.ChatMessage) (string, error) {
	if s.provider == nil {
		return FallbackReply(history), nil
	}

	reply, err := s.callProvider(ctx, history)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		log.Printf("%s completion failed, using fallback reply: %v", s.provider.Name(), err)
		return FallbackReply(history), nil
	}

	if strings.TrimSpace(reply) == "" {
		return EmptyReplyPlaceholder, nil
	}
	return reply, nil
}

func (s *CompletionService) callProvider(ctx context.Context, history []models.ChatMessage) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	return s.provider.Complete(ctx, history)
}

// acquireRate blocks until a rate slot is available
func (s *CompletionService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for completion slot: %w", ctx.Err())
	}
}

func (s *CompletionService) releaseRate() {
	s.rateChan <- struct{}{}
}

var errEmptyHistory = errors.New("empty conversation history")

// splitSystem separates system messages, joined into one instruction, from
// the user/assistant turns.
func splitSystem(history []models.ChatMessage) (string, []models.ChatMessage) {
	var system []string
	turns := make([]models.ChatMessage, 0, len(history))
	for _, m := range history {
		if m.Role == models.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return strings.Join(system, "\n\n"), turns
}
