package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/blacksky-llc/maurice-go/pkg/chat"
	coreerrors "github.com/blacksky-llc/maurice-go/pkg/core/errors"
	"github.com/blacksky-llc/maurice-go/pkg/core/llm"
	"github.com/blacksky-llc/maurice-go/pkg/core/message"
)

// mockProvider is a scripted backend for chatbot tests.
type mockProvider struct {
	response   string
	tokens     []string
	failWith   error
	lastPrompt string
	loaded     bool
}

func (m *mockProvider) Load(ctx context.Context) error {
	m.loaded = true
	return nil
}

func (m *mockProvider) Generate(ctx context.Context, prompt string, params llm.Params) (llm.Response, error) {
	m.lastPrompt = prompt
	if m.failWith != nil {
		return llm.Response{}, m.failWith
	}
	return llm.Response{
		Content:      m.response,
		FinishReason: "stop",
		TokenUsage:   message.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (m *mockProvider) GenerateStream(ctx context.Context, prompt string, params llm.Params) (<-chan llm.StreamChunk, <-chan error) {
	m.lastPrompt = prompt
	chunkCh := make(chan llm.StreamChunk)
	errCh := make(chan error, 1)

	go func() {
		defer close(chunkCh)
		defer close(errCh)

		if m.failWith != nil {
			errCh <- m.failWith
			return
		}
		for i, token := range m.tokens {
			chunk := llm.StreamChunk{Content: token}
			if i == len(m.tokens)-1 {
				chunk.Done = true
				chunk.FinishReason = "stop"
			}
			select {
			case chunkCh <- chunk:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()

	return chunkCh, errCh
}

func (m *mockProvider) Ready() bool   { return m.loaded }
func (m *mockProvider) Name() string  { return "mock" }
func (m *mockProvider) Model() string { return "mock-model" }
func (m *mockProvider) Close() error  { return nil }

var _ llm.Provider = (*mockProvider)(nil)

func TestChat(t *testing.T) {
	provider := &mockProvider{response: "  Hello, I'm Maurice.  "}
	bot := chat.NewChatbot(provider, chat.NewPromptBuilder())

	if err := bot.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	result, err := bot.Chat(context.Background(), chat.ChatRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if result.Content != "Hello, I'm Maurice." {
		t.Fatalf("expected trimmed content, got %q", result.Content)
	}
	if result.TokenUsage.TotalTokens != 15 {
		t.Fatalf("unexpected token usage: %+v", result.TokenUsage)
	}

	history := bot.History()
	if len(history) != 1 {
		t.Fatalf("expected 1 turn in history, got %d", len(history))
	}
	if history[0].User != "hi" || history[0].Assistant != "Hello, I'm Maurice." {
		t.Fatalf("unexpected history turn: %+v", history[0])
	}
}

func TestChatFailureLeavesHistoryClean(t *testing.T) {
	provider := &mockProvider{failWith: coreerrors.ErrProviderUnavailable}
	bot := chat.NewChatbot(provider, chat.NewPromptBuilder())

	_, err := bot.Chat(context.Background(), chat.ChatRequest{Message: "hi"})
	if !errors.Is(err, coreerrors.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}

	if len(bot.History()) != 0 {
		t.Fatalf("failed request must not pollute history")
	}
}

func TestChatHistoryFlowsIntoPrompt(t *testing.T) {
	provider := &mockProvider{response: "first answer"}
	bot := chat.NewChatbot(provider, chat.NewPromptBuilder())

	ctx := context.Background()
	if _, err := bot.Chat(ctx, chat.ChatRequest{Message: "first question"}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	provider.response = "second answer"
	if _, err := bot.Chat(ctx, chat.ChatRequest{Message: "second question"}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if !strings.Contains(provider.lastPrompt, "first question") ||
		!strings.Contains(provider.lastPrompt, "first answer") {
		t.Fatalf("previous turn missing from prompt:\n%s", provider.lastPrompt)
	}
}

func TestChatStreamMatchesChat(t *testing.T) {
	provider := &mockProvider{tokens: []string{"Hel", "lo", " there."}}
	bot := chat.NewChatbot(provider, chat.NewPromptBuilder())

	eventCh, errCh := bot.ChatStream(context.Background(), chat.ChatRequest{Message: "hi"})

	var b strings.Builder
	for event := range eventCh {
		token, ok := event.(chat.TokenEvent)
		if !ok {
			t.Fatalf("unexpected event type %T with debug disabled", event)
		}
		b.WriteString(token.Token)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("stream error: %v", err)
	}

	if b.String() != "Hello there." {
		t.Fatalf("unexpected concatenated stream: %q", b.String())
	}

	history := bot.History()
	if len(history) != 1 || history[0].Assistant != "Hello there." {
		t.Fatalf("stream result not recorded in history: %+v", history)
	}
}

func TestChatStreamDebugEventFirst(t *testing.T) {
	provider := &mockProvider{tokens: []string{"ok"}}
	bot := chat.NewChatbot(provider, chat.NewPromptBuilder(), chat.WithDebug(true))

	eventCh, errCh := bot.ChatStream(context.Background(), chat.ChatRequest{Message: "hi"})

	var events []chat.StreamEvent
	for event := range eventCh {
		events = append(events, event)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("stream error: %v", err)
	}

	if len(events) < 2 {
		t.Fatalf("expected debug event plus tokens, got %d events", len(events))
	}
	debug, ok := events[0].(chat.DebugEvent)
	if !ok {
		t.Fatalf("first event must be DebugEvent, got %T", events[0])
	}
	if debug.Debug == nil || debug.Debug.PromptLength == 0 {
		t.Fatalf("debug event not populated: %+v", debug.Debug)
	}
	for _, event := range events[1:] {
		if _, ok := event.(chat.TokenEvent); !ok {
			t.Fatalf("expected only TokenEvent after debug, got %T", event)
		}
	}
}

func TestChatStreamFailureLeavesHistoryClean(t *testing.T) {
	provider := &mockProvider{failWith: coreerrors.ErrRateLimited}
	bot := chat.NewChatbot(provider, chat.NewPromptBuilder())

	eventCh, errCh := bot.ChatStream(context.Background(), chat.ChatRequest{Message: "hi"})
	for range eventCh {
	}
	if err := <-errCh; !errors.Is(err, coreerrors.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	if len(bot.History()) != 0 {
		t.Fatalf("failed stream must not pollute history")
	}
}

func TestClearHistory(t *testing.T) {
	provider := &mockProvider{response: "answer"}
	bot := chat.NewChatbot(provider, chat.NewPromptBuilder())

	if _, err := bot.Chat(context.Background(), chat.ChatRequest{Message: "hi"}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	bot.ClearHistory()
	if len(bot.History()) != 0 {
		t.Fatalf("expected empty history after clear")
	}
}

func TestStats(t *testing.T) {
	provider := &mockProvider{response: "answer"}
	bot := chat.NewChatbot(provider, chat.NewPromptBuilder(chat.WithMaxHistoryTurns(6)))

	ctx := context.Background()
	if _, err := bot.Chat(ctx, chat.ChatRequest{Message: "hi"}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	stats := bot.Stats(ctx)
	if stats.HistoryTurns != 1 {
		t.Fatalf("expected 1 history turn, got %d", stats.HistoryTurns)
	}
	if stats.MaxHistoryTurns != 6 {
		t.Fatalf("expected max 6 turns, got %d", stats.MaxHistoryTurns)
	}
	if stats.Backend != "mock" || stats.Model != "mock-model" {
		t.Fatalf("unexpected backend identity: %+v", stats)
	}
	if stats.RetrievalEnabled {
		t.Fatalf("retrieval should be disabled")
	}
}
