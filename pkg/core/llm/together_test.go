package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	coreerrors "github.com/blacksky-llc/maurice-go/pkg/core/errors"
	"github.com/blacksky-llc/maurice-go/pkg/core/llm"
	"github.com/blacksky-llc/maurice-go/pkg/core/message"
)

// chatRequest mirrors the OpenAI-compatible request body for assertions.
type chatRequest struct {
	Model            string  `json:"model"`
	MaxTokens        int     `json:"max_tokens"`
	Temperature      float32 `json:"temperature"`
	TopP             float32 `json:"top_p"`
	FrequencyPenalty float32 `json:"frequency_penalty"`
	Stream           bool    `json:"stream"`
	Messages         []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	raw map[string]any
}

func newTogetherServer(t *testing.T, status int, lastReq *chatRequest) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("bad chat request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if lastReq != nil {
			data, _ := json.Marshal(raw)
			json.Unmarshal(data, lastReq)
			lastReq.raw = raw
		}

		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":{"message":"request rejected","type":"api_error"}}`)
			return
		}

		if stream, _ := raw["stream"].(bool); stream {
			w.Header().Set("Content-Type", "text/event-stream")
			tokens := []string{"Hel", "lo", "!"}
			for _, token := range tokens {
				fmt.Fprintf(w, `data: {"choices":[{"delta":{"content":%q}}]}`+"\n\n", token)
			}
			fmt.Fprint(w, `data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`+"\n\n")
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}

		fmt.Fprint(w, `{
			"choices":[{"message":{"role":"assistant","content":"Hello!"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":20,"completion_tokens":5,"total_tokens":25}
		}`)
	})
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2]},{"embedding":[0.3,0.4]}]}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestTogetherClient(t *testing.T, server *httptest.Server) *llm.TogetherClient {
	t.Helper()
	client, err := llm.NewTogetherClient(
		llm.WithAPIKey("test-key"),
		llm.WithBaseURL(server.URL+"/v1"),
		llm.WithMaxRetries(0),
	)
	if err != nil {
		t.Fatalf("NewTogetherClient failed: %v", err)
	}
	if err := client.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return client
}

func testPrompt(t *testing.T) string {
	t.Helper()
	return message.EncodePrompt("Be brief.", []message.Turn{
		{User: "Hi", Assistant: "Hello!"},
	}, "What do you do?")
}

func TestTogetherRequiresAPIKey(t *testing.T) {
	_, err := llm.NewTogetherClient()
	if !errors.Is(err, coreerrors.ErrInvalidAPIKey) {
		t.Fatalf("expected ErrInvalidAPIKey, got %v", err)
	}
}

func TestTogetherGenerateTranslatesPrompt(t *testing.T) {
	var lastReq chatRequest
	server := newTogetherServer(t, http.StatusOK, &lastReq)
	client := newTestTogetherClient(t, server)

	params := llm.Params{
		MaxTokens:     400,
		Temperature:   0.3,
		TopP:          0.9,
		RepeatPenalty: 1.1,
		Stop:          message.PromptStops(),
	}
	resp, err := client.Generate(context.Background(), testPrompt(t), params)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Content != "Hello!" {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	if resp.TokenUsage.TotalTokens != 25 {
		t.Fatalf("unexpected token usage: %+v", resp.TokenUsage)
	}

	// The flattened prompt is parsed back into structured messages.
	wantRoles := []string{"system", "user", "assistant", "user"}
	if len(lastReq.Messages) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %d: %+v", len(wantRoles), len(lastReq.Messages), lastReq.Messages)
	}
	for i, role := range wantRoles {
		if lastReq.Messages[i].Role != role {
			t.Fatalf("message %d: expected role %s, got %s", i, role, lastReq.Messages[i].Role)
		}
	}
	if lastReq.Messages[0].Content != "Be brief." {
		t.Fatalf("system content mismatch: %q", lastReq.Messages[0].Content)
	}
	if strings.Contains(lastReq.Messages[3].Content, "<|") {
		t.Fatalf("delimiters leaked into message content: %q", lastReq.Messages[3].Content)
	}

	// Multiplicative repeat penalty becomes additive frequency penalty.
	if diff := lastReq.FrequencyPenalty - 0.1; diff < -0.001 || diff > 0.001 {
		t.Fatalf("expected frequency_penalty 0.1, got %v", lastReq.FrequencyPenalty)
	}

	// Stop sequences are not forwarded to the hosted backend.
	if _, present := lastReq.raw["stop"]; present {
		t.Fatalf("stop sequences must not be forwarded: %v", lastReq.raw["stop"])
	}
}

func TestTogetherGenerateMalformedPrompt(t *testing.T) {
	server := newTogetherServer(t, http.StatusOK, nil)
	client := newTestTogetherClient(t, server)

	_, err := client.Generate(context.Background(), "not a flattened prompt", llm.Params{})
	if !errors.Is(err, message.ErrMalformedPrompt) {
		t.Fatalf("expected ErrMalformedPrompt, got %v", err)
	}
}

func TestTogetherGenerateAuthError(t *testing.T) {
	server := newTogetherServer(t, http.StatusUnauthorized, nil)
	client := newTestTogetherClient(t, server)

	_, err := client.Generate(context.Background(), testPrompt(t), llm.Params{})
	if !errors.Is(err, coreerrors.ErrInvalidAPIKey) {
		t.Fatalf("expected ErrInvalidAPIKey, got %v", err)
	}
}

func TestTogetherGenerateServerError(t *testing.T) {
	server := newTogetherServer(t, http.StatusServiceUnavailable, nil)
	client := newTestTogetherClient(t, server)

	_, err := client.Generate(context.Background(), testPrompt(t), llm.Params{})
	if !errors.Is(err, coreerrors.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestTogetherGenerateStream(t *testing.T) {
	server := newTogetherServer(t, http.StatusOK, nil)
	client := newTestTogetherClient(t, server)

	chunkCh, errCh := client.GenerateStream(context.Background(), testPrompt(t), llm.Params{})

	var b strings.Builder
	sawDone := false
	for chunk := range chunkCh {
		b.WriteString(chunk.Content)
		if chunk.Done {
			sawDone = true
			if chunk.FinishReason != "stop" {
				t.Fatalf("unexpected finish reason: %q", chunk.FinishReason)
			}
		}
	}
	if err := <-errCh; err != nil {
		t.Fatalf("stream error: %v", err)
	}

	if b.String() != "Hello!" {
		t.Fatalf("unexpected concatenated stream: %q", b.String())
	}
	if !sawDone {
		t.Fatalf("expected a terminal chunk")
	}
}

func TestTogetherEmbed(t *testing.T) {
	server := newTogetherServer(t, http.StatusOK, nil)
	client := newTestTogetherClient(t, server)

	vectors, err := client.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 2 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
}

func TestTogetherIdentity(t *testing.T) {
	server := newTogetherServer(t, http.StatusOK, nil)
	client := newTestTogetherClient(t, server)

	if client.Name() != "together" {
		t.Fatalf("unexpected backend name: %q", client.Name())
	}
	if client.Model() == "" {
		t.Fatalf("expected a default model")
	}
}
