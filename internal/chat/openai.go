package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/selineapp/seline/internal/version"
)

// ClientOptions configures the shared OpenAI-compatible client.
type ClientOptions struct {
	APIKey  string
	BaseURL string
	// Transport overrides http.DefaultTransport.
	Transport http.RoundTripper
}

type headerTransport struct {
	rt      http.RoundTripper
	headers http.Header
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cl := req.Clone(req.Context())
	for k, vs := range t.headers {
		cl.Header.Del(k)
		for _, v := range vs {
			cl.Header.Add(k, v)
		}
	}
	return t.rt.RoundTrip(cl)
}

// NewClient builds a go-openai client that tags every request with the
// seline user agent. Chat, speech, and transcription share it.
func NewClient(opts ClientOptions) *openai.Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		cfg.BaseURL = base
	}

	rt := opts.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	h := http.Header{}
	h.Set("User-Agent", version.UserAgent())
	cfg.HTTPClient = &http.Client{Transport: headerTransport{rt: rt, headers: h}}

	return openai.NewClientWithConfig(cfg)
}

// OpenAI is the streaming chat backend.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAI returns a backend for model. timeout <= 0 disables the per-request bound.
func NewOpenAI(client *openai.Client, model string, timeout time.Duration) *OpenAI {
	return &OpenAI{client: client, model: model, timeout: timeout}
}

// StreamChat implements Backend.
func (o *OpenAI) StreamChat(ctx context.Context, req Request, onDelta func(string)) error {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt})

	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: wireTemperature(req.Temperature),
		Stream:      true,
	})
	if err != nil {
		return streamErr(ctx, "open chat stream", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return streamErr(ctx, "read chat stream", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" && onDelta != nil {
			onDelta(delta)
		}
	}
}

// wireTemperature keeps an explicit zero on the wire; go-openai omits a zero
// temperature and the server would apply its own default.
func wireTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// Ping lists models to confirm the endpoint and credentials work.
func (o *OpenAI) Ping(ctx context.Context) (int, error) {
	models, err := o.client.ListModels(ctx)
	if err != nil {
		return 0, fmt.Errorf("list models: %w", err)
	}
	return len(models.Models), nil
}

func streamErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return fmt.Errorf("%s: %w", op, err)
}
