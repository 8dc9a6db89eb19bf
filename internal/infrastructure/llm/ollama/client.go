package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
	"github.com/juzgadolab/sentencia-ciudadana/internal/infrastructure/resilience"
)

// Client talks to a local Ollama server. It backs both the chat provider
// and the embedder so a single base URL and model pair configures the
// whole model surface.
type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// WithExecutor routes every model call through the shared retry and
// breaker policy.
func (c *Client) WithExecutor(executor *resilience.Executor) *Client {
	c.executor = executor
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string          `json:"model"`
	Messages []chatMessage   `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   json.RawMessage `json:"format,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

func (c *Client) Chat(ctx context.Context, messages []domain.Message) (string, error) {
	request := chatRequest{
		Model:    c.genModel,
		Messages: toChatMessages(messages),
		Stream:   false,
	}

	var response chatResponse
	if err := c.call(ctx, "model.chat", "/api/chat", request, &response); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Message.Content), nil
}

// ChatStructured constrains the completion to the given JSON schema and
// decodes the result into out.
func (c *Client) ChatStructured(ctx context.Context, messages []domain.Message, schema json.RawMessage, out any) error {
	request := chatRequest{
		Model:    c.genModel,
		Messages: toChatMessages(messages),
		Stream:   false,
		Format:   schema,
	}

	var response chatResponse
	if err := c.call(ctx, "model.chat_structured", "/api/chat", request, &response); err != nil {
		return err
	}
	raw := extractJSONObject(response.Message.Content)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("parse structured chat response: %w", err)
	}
	return nil
}

// CheckModel verifies the generation model is installed. Called once at
// startup so a missing pull fails fast instead of on the first request.
func (c *Client) CheckModel(ctx context.Context) error {
	var response struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := c.getJSON(ctx, "/api/tags", &response, "model.list"); err != nil {
		return err
	}
	for _, model := range response.Models {
		if model.Name == c.genModel || strings.TrimSuffix(model.Name, ":latest") == c.genModel {
			return nil
		}
	}
	return domain.WrapError(domain.ErrConfig, "model.check",
		fmt.Errorf("model %q not found on server %s", c.genModel, c.baseURL))
}

func (c *Client) call(ctx context.Context, operation, path string, request, response any) error {
	do := func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, request, response, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, do, classifyModelError)
	} else {
		err = do(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}

func toChatMessages(messages []domain.Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, chatMessage{Role: msg.Role, Content: msg.Content})
	}
	return out
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, "model.embed", "/api/embed", request, &response); err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
