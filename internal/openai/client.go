package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the dimensionality requested from the
	// embedding model. Stored and query embeddings must agree on this value;
	// a mismatch is a configuration error.
	DefaultEmbeddingDimensions = 768
	// DefaultIntentModel is the chat model used for slow-path intent extraction
	DefaultIntentModel = "gpt-4o-mini"
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrEmptyResponse is returned when the chat model returns no choices
	ErrEmptyResponse = errors.New("no completion returned")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// ChatAPI defines the interface for a single system+user chat exchange
type ChatAPI interface {
	CreateCompletion(ctx context.Context, system, user string) (string, error)
}

// Client wraps the OpenAI API for embeddings and intent extraction
type Client struct {
	embeddings EmbeddingAPI
	chat       ChatAPI
	dimensions int
}

// APIAdapter is the production EmbeddingAPI/ChatAPI implementation backed
// by the OpenAI SDK.
type APIAdapter struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
	intentModel    string
	dimensions     int
}

func NewAPIAdapter(apiKey string, embeddingModel openai.EmbeddingModel, intentModel string, dimensions int) *APIAdapter {
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	if intentModel == "" {
		intentModel = DefaultIntentModel
	}
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &APIAdapter{
		client:         openai.NewClient(apiKey),
		embeddingModel: embeddingModel,
		intentModel:    intentModel,
		dimensions:     dimensions,
	}
}

// CreateEmbeddings calls the OpenAI API to create an embedding
func (a *APIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      a.embeddingModel,
		Dimensions: a.dimensions,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// CreateCompletion performs one system+user chat exchange and returns the
// raw assistant message. The response is forced into JSON object mode.
func (a *APIAdapter) CreateCompletion(ctx context.Context, system, user string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.intentModel,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	IntentModel         string
}

// EmbeddingModelFromName converts a configured model name to the SDK's
// embedding model type, falling back to the default for an empty name.
func EmbeddingModelFromName(name string) openai.EmbeddingModel {
	if name == "" {
		return DefaultEmbeddingModel
	}
	return openai.EmbeddingModel(name)
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	adapter := NewAPIAdapter(cfg.APIKey, cfg.EmbeddingModel, cfg.IntentModel, dimensions)
	return &Client{
		embeddings: adapter,
		chat:       adapter,
		dimensions: dimensions,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.embeddings.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(embedding))
	}

	return embedding, nil
}

// CompleteIntent sends the fixed instruction prompt plus the user query to
// the chat model and returns the raw response text for parsing.
func (c *Client) CompleteIntent(ctx context.Context, system, query string) (string, error) {
	if query == "" {
		return "", ErrEmptyText
	}

	raw, err := c.chat.CreateCompletion(ctx, system, query)
	if err != nil {
		return "", fmt.Errorf("failed to complete intent: %w", err)
	}

	return raw, nil
}
