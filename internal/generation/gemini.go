package generation

import (
	"context"
	"fmt"
	"time"

	"fitcoach/programgen/internal/config"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiService generates structured content with the Gemini API.
type GeminiService struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      *zap.Logger
}

// NewGeminiService creates the client used for every generation call.
func NewGeminiService(ctx context.Context, cfg config.GenerationConfig, logger *zap.Logger) (*GeminiService, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiService{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.CallTimeout,
		logger:      logger,
	}, nil
}

// Generate issues one GenerateContent call asking for JSON that matches req.Schema.
func (s *GeminiService) Generate(ctx context.Context, req Request) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	temp := s.temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
		Temperature:      genai.Ptr(temp),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	start := time.Now()
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("GenAI generate (%s) failed: %w", req.Step, err)
	}
	text := resp.Text()
	s.logger.Debug("generation call finished",
		zap.String("step", string(req.Step)),
		zap.Duration("latency", time.Since(start)),
		zap.Int("chars", len(text)))
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// GeminiEmbedder generates embeddings using Google's Gemini API.
type GeminiEmbedder struct {
	client   *genai.Client
	model    string
	taskType string
}

// NewGeminiEmbedder creates an embedder for program summaries.
func NewGeminiEmbedder(ctx context.Context, cfg config.GenerationConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	model := cfg.EmbeddingModel
	if model == "" {
		model = "gemini-embedding-001"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiEmbedder{client: client, model: model, taskType: "SEMANTIC_SIMILARITY"}, nil
}

// Embed generates an embedding for a single text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := e.client.Models.EmbedContent(ctx,
		e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{TaskType: e.taskType},
	)
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}
