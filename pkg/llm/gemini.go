package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/oumizumi/Kairo-sub002/config"
)

// Gemini is a Client backed by the Google GenAI SDK.
type Gemini struct {
	client *genai.Client
	cfg    config.AIConfig
	logger *zap.Logger
}

// NewGemini builds the client. A missing key is not an error: the returned
// client answers every call with ErrNotConfigured so the server can still start.
func NewGemini(ctx context.Context, cfg *config.AIConfig, logger *zap.Logger) (*Gemini, error) {
	g := &Gemini{cfg: *cfg, logger: logger}
	if cfg.APIKey == "" {
		logger.Warn("ai.api_key not set, classification falls back to heuristics")
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	g.client = client
	return g, nil
}

// DefaultModel configured model name
func (g *Gemini) DefaultModel() string { return g.cfg.Model }

// Complete runs one generation.
func (g *Gemini) Complete(ctx context.Context, req Request) (*Completion, error) {
	if g.client == nil {
		return nil, ErrNotConfigured
	}

	model := req.Model
	if model == "" || !strings.HasPrefix(model, "gemini") {
		model = g.cfg.Model
	}
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = g.cfg.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.cfg.MaxTokens
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: int32(maxTokens),
	}
	if req.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		genCfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(req.User), genCfg)
	if err != nil {
		g.logger.Error("genai request failed", zap.String("model", model), zap.Error(err))
		return nil, classify(err)
	}

	out := &Completion{Text: strings.TrimSpace(resp.Text()), Model: model}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = &Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED") {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
