package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oumizumi/Kairo-sub002/config"
	"github.com/oumizumi/Kairo-sub002/internal/classifier"
	"github.com/oumizumi/Kairo-sub002/internal/dto"
	"github.com/oumizumi/Kairo-sub002/pkg/llm"
)

var (
	ErrPromptRequired  = errors.New("either 'prompt' or 'system_prompt' must be provided")
	ErrMessageRequired = errors.New("'message' must be provided")
)

// AIService model-backed classification for clients without their own key.
type AIService interface {
	// Classify sends one system+user exchange to the model. Model failures
	// are llm.ErrNotConfigured, llm.ErrUnavailable, llm.ErrRateLimited or llm.ErrUpstream.
	Classify(ctx context.Context, req *dto.ClassifyRequest) (*classifier.ClassifyResponse, error)
}

type aiService struct {
	cfg    config.AIConfig
	client llm.Client
	logger *zap.Logger
}

// NewAIService creates an AIService. client may be nil when no key is configured.
func NewAIService(cfg *config.Config, client llm.Client, logger *zap.Logger) AIService {
	return &aiService{cfg: cfg.AI, client: client, logger: logger}
}

func (s *aiService) Classify(ctx context.Context, req *dto.ClassifyRequest) (*classifier.ClassifyResponse, error) {
	// 1. the exchange: prompt and system_prompt together carry everything,
	// a single one is the instruction for message
	var system, user string
	switch {
	case req.Prompt != "" && req.SystemPrompt != "":
		system, user = req.SystemPrompt, req.Prompt
	case req.Prompt != "" || req.SystemPrompt != "":
		system, user = req.Prompt+req.SystemPrompt, req.Message
	default:
		return nil, ErrPromptRequired
	}
	if strings.TrimSpace(user) == "" {
		return nil, ErrMessageRequired
	}
	if s.client == nil {
		return nil, llm.ErrNotConfigured
	}

	// 2. call
	temperature := s.cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := s.cfg.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	model := req.Model
	if model == "" {
		model = s.client.DefaultModel()
	}

	ctx, cancel := context.WithTimeout(ctx, config.DurationOr(s.cfg.Timeout, 20*time.Second))
	defer cancel()

	out, err := s.client.Complete(ctx, llm.Request{
		Model:       model,
		System:      system,
		User:        user,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		s.logger.Error("classification failed", zap.String("model", model), zap.Error(err))
		return nil, err
	}

	// 3. structured when the model answered JSON, else the raw text
	text := strings.TrimSpace(out.Text)
	var classification json.RawMessage
	if text != "" && json.Valid([]byte(text)) {
		classification = json.RawMessage(text)
	} else {
		classification, _ = json.Marshal(text)
	}
	if out.Model != "" {
		model = out.Model
	}
	return &classifier.ClassifyResponse{
		Classification: classification,
		Model:          model,
		Usage:          out.Usage,
	}, nil
}
