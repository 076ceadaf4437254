package service

import (
	"context"
	"errors"
	"testing"

	"github.com/oumizumi/Kairo-sub002/internal/dto"
	"github.com/oumizumi/Kairo-sub002/pkg/llm"
)

func TestAIService_Exchange(t *testing.T) {
	tests := []struct {
		name       string
		req        dto.ClassifyRequest
		wantSystem string
		wantUser   string
	}{
		{
			name:       "prompt and system prompt",
			req:        dto.ClassifyRequest{Prompt: "classify: hi", SystemPrompt: "you classify"},
			wantSystem: "you classify",
			wantUser:   "classify: hi",
		},
		{
			name:       "system prompt with message",
			req:        dto.ClassifyRequest{SystemPrompt: "you classify", Message: "build my schedule"},
			wantSystem: "you classify",
			wantUser:   "build my schedule",
		},
		{
			name:       "prompt with message",
			req:        dto.ClassifyRequest{Prompt: "you classify", Message: "build my schedule"},
			wantSystem: "you classify",
			wantUser:   "build my schedule",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubLLM{text: `{"intent":"generate_schedule"}`}
			svc := NewAIService(testConfig(), client, testLogger())

			if _, err := svc.Classify(context.Background(), &tt.req); err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if client.last.System != tt.wantSystem || client.last.User != tt.wantUser {
				t.Errorf("exchange = (%q, %q), want (%q, %q)", client.last.System, client.last.User, tt.wantSystem, tt.wantUser)
			}
		})
	}
}

func TestAIService_Settings(t *testing.T) {
	client := &stubLLM{text: `{"intent":"course_info"}`}
	svc := NewAIService(testConfig(), client, testLogger())

	if _, err := svc.Classify(context.Background(), &dto.ClassifyRequest{SystemPrompt: "s", Message: "m"}); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if client.last.Model != "gemini-2.0-flash" || client.last.MaxTokens != 300 || client.last.Temperature != 0.1 {
		t.Errorf("defaults = %+v", client.last)
	}

	temp := float32(0.7)
	if _, err := svc.Classify(context.Background(), &dto.ClassifyRequest{
		SystemPrompt: "s", Message: "m", Model: "gemini-2.5-pro", Temperature: &temp, MaxTokens: 50,
	}); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if client.last.Model != "gemini-2.5-pro" || client.last.MaxTokens != 50 || client.last.Temperature != 0.7 {
		t.Errorf("overrides = %+v", client.last)
	}
}

func TestAIService_Classification(t *testing.T) {
	t.Run("json answer is passed through", func(t *testing.T) {
		svc := NewAIService(testConfig(), &stubLLM{text: " {\"intent\":\"generate_schedule\",\"confidence\":0.9}\n"}, testLogger())
		resp, err := svc.Classify(context.Background(), &dto.ClassifyRequest{SystemPrompt: "s", Message: "m"})
		if err != nil {
			t.Fatalf("Classify() error = %v", err)
		}
		if string(resp.Classification) != `{"intent":"generate_schedule","confidence":0.9}` {
			t.Errorf("classification = %s", resp.Classification)
		}
		if resp.Usage == nil || resp.Usage.TotalTokens != 20 {
			t.Errorf("usage = %+v", resp.Usage)
		}
		if resp.Model != "gemini-2.0-flash" {
			t.Errorf("model = %q", resp.Model)
		}
	})

	t.Run("plain text becomes a string", func(t *testing.T) {
		svc := NewAIService(testConfig(), &stubLLM{text: "general question"}, testLogger())
		resp, err := svc.Classify(context.Background(), &dto.ClassifyRequest{SystemPrompt: "s", Message: "m"})
		if err != nil {
			t.Fatalf("Classify() error = %v", err)
		}
		if string(resp.Classification) != `"general question"` {
			t.Errorf("classification = %s", resp.Classification)
		}
	})
}

func TestAIService_Errors(t *testing.T) {
	ctx := context.Background()

	svc := NewAIService(testConfig(), &stubLLM{}, testLogger())
	if _, err := svc.Classify(ctx, &dto.ClassifyRequest{Message: "m"}); !errors.Is(err, ErrPromptRequired) {
		t.Errorf("no prompt error = %v, want ErrPromptRequired", err)
	}
	if _, err := svc.Classify(ctx, &dto.ClassifyRequest{SystemPrompt: "s", Message: "  "}); !errors.Is(err, ErrMessageRequired) {
		t.Errorf("blank message error = %v, want ErrMessageRequired", err)
	}

	unconfigured := NewAIService(testConfig(), nil, testLogger())
	if _, err := unconfigured.Classify(ctx, &dto.ClassifyRequest{SystemPrompt: "s", Message: "m"}); !errors.Is(err, llm.ErrNotConfigured) {
		t.Errorf("nil client error = %v, want ErrNotConfigured", err)
	}

	for _, upstream := range []error{llm.ErrUnavailable, llm.ErrRateLimited, llm.ErrUpstream} {
		failing := NewAIService(testConfig(), &stubLLM{err: upstream}, testLogger())
		if _, err := failing.Classify(ctx, &dto.ClassifyRequest{SystemPrompt: "s", Message: "m"}); !errors.Is(err, upstream) {
			t.Errorf("error = %v, want %v", err, upstream)
		}
	}
}
