package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/oumizumi/Kairo-sub002/config"
)

func TestGemini_NotConfigured(t *testing.T) {
	g, err := NewGemini(context.Background(), &config.AIConfig{Model: "gemini-2.0-flash"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewGemini: %v", err)
	}
	if g.DefaultModel() != "gemini-2.0-flash" {
		t.Errorf("unexpected default model %q", g.DefaultModel())
	}
	if _, err := g.Complete(context.Background(), Request{User: "hi"}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestClassifyErrors(t *testing.T) {
	cases := []struct {
		in   error
		want error
	}{
		{context.DeadlineExceeded, ErrUnavailable},
		{fmt.Errorf("Error 429, Message: quota, Status: RESOURCE_EXHAUSTED"), ErrRateLimited},
		{fmt.Errorf("Error 500, Message: boom"), ErrUpstream},
	}
	for _, tc := range cases {
		if got := classify(tc.in); !errors.Is(got, tc.want) {
			t.Errorf("classify(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
