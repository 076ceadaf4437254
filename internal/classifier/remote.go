package classifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oumizumi/Kairo-sub002/pkg/llm"
)

// ClassifyRequest is the body of POST /api/ai/classify/.
type ClassifyRequest struct {
	Message      string   `json:"message"`
	Prompt       string   `json:"prompt,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Context      []string `json:"context,omitempty"`
	Programs     []string `json:"programs,omitempty"`
	Model        string   `json:"model,omitempty"`
	Temperature  *float32 `json:"temperature,omitempty"`
	MaxTokens    int      `json:"max_tokens,omitempty"`
}

// ClassifyResponse is the reply of the classify endpoint. Classification
// holds the parsed JSON object when the model produced one, else its raw text.
type ClassifyResponse struct {
	Classification json.RawMessage `json:"classification"`
	Model          string          `json:"model,omitempty"`
	Usage          *llm.Usage      `json:"usage,omitempty"`
}

// ClassifyAPI calls a classify endpoint.
type ClassifyAPI interface {
	Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error)
}

// Remote classifies through a Kairo server.
type Remote struct {
	api      ClassifyAPI
	programs ProgramSource
}

// NewRemote creates a Remote classifier. programs may be nil.
func NewRemote(api ClassifyAPI, programs ProgramSource) *Remote {
	return &Remote{api: api, programs: programs}
}

func (r *Remote) Classify(ctx context.Context, text string) (*Result, error) {
	return r.ClassifyWithHistory(ctx, text, nil)
}

func (r *Remote) ClassifyWithHistory(ctx context.Context, text string, history []string) (*Result, error) {
	names := programNames(ctx, r.programs)
	resp, err := r.api.Classify(ctx, ClassifyRequest{
		Message:      text,
		Prompt:       BuildPrompt(text, names, history),
		SystemPrompt: SystemPrompt,
		Context:      history,
		Programs:     names,
	})
	if err != nil {
		return nil, fmt.Errorf("classify endpoint: %w", err)
	}
	res, err := ParseClassification(resp.Classification)
	if err != nil {
		return nil, err
	}
	res.Source = SourceRemote
	return res, nil
}

// LLM classifies by calling the model directly.
type LLM struct {
	client   llm.Client
	programs ProgramSource
}

// NewLLM creates an LLM classifier. programs may be nil.
func NewLLM(client llm.Client, programs ProgramSource) *LLM {
	return &LLM{client: client, programs: programs}
}

func (l *LLM) Classify(ctx context.Context, text string) (*Result, error) {
	return l.ClassifyWithHistory(ctx, text, nil)
}

func (l *LLM) ClassifyWithHistory(ctx context.Context, text string, history []string) (*Result, error) {
	out, err := l.client.Complete(ctx, llm.Request{
		System:      SystemPrompt,
		User:        BuildPrompt(text, programNames(ctx, l.programs), history),
		Temperature: 0.1,
		MaxTokens:   300,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}
	res, err := ParseResult(out.Text)
	if err != nil {
		return nil, err
	}
	res.Source = SourceLLM
	return res, nil
}
