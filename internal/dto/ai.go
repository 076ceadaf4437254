package dto

// ── ai ──

// ClassifyRequest body of POST /api/ai/classify/. At least one of Prompt and
// SystemPrompt is required; the check lives in the service so the error
// message matches the upstream contract.
type ClassifyRequest struct {
	Message      string   `json:"message"       binding:"omitempty,max=4000"`
	Prompt       string   `json:"prompt"        binding:"omitempty,max=20000"`
	SystemPrompt string   `json:"system_prompt" binding:"omitempty,max=8000"`
	Context      []string `json:"context"       binding:"omitempty,max=20"`
	Programs     []string `json:"programs"`
	Model        string   `json:"model"         binding:"omitempty,max=100"`
	Temperature  *float32 `json:"temperature"   binding:"omitempty,gte=0,lte=2"`
	MaxTokens    int      `json:"max_tokens"    binding:"omitempty,min=1,max=4096"`
}

// ResetResponse what /api/ai/reset/ cleared
type ResetResponse struct {
	Message        string `json:"message"`
	HistoryCleared int    `json:"history_cleared"`
	SessionCleared bool   `json:"session_cleared"`
}
