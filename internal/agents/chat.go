package agents

import (
	"context"

	"github.com/switchboard-ai/switchboard/internal/llm"
	"github.com/switchboard-ai/switchboard/pkg/models"
)

const defaultSystemPrompt = "You are a helpful AI assistant. Provide clear, concise, and accurate responses to the user's questions."

// ChatAgent answers general conversational requests with a single
// completion call.
type ChatAgent struct {
	cfg    Config
	client llm.Client
	system string
}

var _ Agent = (*ChatAgent)(nil)

// NewChatAgent builds a chat agent. The system prompt comes from the
// agent's params when configured.
func NewChatAgent(cfg Config) (Agent, error) {
	system := cfg.Spec.Params.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}
	return &ChatAgent{cfg: cfg, client: cfg.LLM, system: system}, nil
}

// Type implements Agent.
func (a *ChatAgent) Type() models.AgentType { return models.AgentTypeChat }

// Process generates one completion for the request text.
func (a *ChatAgent) Process(ctx context.Context, req *models.AgentRequest) (*models.AgentResponse, error) {
	content, err := a.client.Complete(ctx, llm.CompletionRequest{
		Model:       a.cfg.Spec.Model,
		System:      a.system,
		Prompt:      req.Content,
		Temperature: a.cfg.Spec.Temperature,
		MaxTokens:   a.cfg.Spec.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return &models.AgentResponse{
		Content: content,
		Success: true,
		Metadata: map[string]interface{}{
			"agent_type": string(models.AgentTypeChat),
			"model":      a.cfg.Spec.Model,
		},
	}, nil
}
