package ai

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// CompatibleProvider implements Provider for OpenAI-compatible APIs.
// This supports services like OpenRouter, Azure OpenAI, Ollama, etc.
type CompatibleProvider struct {
	client          openai.Client
	model           string
	thinking        bool
	thinkingBudget  int
	reasoningEffort string
}

// NewCompatibleProvider creates a new OpenAI-compatible provider.
func NewCompatibleProvider(apiKey, baseURL, model string, thinking bool, thinkingBudget int, reasoningEffort string) (*CompatibleProvider, error) {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)
	return &CompatibleProvider{
		client:          client,
		model:           model,
		thinking:        thinking,
		thinkingBudget:  thinkingBudget,
		reasoningEffort: reasoningEffort,
	}, nil
}

// Test sends a test message and returns the response.
func (p *CompatibleProvider) Test(ctx context.Context) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("Hello world"),
		},
	}

	opts := p.reasoningOptions(&params, true)

	resp, err := p.client.Chat.Completions.New(ctx, params, opts...)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Name returns the provider name.
func (p *CompatibleProvider) Name() string {
	return ProviderCompatible
}

// Complete generates a response without streaming.
func (p *CompatibleProvider) Complete(ctx context.Context, systemPrompt, content string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(content))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: messages,
	}

	opts := p.reasoningOptions(&params, false)

	resp, err := p.client.Chat.Completions.New(ctx, params, opts...)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// reasoningOptions builds the out-of-spec "reasoning" request field the
// compatible gateways understand. Effort-based mode targets o1/Grok
// style models, budget-based mode targets Anthropic/Gemini behind a
// gateway.
func (p *CompatibleProvider) reasoningOptions(params *openai.ChatCompletionNewParams, capTokens bool) []option.RequestOption {
	var opts []option.RequestOption

	if p.thinking {
		reasoning := map[string]interface{}{}
		if p.reasoningEffort != "" {
			reasoning["effort"] = p.reasoningEffort
		} else if p.thinkingBudget > 0 {
			reasoning["max_tokens"] = p.thinkingBudget
		}
		if len(reasoning) > 0 {
			opts = append(opts, option.WithJSONSet("reasoning", reasoning))
		} else if capTokens {
			params.MaxTokens = openai.Int(50)
		}
		return opts
	}

	if capTokens {
		params.MaxTokens = openai.Int(50)
	}
	// Explicitly disable reasoning
	opts = append(opts, option.WithJSONSet("reasoning", map[string]interface{}{
		"enabled": false,
	}))
	return opts
}
