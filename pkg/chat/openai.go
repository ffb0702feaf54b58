package chat

import (
	"context"

	oa "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/pkg/errors"
)

const defaultModel = "gpt-4o-mini"

type openAIProvider struct {
	client oa.Client
	model  string
}

// NewOpenAI builds the OpenAI-backed provider. Model falls back to a
// small chat model when unset.
func NewOpenAI(apiKey, model string) (LLM, error) {
	if apiKey == "" {
		return nil, errors.New("openai: missing API key")
	}
	if model == "" {
		model = defaultModel
	}
	return &openAIProvider{client: oa.NewClient(option.WithAPIKey(apiKey)), model: model}, nil
}

func (p *openAIProvider) Name() string { return "openai" }

func (p *openAIProvider) Generate(ctx context.Context, messages []Message) (string, error) {
	mm := make([]oa.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			mm = append(mm, oa.SystemMessage(m.Content))
		case RoleAssistant:
			mm = append(mm, oa.AssistantMessage(m.Content))
		default:
			mm = append(mm, oa.UserMessage(m.Content))
		}
	}
	resp, err := p.client.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: mm,
	})
	if err != nil {
		return "", errors.Wrap(err, "openai completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}
