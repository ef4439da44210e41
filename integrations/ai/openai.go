package ai

import (
	"context"
	"fmt"
	"strings"

	domainBot "github.com/AzielCF/az-reply/domains/bot"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"
)

const defaultOpenAIModel = "gpt-4o-mini"

type openaiProvider struct {
	client       openai.Client
	model        string
	systemPrompt string
}

func NewOpenAIProvider(apiKey, model, systemPrompt string) domainBot.IAIProvider {
	if model == "" {
		model = defaultOpenAIModel
	}
	logrus.Infof("[AI] OpenAI fallback enabled with model %s", model)
	return &openaiProvider{
		client:       openai.NewClient(option.WithAPIKey(apiKey)),
		model:        model,
		systemPrompt: systemPrompt,
	}
}

func (p *openaiProvider) GenerateResponse(ctx context.Context, text string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if p.systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(p.systemPrompt))
	}
	messages = append(messages, openai.UserMessage(text))

	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	answer := strings.TrimSpace(completion.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("openai returned an empty message")
	}
	return answer, nil
}
