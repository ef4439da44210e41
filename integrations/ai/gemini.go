package ai

import (
	"context"
	"fmt"
	"strings"

	domainBot "github.com/AzielCF/az-reply/domains/bot"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

type geminiProvider struct {
	client       *genai.Client
	model        string
	systemPrompt string
}

func NewGeminiProvider(ctx context.Context, apiKey, model, systemPrompt string) (domainBot.IAIProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	logrus.Infof("[AI] Gemini fallback enabled with model %s", model)
	return &geminiProvider{client: client, model: model, systemPrompt: systemPrompt}, nil
}

func (p *geminiProvider) GenerateResponse(ctx context.Context, text string) (string, error) {
	config := &genai.GenerateContentConfig{}
	if p.systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(p.systemPrompt, genai.RoleUser)
	}

	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}},
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	answer := strings.TrimSpace(result.Text())
	if answer == "" {
		return "", fmt.Errorf("gemini returned an empty candidate")
	}
	return answer, nil
}
