// Package ai holds the generative fallback providers. The bot only sees the
// IAIProvider interface; which vendor answers is a config concern.
package ai

import (
	"context"
	"fmt"
	"strings"

	domainBot "github.com/AzielCF/az-reply/domains/bot"
	"github.com/sirupsen/logrus"
)

// NewProviderFromConfig builds the configured provider. An empty or "none"
// provider disables the fallback entirely: the caller gets nil and every
// unmatched message escalates straight to the operators.
func NewProviderFromConfig(ctx context.Context, provider, apiKey, model, systemPrompt string) (domainBot.IAIProvider, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "none":
		logrus.Info("[AI] Generative fallback disabled")
		return nil, nil
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini provider requires an api key")
		}
		return NewGeminiProvider(ctx, apiKey, model, systemPrompt)
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("openai provider requires an api key")
		}
		return NewOpenAIProvider(apiKey, model, systemPrompt), nil
	}
	return nil, fmt.Errorf("unknown ai provider %q", provider)
}
