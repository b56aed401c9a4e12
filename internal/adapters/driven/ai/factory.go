package ai

import (
	"fmt"

	"github.com/botdock-labs/botdock-core/internal/config"
	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
)

// NewEmbeddingProvider builds the embedding provider selected by the
// configuration.
func NewEmbeddingProvider(cfg config.AIConfig) (driven.EmbeddingProvider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		oc := cfg.OpenAI
		if oc == nil {
			return nil, fmt.Errorf("%w: openai configuration missing", domain.ErrInvalidInput)
		}
		return NewOpenAIEmbedding(oc.APIKey, oc.Model, oc.BaseURL)
	case config.ProviderAzure:
		ac := cfg.Azure
		if ac == nil {
			return nil, fmt.Errorf("%w: azure configuration missing", domain.ErrInvalidInput)
		}
		return NewAzureEmbedding(ac.APIKey, ac.Endpoint, ac.EmbeddingDeployment, ac.APIVersion)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, cfg.Provider)
	}
}

// NewLLMService builds the chat completion service selected by the
// configuration.
func NewLLMService(cfg config.AIConfig) (driven.LLMService, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		oc := cfg.OpenAI
		if oc == nil {
			return nil, fmt.Errorf("%w: openai configuration missing", domain.ErrInvalidInput)
		}
		return NewOpenAILLM(oc.APIKey, oc.ChatModel, oc.BaseURL)
	case config.ProviderAzure:
		ac := cfg.Azure
		if ac == nil {
			return nil, fmt.Errorf("%w: azure configuration missing", domain.ErrInvalidInput)
		}
		return NewAzureLLM(ac.APIKey, ac.Endpoint, ac.ChatDeployment, ac.APIVersion)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, cfg.Provider)
	}
}
