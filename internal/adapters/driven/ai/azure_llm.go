package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
)

// Ensure AzureLLM implements LLMService
var _ driven.LLMService = (*AzureLLM)(nil)

// AzureLLM implements LLMService against an Azure OpenAI chat
// deployment. The request and response bodies match the standard API;
// only authentication and URL shape differ.
type AzureLLM struct {
	apiKey     string
	endpoint   string
	deployment string
	apiVersion string
	client     *http.Client
}

// NewAzureLLM creates a new Azure OpenAI chat completion service
func NewAzureLLM(apiKey, endpoint, deployment, apiVersion string) (driven.LLMService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: Azure API key is required", domain.ErrInvalidInput)
	}
	if endpoint == "" {
		return nil, fmt.Errorf("%w: Azure endpoint is required", domain.ErrInvalidInput)
	}
	if deployment == "" {
		return nil, fmt.Errorf("%w: Azure chat deployment is required", domain.ErrInvalidInput)
	}
	if apiVersion == "" {
		apiVersion = defaultAzureAPIVersion
	}

	return &AzureLLM{
		apiKey:     apiKey,
		endpoint:   strings.TrimRight(endpoint, "/"),
		deployment: deployment,
		apiVersion: apiVersion,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// ChatCompletion generates a response for the given conversation
func (l *AzureLLM) ChatCompletion(ctx context.Context, messages []domain.ChatMessage, opts driven.ChatOptions) (*domain.ChatCompletion, error) {
	// The deployment selects the model; the body carries no model field.
	reqBody := chatRequest{
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		l.endpoint, url.PathEscape(l.deployment), url.QueryEscape(l.apiVersion))
	headers := map[string]string{"api-key": l.apiKey}
	return executeChat(ctx, l.client, endpoint, headers, reqBody)
}

// Model returns the deployment name being used
func (l *AzureLLM) Model() string {
	return l.deployment
}

// Close releases resources held by the service
func (l *AzureLLM) Close() error {
	l.client.CloseIdleConnections()
	return nil
}
