package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
)

// Ensure AzureEmbedding implements EmbeddingProvider
var _ driven.EmbeddingProvider = (*AzureEmbedding)(nil)

// azureBatchLimit is the number of inputs per request; Azure OpenAI
// deployments accept at most 16 inputs per embeddings call.
const azureBatchLimit = 16

const defaultAzureAPIVersion = "2024-02-01"

// AzureEmbedding implements EmbeddingProvider using an Azure OpenAI
// deployment. Azure differs from the standard API in authentication
// (api-key header), URL shape (per-deployment endpoints with an
// api-version parameter), and batch ceiling.
type AzureEmbedding struct {
	apiKey     string
	endpoint   string
	deployment string
	apiVersion string
	dimensions int
	client     *http.Client
}

// NewAzureEmbedding creates a new Azure OpenAI embedding provider
func NewAzureEmbedding(apiKey, endpoint, deployment, apiVersion string) (driven.EmbeddingProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: Azure API key is required", domain.ErrInvalidInput)
	}
	if endpoint == "" {
		return nil, fmt.Errorf("%w: Azure endpoint is required", domain.ErrInvalidInput)
	}
	if deployment == "" {
		return nil, fmt.Errorf("%w: Azure embedding deployment is required", domain.ErrInvalidInput)
	}
	if apiVersion == "" {
		apiVersion = defaultAzureAPIVersion
	}

	dimensions, ok := openAIModelDimensions[deployment]
	if !ok {
		dimensions = 1536
	}

	return &AzureEmbedding{
		apiKey:     apiKey,
		endpoint:   strings.TrimRight(endpoint, "/"),
		deployment: deployment,
		apiVersion: apiVersion,
		dimensions: dimensions,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Embed generates an embedding for a single text
func (e *AzureEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", domain.ErrEmbeddingFailed)
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in sequential
// sub-batches of azureBatchLimit. Any sub-batch failure aborts the
// whole call with no partial result.
func (e *AzureEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += azureBatchLimit {
		end := start + azureBatchLimit
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.embedOne(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}
	return embeddings, nil
}

func (e *AzureEmbedding) embedOne(ctx context.Context, texts []string) ([][]float32, error) {
	// Deployment is addressed in the URL, not the body.
	body, err := json.Marshal(embeddingRequest{Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s",
		e.endpoint, url.PathEscape(e.deployment), url.QueryEscape(e.apiVersion))

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	embResp, err := decodeEmbeddingResponse(resp)
	if err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(texts))
	for _, d := range embResp.Data {
		if d.Index >= 0 && d.Index < len(embeddings) {
			embeddings[d.Index] = d.Embedding
		}
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, fmt.Errorf("%w: missing embedding for input %d", domain.ErrEmbeddingFailed, i)
		}
	}

	return embeddings, nil
}

// Dimensions returns the embedding dimension size
func (e *AzureEmbedding) Dimensions() int {
	return e.dimensions
}

// Model returns the deployment name being used
func (e *AzureEmbedding) Model() string {
	return e.deployment
}

// Close releases resources held by the provider
func (e *AzureEmbedding) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
