package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botdock-labs/botdock-core/internal/config"
	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
)

// embeddingServer answers embeddings requests with one-dimensional
// vectors derived from the numeric suffix of each input ("t-42" ->
// [42]), so tests can verify ordering across batches.
func embeddingServer(t *testing.T, requests *[][]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*requests = append(*requests, req.Input)

		resp := map[string]any{"object": "list", "data": []map[string]any{}}
		data := make([]map[string]any, 0, len(req.Input))
		// Reverse order to exercise index-based reassembly.
		for i := len(req.Input) - 1; i >= 0; i-- {
			n, err := strconv.Atoi(strings.TrimPrefix(req.Input[i], "t-"))
			require.NoError(t, err)
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(n)},
			})
		}
		resp["data"] = data
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func makeTexts(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("t-%d", i)
	}
	return texts
}

func TestOpenAIEmbedBatchPartitioning(t *testing.T) {
	var requests [][]string
	srv := embeddingServer(t, &requests)
	defer srv.Close()

	provider, err := NewOpenAIEmbedding("test-key", "", srv.URL)
	require.NoError(t, err)
	defer provider.Close()

	embeddings, err := provider.EmbedBatch(context.Background(), makeTexts(250))
	require.NoError(t, err)

	require.Len(t, requests, 3)
	assert.Len(t, requests[0], 100)
	assert.Len(t, requests[1], 100)
	assert.Len(t, requests[2], 50)

	require.Len(t, embeddings, 250)
	for i, emb := range embeddings {
		require.Len(t, emb, 1)
		assert.Equal(t, float32(i), emb[0], "embedding %d out of order", i)
	}
}

func TestOpenAIEmbedBatchEmpty(t *testing.T) {
	provider, err := NewOpenAIEmbedding("test-key", "", "http://unused.invalid")
	require.NoError(t, err)

	embeddings, err := provider.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, embeddings)
}

func TestOpenAIEmbedBatchFailureIsAtomic(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "boom", "type": "server_error"},
			})
			return
		}
		var req embeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"index": i, "embedding": []float32{1}}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	provider, err := NewOpenAIEmbedding("test-key", "", srv.URL)
	require.NoError(t, err)

	embeddings, err := provider.EmbedBatch(context.Background(), makeTexts(150))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailed)
	assert.Nil(t, embeddings, "failed batch must not return partial results")
	assert.Equal(t, 2, calls)
}

func TestOpenAIEmbedMissingIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// One input, zero embeddings back.
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}})
	}))
	defer srv.Close()

	provider, err := NewOpenAIEmbedding("test-key", "", srv.URL)
	require.NoError(t, err)

	_, err = provider.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailed)
}

func TestOpenAIEmbeddingAuthHeader(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"index": 0, "embedding": []float32{1}}},
		})
	}))
	defer srv.Close()

	provider, err := NewOpenAIEmbedding("sk-test", "", srv.URL)
	require.NoError(t, err)

	_, err = provider.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-test", auth)
}

func TestOpenAIEmbeddingDimensions(t *testing.T) {
	provider, err := NewOpenAIEmbedding("k", "text-embedding-3-large", "")
	require.NoError(t, err)
	assert.Equal(t, 3072, provider.Dimensions())
	assert.Equal(t, "text-embedding-3-large", provider.Model())

	provider, err = NewOpenAIEmbedding("k", "", "")
	require.NoError(t, err)
	assert.Equal(t, 1536, provider.Dimensions())
	assert.Equal(t, "text-embedding-3-small", provider.Model())
}

func TestNewOpenAIEmbeddingRequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedding("", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAzureEmbedBatchPartitioningAndAuth(t *testing.T) {
	var paths []string
	var apiKeys []string
	var requests [][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.String())
		apiKeys = append(apiKeys, r.Header.Get("api-key"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Empty(t, req.Model, "azure requests address the deployment in the URL")
		requests = append(requests, req.Input)

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"index": i, "embedding": []float32{1}}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	provider, err := NewAzureEmbedding("azure-key", srv.URL, "embed-ada", "")
	require.NoError(t, err)
	defer provider.Close()

	embeddings, err := provider.EmbedBatch(context.Background(), makeTexts(20))
	require.NoError(t, err)
	assert.Len(t, embeddings, 20)

	require.Len(t, requests, 2)
	assert.Len(t, requests[0], 16)
	assert.Len(t, requests[1], 4)
	for _, p := range paths {
		assert.Equal(t, "/openai/deployments/embed-ada/embeddings?api-version="+defaultAzureAPIVersion, p)
	}
	for _, k := range apiKeys {
		assert.Equal(t, "azure-key", k)
	}
}

func TestNewAzureEmbeddingValidation(t *testing.T) {
	_, err := NewAzureEmbedding("", "https://x", "d", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = NewAzureEmbedding("k", "", "d", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = NewAzureEmbedding("k", "https://x", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOpenAILLMChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.NotEmpty(t, req.Messages)

		json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-4o-mini",
			"choices": []map[string]any{{
				"message":       map[string]any{"role": "assistant", "content": "hi there"},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13},
		})
	}))
	defer srv.Close()

	llm, err := NewOpenAILLM("test-key", "", srv.URL)
	require.NoError(t, err)
	defer llm.Close()

	completion, err := llm.ChatCompletion(context.Background(), []domain.ChatMessage{
		{Role: domain.ChatRoleUser, Content: "hello"},
	}, driven.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hi there", completion.Content)
	assert.Equal(t, "stop", completion.FinishReason)
	assert.Equal(t, 13, completion.Usage.TotalTokens)
}

func TestOpenAILLMAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limited", "type": "rate_limit"},
		})
	}))
	defer srv.Close()

	llm, err := NewOpenAILLM("test-key", "", srv.URL)
	require.NoError(t, err)

	_, err = llm.ChatCompletion(context.Background(), []domain.ChatMessage{
		{Role: domain.ChatRoleUser, Content: "hello"},
	}, driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestAzureLLMURLAndAuth(t *testing.T) {
	var gotURL, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		gotKey = r.Header.Get("api-key")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]any{"role": "assistant", "content": "ok"},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	llm, err := NewAzureLLM("azure-key", srv.URL, "gpt-4o", "2024-02-01")
	require.NoError(t, err)

	completion, err := llm.ChatCompletion(context.Background(), []domain.ChatMessage{
		{Role: domain.ChatRoleUser, Content: "hello"},
	}, driven.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", completion.Content)
	assert.Equal(t, "/openai/deployments/gpt-4o/chat/completions?api-version=2024-02-01", gotURL)
	assert.Equal(t, "azure-key", gotKey)
}

func TestFactorySelectsProvider(t *testing.T) {
	provider, err := NewEmbeddingProvider(config.AIConfig{
		Provider: config.ProviderOpenAI,
		OpenAI:   &config.OpenAIConfig{APIKey: "k"},
	})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIEmbedding{}, provider)

	provider, err = NewEmbeddingProvider(config.AIConfig{
		Provider: config.ProviderAzure,
		Azure: &config.AzureConfig{
			APIKey: "k", Endpoint: "https://x", EmbeddingDeployment: "embed-ada",
		},
	})
	require.NoError(t, err)
	assert.IsType(t, &AzureEmbedding{}, provider)

	llm, err := NewLLMService(config.AIConfig{
		Provider: config.ProviderOpenAI,
		OpenAI:   &config.OpenAIConfig{APIKey: "k"},
	})
	require.NoError(t, err)
	assert.IsType(t, &OpenAILLM{}, llm)
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	_, err := NewEmbeddingProvider(config.AIConfig{Provider: "anthropic"})
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)

	_, err = NewLLMService(config.AIConfig{Provider: "anthropic"})
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)
}

func TestFactoryRequiresProviderConfig(t *testing.T) {
	_, err := NewEmbeddingProvider(config.AIConfig{Provider: config.ProviderOpenAI})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewLLMService(config.AIConfig{Provider: config.ProviderAzure})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
