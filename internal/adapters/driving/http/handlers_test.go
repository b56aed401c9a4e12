package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botdock-labs/botdock-core/internal/adapters/driven/queue/memory"
	"github.com/botdock-labs/botdock-core/internal/chunker"
	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven/mocks"
	"github.com/botdock-labs/botdock-core/internal/core/services"
	"github.com/botdock-labs/botdock-core/internal/extractors"
)

type serverFixture struct {
	server *Server
	queue  *memory.Queue
	llm    *mocks.MockLLMService
	store  *mocks.MockVectorStore
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	f := &serverFixture{
		queue: memory.NewQueue(),
		llm:   mocks.NewMockLLMService(),
		store: mocks.NewMockVectorStore(),
	}
	t.Cleanup(func() { f.queue.Close() })

	bots := mocks.NewMockBotStore()
	documents := mocks.NewMockDocumentStore()
	registry := extractors.DefaultRegistry()

	retrieval := services.NewRetrievalService(
		registry,
		chunker.NewSplitter(200, 40),
		mocks.NewMockEmbeddingProvider(),
		f.store,
		services.RetrievalConfig{},
		nil,
	)
	botService := services.NewBotService(bots, documents, retrieval, nil)
	documentService := services.NewDocumentService(documents, bots, f.queue, registry, nil)
	chatService := services.NewChatService(bots, retrieval, f.llm, nil)

	f.server = NewServer(
		Config{Version: "test", UploadDir: t.TempDir()},
		botService,
		documentService,
		chatService,
		f.queue,
		nil,
		nil,
	)
	return f
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) createBot(t *testing.T, useRAG bool) *domain.Bot {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/bots", map[string]any{
		"name":         "support",
		"instructions": "You answer support questions.",
		"use_rag":      useRAG,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var bot domain.Bot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bot))
	return &bot
}

func (f *serverFixture) uploadText(t *testing.T, botID, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", "text/plain")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots/"+botID+"/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/version", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test")

	rec = f.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyReportsUnreachableQueue(t *testing.T) {
	f := newServerFixture(t)
	f.queue.Close()

	rec := f.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateBot(t *testing.T) {
	f := newServerFixture(t)

	bot := f.createBot(t, true)
	assert.NotEmpty(t, bot.ID)
	assert.Equal(t, "support", bot.Name)
	assert.True(t, bot.UseRAG)
}

func TestCreateBotValidation(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/bots", map[string]any{"name": "no instructions"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots", strings.NewReader("{not json"))
	out := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
}

func TestGetBot(t *testing.T) {
	f := newServerFixture(t)
	bot := f.createBot(t, false)

	rec := f.do(t, http.MethodGet, "/api/v1/bots/"+bot.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/bots/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListBots(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/bots", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	f.createBot(t, false)
	f.createBot(t, false)

	rec = f.do(t, http.MethodGet, "/api/v1/bots?limit=1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var bots []domain.Bot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bots))
	assert.Len(t, bots, 1)
}

func TestDeleteBot(t *testing.T) {
	f := newServerFixture(t)
	bot := f.createBot(t, false)

	rec := f.do(t, http.MethodDelete, "/api/v1/bots/"+bot.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/bots/"+bot.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/bots/"+bot.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadDocument(t *testing.T) {
	f := newServerFixture(t)
	bot := f.createBot(t, true)

	rec := f.uploadText(t, bot.ID, "guide.txt", "some document content")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var doc domain.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, bot.ID, doc.BotID)
	assert.Equal(t, "guide.txt", doc.Filename)
	assert.Equal(t, domain.DocumentStatusProcessing, doc.Status)
	assert.Equal(t, int64(len("some document content")), doc.SizeBytes)

	// An ingestion task is waiting for the worker.
	task, err := f.queue.DequeueWithTimeout(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, doc.ID, task.DocumentID())
}

func TestUploadDocumentUnsupportedType(t *testing.T) {
	f := newServerFixture(t)
	bot := f.createBot(t, true)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="movie.mp4"`)
	header.Set("Content-Type", "video/mp4")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("binary"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots/"+bot.ID+"/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestUploadDocumentMissingBot(t *testing.T) {
	f := newServerFixture(t)

	rec := f.uploadText(t, "ghost", "a.txt", "content")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadDocumentMissingFileField(t *testing.T) {
	f := newServerFixture(t)
	bot := f.createBot(t, true)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots/"+bot.ID+"/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAndDeleteDocuments(t *testing.T) {
	f := newServerFixture(t)
	bot := f.createBot(t, true)

	rec := f.uploadText(t, bot.ID, "a.txt", "content a")
	require.Equal(t, http.StatusAccepted, rec.Code)
	var doc domain.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))

	rec = f.do(t, http.MethodGet, "/api/v1/bots/"+bot.ID+"/documents", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var docs []domain.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	assert.Len(t, docs, 1)

	rec = f.do(t, http.MethodGet, "/api/v1/documents/"+doc.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/documents/"+doc.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/documents/"+doc.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChat(t *testing.T) {
	f := newServerFixture(t)
	bot := f.createBot(t, false)
	f.llm.Response = "hello there"

	rec := f.do(t, http.MethodPost, "/api/v1/bots/"+bot.ID+"/chat", map[string]any{
		"message": "hi",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp domain.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hello there", resp.Content)
	assert.False(t, resp.ContextUsed)
}

func TestChatValidation(t *testing.T) {
	f := newServerFixture(t)
	bot := f.createBot(t, false)

	rec := f.do(t, http.MethodPost, "/api/v1/bots/"+bot.ID+"/chat", map[string]any{
		"message": "   ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/bots/ghost/chat", map[string]any{
		"message": "hi",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatModelUnavailable(t *testing.T) {
	f := newServerFixture(t)
	bot := f.createBot(t, false)
	f.llm.Err = domain.ErrServiceUnavailable

	rec := f.do(t, http.MethodPost, "/api/v1/bots/"+bot.ID+"/chat", map[string]any{
		"message": "hi",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler := NewRecoveryMiddleware(nil).Handler(panicky)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := NewCORSMiddleware([]string{"https://app.example.com"}).Handler(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

var errPing = errors.New("down")

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errPing }

func TestReadyReportsUnreachableDatabase(t *testing.T) {
	f := newServerFixture(t)
	f.server.db = failingPinger{}

	rec := f.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
