package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks database and queue connections)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "A dependency is unreachable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "task queue unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Bot endpoints

// handleCreateBot godoc
// @Summary      Create bot
// @Description  Create a new bot with instructions and retrieval settings
// @Tags         Bots
// @Accept       json
// @Produce      json
// @Param        request  body      driving.CreateBotRequest  true  "Bot definition"
// @Success      201      {object}  domain.Bot
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /bots [post]
func (s *Server) handleCreateBot(w http.ResponseWriter, r *http.Request) {
	var req driving.CreateBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bot, err := s.botService.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create bot")
		return
	}

	writeJSON(w, http.StatusCreated, bot)
}

// handleListBots godoc
// @Summary      List bots
// @Description  Get bots with pagination
// @Tags         Bots
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Page offset"
// @Success      200     {array}   domain.Bot
// @Failure      500     {object}  ErrorResponse  "Internal server error"
// @Router       /bots [get]
func (s *Server) handleListBots(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	bots, err := s.botService.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list bots")
		return
	}
	if bots == nil {
		bots = []*domain.Bot{}
	}

	writeJSON(w, http.StatusOK, bots)
}

// handleGetBot godoc
// @Summary      Get bot
// @Description  Get a bot by ID
// @Tags         Bots
// @Produce      json
// @Param        id   path      string  true  "Bot ID"
// @Success      200  {object}  domain.Bot
// @Failure      404  {object}  ErrorResponse  "Bot not found"
// @Router       /bots/{id} [get]
func (s *Server) handleGetBot(w http.ResponseWriter, r *http.Request) {
	bot, err := s.botService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "failed to get bot")
		return
	}

	writeJSON(w, http.StatusOK, bot)
}

// handleDeleteBot godoc
// @Summary      Delete bot
// @Description  Delete a bot, its document records and its vector collection
// @Tags         Bots
// @Param        id  path  string  true  "Bot ID"
// @Success      204
// @Failure      404  {object}  ErrorResponse  "Bot not found"
// @Router       /bots/{id} [delete]
func (s *Server) handleDeleteBot(w http.ResponseWriter, r *http.Request) {
	if err := s.botService.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err, "failed to delete bot")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Document endpoints

// handleUploadDocument godoc
// @Summary      Upload document
// @Description  Upload a file for background ingestion into the bot's knowledge base
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        id    path      string  true  "Bot ID"
// @Param        file  formData  file    true  "Document file"
// @Success      202   {object}  domain.Document
// @Failure      400   {object}  ErrorResponse  "Missing or unreadable file"
// @Failure      404   {object}  ErrorResponse  "Bot not found"
// @Failure      415   {object}  ErrorResponse  "Unsupported file format"
// @Router       /bots/{id}/documents [post]
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	botID := r.PathValue("id")

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(header.Filename)); byExt != "" {
			contentType = byExt
		}
	}
	if mt, _, parseErr := mime.ParseMediaType(contentType); parseErr == nil {
		contentType = mt
	}

	path, size, err := s.saveUpload(file, header.Filename)
	if err != nil {
		s.logger.Error("failed to store upload", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	doc, err := s.documentService.Upload(r.Context(), driving.UploadRequest{
		BotID:       botID,
		FilePath:    path,
		Filename:    header.Filename,
		ContentType: contentType,
		SizeBytes:   size,
	})
	if err != nil {
		// The saved file is useless without a record pointing at it
		if rmErr := os.Remove(path); rmErr != nil {
			s.logger.Warn("failed to remove orphaned upload", "path", path, "error", rmErr)
		}
		switch {
		case errors.Is(err, domain.ErrUnsupportedFormat):
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "bot not found")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to accept upload")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

// saveUpload streams the uploaded file into the upload directory under
// a unique name, keeping the original extension for type detection.
func (s *Server) saveUpload(src io.Reader, filename string) (string, int64, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", 0, err
	}

	path := filepath.Join(s.uploadDir, uuid.NewString()+filepath.Ext(filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}

	size, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, err
	}
	return path, size, nil
}

// handleListDocuments godoc
// @Summary      List documents
// @Description  Get all document records for a bot
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Bot ID"
// @Success      200  {array}   domain.Document
// @Failure      404  {object}  ErrorResponse  "Bot not found"
// @Router       /bots/{id}/documents [get]
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documentService.ListByBot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []*domain.Document{}
	}

	writeJSON(w, http.StatusOK, docs)
}

// handleGetDocument godoc
// @Summary      Get document
// @Description  Get a document record, including its ingestion status
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.Document
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documentService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "failed to get document")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// handleDeleteDocument godoc
// @Summary      Delete document
// @Description  Delete a document record
// @Tags         Documents
// @Param        id  path  string  true  "Document ID"
// @Success      204
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id} [delete]
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.documentService.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err, "failed to delete document")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Chat endpoint

// ChatRequestBody is one user turn addressed to a bot.
// @Description Chat request with optional conversation history
type ChatRequestBody struct {
	Message string               `json:"message"`
	History []domain.ChatMessage `json:"history,omitempty"`
}

// handleChat godoc
// @Summary      Chat with bot
// @Description  Send a message to a bot and receive a grounded response
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        id       path      string           true  "Bot ID"
// @Param        request  body      ChatRequestBody  true  "User message"
// @Success      200      {object}  domain.ChatResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      404      {object}  ErrorResponse  "Bot not found"
// @Failure      503      {object}  ErrorResponse  "Model unavailable"
// @Router       /bots/{id}/chat [post]
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body ChatRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.chatService.Chat(r.Context(), driving.ChatRequest{
		BotID:   r.PathValue("id"),
		Message: body.Message,
		History: body.History,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "bot not found")
		case errors.Is(err, domain.ErrServiceUnavailable):
			writeError(w, http.StatusServiceUnavailable, "model unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "failed to generate response")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the common domain sentinels to status codes.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
