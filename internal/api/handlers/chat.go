package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/godyjooce/1win-predictor.01-international4/internal/registry"
	"github.com/godyjooce/1win-predictor.01-international4/internal/service/stream"
	"github.com/godyjooce/1win-predictor.01-international4/internal/storage/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Тексты ответов зафиксированы контрактом с фронтендом, менять нельзя
const (
	msgEmptyMessages   = "Messages array cannot be empty."
	msgSharePageDenied = "Chat API is not available on share pages"
	msgInternalError   = "Error processing your request"
)

const selectedModelCookie = "selectedModel"

type ChatHandler struct {
	dispatcher        *stream.Dispatcher
	resolver          *registry.Resolver
	maxStreamDuration time.Duration
	logger            *zap.Logger
}

func NewChatHandler(
	dispatcher *stream.Dispatcher,
	resolver *registry.Resolver,
	maxStreamDuration time.Duration,
	logger *zap.Logger,
) *ChatHandler {
	return &ChatHandler{
		dispatcher:        dispatcher,
		resolver:          resolver,
		maxStreamDuration: maxStreamDuration,
		logger:            logger,
	}
}

type ChatRequest struct {
	Messages []models.Message `json:"messages"`
	ID       string           `json:"id"`
}

// POST /api/chat - стриминговый ответ модели на историю диалога
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid chat request", zap.Error(err))
		c.String(http.StatusInternalServerError, msgInternalError)
		return
	}

	// Валидация до любых обращений к модели
	if len(req.Messages) == 0 {
		c.String(http.StatusBadRequest, msgEmptyMessages)
		return
	}

	// С расшаренных страниц чат закрыт
	if strings.Contains(c.GetHeader("Referer"), "/share/") {
		c.String(http.StatusForbidden, msgSharePageDenied)
		return
	}

	// Выбор модели приходит в cookie; битое значение — дефолт
	rawSelection, _ := c.Cookie(selectedModelCookie)
	selected := h.resolver.ParseSelection(rawSelection)

	// Резолвим заново на каждый запрос
	model, err := h.resolver.Resolve(selected)
	if err != nil {
		var provErr *registry.ProviderDisabledError
		var modelErr *registry.ModelDisabledError

		switch {
		case errors.As(err, &provErr):
			c.String(http.StatusNotFound, "Selected provider is not enabled "+provErr.ProviderID)
		case errors.As(err, &modelErr):
			c.String(http.StatusNotFound, "Selected provider is not enabled "+modelErr.ProviderID)
		default:
			h.logger.Error("Model resolution failed", zap.Error(err))
			c.String(http.StatusInternalServerError, msgInternalError)
		}
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.maxStreamDuration)
	defer cancel()

	session, err := h.dispatcher.Dispatch(ctx, stream.Request{
		Messages: req.Messages,
		Model:    model,
		ChatID:   req.ID,
	})
	if err != nil {
		if errors.Is(err, stream.ErrEmptyMessages) {
			c.String(http.StatusBadRequest, msgEmptyMessages)
			return
		}
		h.logger.Error("Failed to start stream",
			zap.Error(err),
			zap.String("chat_id", req.ID),
		)
		c.String(http.StatusInternalServerError, msgInternalError)
		return
	}

	h.streamEvents(c, session)
}

// streamEvents транслирует события сессии клиенту через SSE
func (h *ChatHandler) streamEvents(c *gin.Context, session *stream.Session) {
	// Настройка Server-Sent Events
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// Клиент отвалился — останавливаем генерацию
	clientGone := c.Request.Context().Done()
	go func() {
		<-clientGone
		session.Stop()
	}()

	var errorSent bool
	for ev := range session.Events() {
		switch ev.Type {
		case stream.EventContent:
			c.SSEvent("content", gin.H{
				"content":    ev.Content,
				"message_id": session.MessageID,
			})

		case stream.EventToolCall:
			c.SSEvent("tool_call", gin.H{
				"tool_call":  ev.ToolCall,
				"message_id": session.MessageID,
			})

		case stream.EventDone:
			c.SSEvent("done", gin.H{
				"message_id": session.MessageID,
			})

		case stream.EventError:
			errorSent = true
			h.logger.Error("Stream error", zap.Error(ev.Err))
			c.SSEvent("error", gin.H{
				"error":      msgInternalError,
				"message_id": session.MessageID,
			})
		}

		// Принудительно отправляем данные клиенту
		if flusher, ok := c.Writer.(http.Flusher); ok {
			flusher.Flush()
		}
	}

	// Терминальная ошибка могла не влезть в буфер событий — проверяем
	// сессию, чтобы сбой бэкенда не выглядел как остановка пользователем
	if err := session.Err(); err != nil && !errorSent {
		h.logger.Error("Stream error", zap.Error(err))
		c.SSEvent("error", gin.H{
			"error":      msgInternalError,
			"message_id": session.MessageID,
		})
		if flusher, ok := c.Writer.(http.Flusher); ok {
			flusher.Flush()
		}
	}
}
