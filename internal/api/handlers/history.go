package handlers

import (
	"net/http"

	"github.com/godyjooce/1win-predictor.01-international4/internal/storage/interfaces"
	"github.com/godyjooce/1win-predictor.01-international4/internal/storage/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HistoryHandler ручки истории диалогов поверх ChatStore.
// С no-op хранилищем список всегда пуст, мутации всегда успешны —
// клиентский код работает одинаково с хранилищем и без.
type HistoryHandler struct {
	store  interfaces.ChatStore
	logger *zap.Logger
}

func NewHistoryHandler(store interfaces.ChatStore, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		store:  store,
		logger: logger,
	}
}

// GET /api/history - список чатов пользователя
func (h *HistoryHandler) GetChats(c *gin.Context) {
	userID := c.Query("userId")

	chats, err := h.store.GetChats(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get chats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get chats"})
		return
	}

	if chats == nil {
		chats = []models.Chat{}
	}
	c.JSON(http.StatusOK, chats)
}

// GET /api/history/:id - один чат
func (h *HistoryHandler) GetChat(c *gin.Context) {
	chat, err := h.store.GetChat(c.Request.Context(), c.Param("id"), c.Query("userId"))
	if err != nil {
		h.logger.Error("Failed to get chat", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get chat"})
		return
	}

	if chat == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
		return
	}
	c.JSON(http.StatusOK, chat)
}

// GET /api/history/shared/:id - расшаренный чат по публичному id
func (h *HistoryHandler) GetSharedChat(c *gin.Context) {
	chat, err := h.store.GetSharedChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to get shared chat", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get shared chat"})
		return
	}

	if chat == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
		return
	}
	c.JSON(http.StatusOK, chat)
}

// DELETE /api/history/:id - удаление чата
func (h *HistoryHandler) RemoveChat(c *gin.Context) {
	if err := h.store.RemoveChat(c.Request.Context(), c.Param("id"), c.Query("userId")); err != nil {
		h.logger.Error("Failed to remove chat", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove chat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DELETE /api/history - очистка всей истории
func (h *HistoryHandler) ClearChats(c *gin.Context) {
	if err := h.store.ClearChats(c.Request.Context(), c.Query("userId")); err != nil {
		h.logger.Error("Failed to clear chats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear chats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// POST /api/history/:id/share - публикация чата
func (h *HistoryHandler) ShareChat(c *gin.Context) {
	chat, err := h.store.ShareChat(c.Request.Context(), c.Param("id"), c.Query("userId"))
	if err != nil {
		h.logger.Error("Failed to share chat", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to share chat"})
		return
	}

	if chat == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
		return
	}
	c.JSON(http.StatusOK, chat)
}
