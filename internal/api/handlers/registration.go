package handlers

import (
	"net/http"

	"github.com/godyjooce/1win-predictor.01-international4/internal/service/gate"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RegistrationHandler struct {
	verifier *gate.Verifier
	logger   *zap.Logger
}

func NewRegistrationHandler(verifier *gate.Verifier, logger *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		verifier: verifier,
		logger:   logger,
	}
}

// GET /api/registration/status?userId=... - проверка регистрации у
// внешнего эндпоинта. Сбой проверки — это "статус неизвестен":
// отвечаем 200 с verified=false, клиент оставляет прежнее значение.
func (h *RegistrationHandler) GetStatus(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	registered, err := h.verifier.Check(c.Request.Context(), userID)
	if err != nil {
		h.logger.Warn("Registration check failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusOK, gin.H{
			"registered": false,
			"verified":   false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"registered": registered,
		"verified":   true,
	})
}
