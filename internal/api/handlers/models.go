package handlers

import (
	"net/http"

	"github.com/godyjooce/1win-predictor.01-international4/internal/registry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ModelsHandler struct {
	registry        *registry.Registry
	providerEnabled registry.EnabledFunc
	logger          *zap.Logger
}

func NewModelsHandler(reg *registry.Registry, providerEnabled registry.EnabledFunc, logger *zap.Logger) *ModelsHandler {
	return &ModelsHandler{
		registry:        reg,
		providerEnabled: providerEnabled,
		logger:          logger,
	}
}

type modelView struct {
	registry.ModelDescriptor
	// Включённость провайдера вычисляется на каждый запрос
	ProviderEnabled bool `json:"providerEnabled"`
}

// GET /api/models - список моделей реестра с текущей доступностью
func (h *ModelsHandler) GetAvailableModels(c *gin.Context) {
	descriptors := h.registry.ListModels()

	views := make([]modelView, 0, len(descriptors))
	for _, m := range descriptors {
		views = append(views, modelView{
			ModelDescriptor: m,
			ProviderEnabled: h.providerEnabled(m.ProviderID),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"models":  views,
		"default": registry.DefaultModel(),
	})
}
