package conversation

import (
	"context"
	"fmt"

	"github.com/godyjooce/1win-predictor.01-international4/internal/registry"
	"github.com/godyjooce/1win-predictor.01-international4/internal/service/stream"
	"github.com/godyjooce/1win-predictor.01-international4/internal/storage/models"

	"go.uber.org/zap"
)

// Engine связывает резолвер моделей и диспетчер стримов в Submitter
// для диалогов. Резолвинг выполняется заново на каждый submit —
// доступность провайдера могла измениться между запросами.
type Engine struct {
	resolver   *registry.Resolver
	dispatcher *stream.Dispatcher
	logger     *zap.Logger
}

func NewEngine(resolver *registry.Resolver, dispatcher *stream.Dispatcher, logger *zap.Logger) *Engine {
	return &Engine{
		resolver:   resolver,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Verify interface implementation
var _ Submitter = (*Engine)(nil)

func (e *Engine) Submit(ctx context.Context, messages []models.Message, chatID string, model registry.ModelDescriptor) (*stream.Session, error) {
	resolved, err := e.resolver.Resolve(model)
	if err != nil {
		return nil, fmt.Errorf("model resolution failed: %w", err)
	}

	return e.dispatcher.Dispatch(ctx, stream.Request{
		Messages: messages,
		Model:    resolved,
		ChatID:   chatID,
	})
}
