package interfaces

import (
	"context"

	"github.com/godyjooce/1win-predictor.01-international4/internal/storage/models"
)

// ChatStore операции с историей диалогов.
// В текущем деплое история полностью отключена, единственная реализация —
// storage/noop. Интерфейс сохранён, чтобы включение хранилища не трогало
// обработчики.
type ChatStore interface {
	GetChats(ctx context.Context, userID string) ([]models.Chat, error)
	GetChat(ctx context.Context, id, userID string) (*models.Chat, error)
	SaveChat(ctx context.Context, chat models.Chat, userID string) error
	RemoveChat(ctx context.Context, id, userID string) error
	ClearChats(ctx context.Context, userID string) error
	ShareChat(ctx context.Context, id, userID string) (*models.Chat, error)
	GetSharedChat(ctx context.Context, id string) (*models.Chat, error)
}
