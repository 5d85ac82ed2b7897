package noop

import (
	"context"

	"github.com/godyjooce/1win-predictor.01-international4/internal/storage/interfaces"
	"github.com/godyjooce/1win-predictor.01-international4/internal/storage/models"

	"go.uber.org/zap"
)

// Store заглушка хранилища истории. История отключена намеренно:
// все операции ничего не делают и возвращают пустые данные,
// никакого I/O. Не превращать молча обратно в реальное хранилище.
type Store struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Store {
	return &Store{logger: logger}
}

func (s *Store) GetChats(ctx context.Context, userID string) ([]models.Chat, error) {
	s.logger.Debug("history disabled: GetChats returning empty list")
	return []models.Chat{}, nil
}

func (s *Store) GetChat(ctx context.Context, id, userID string) (*models.Chat, error) {
	s.logger.Debug("history disabled: GetChat returning nil", zap.String("chat_id", id))
	return nil, nil
}

func (s *Store) SaveChat(ctx context.Context, chat models.Chat, userID string) error {
	s.logger.Debug("history disabled: SaveChat doing nothing", zap.String("chat_id", chat.ID))
	return nil
}

func (s *Store) RemoveChat(ctx context.Context, id, userID string) error {
	s.logger.Debug("history disabled: RemoveChat doing nothing", zap.String("chat_id", id))
	return nil
}

func (s *Store) ClearChats(ctx context.Context, userID string) error {
	s.logger.Debug("history disabled: ClearChats doing nothing")
	return nil
}

func (s *Store) ShareChat(ctx context.Context, id, userID string) (*models.Chat, error) {
	s.logger.Debug("history disabled: ShareChat returning nil", zap.String("chat_id", id))
	return nil, nil
}

func (s *Store) GetSharedChat(ctx context.Context, id string) (*models.Chat, error) {
	s.logger.Debug("history disabled: GetSharedChat returning nil", zap.String("chat_id", id))
	return nil, nil
}

// Verify interface implementation
var _ interfaces.ChatStore = (*Store)(nil)
