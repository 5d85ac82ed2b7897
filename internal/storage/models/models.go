package models

import (
	"time"
)

// Роли участников диалога
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // user, assistant, system, tool
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Chat сохранённый диалог. В этом деплое история отключена,
// структура оставлена для совместимости интерфейса хранилища.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"user_id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	SharePath string    `json:"share_path,omitempty"`
}
