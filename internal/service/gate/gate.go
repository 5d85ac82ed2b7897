package gate

import (
	"sync"

	"github.com/godyjooce/1win-predictor.01-international4/internal/storage/models"
)

// Decision результат проверки гейта
type Decision int

const (
	Open Decision = iota
	Blocked
)

func (d Decision) String() string {
	if d == Blocked {
		return "blocked"
	}
	return "open"
}

// State состояние регистрации клиента. UserID генерируется один раз,
// Registered меняется только в сторону true — пути назад нет.
// Один писатель (колбэк верификации), много читателей.
type State struct {
	mu         sync.RWMutex
	userID     string
	registered bool
}

func NewState(userID string) *State {
	return &State{userID: userID}
}

func (s *State) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *State) Registered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registered
}

// MarkRegistered односторонний переход: после успешной верификации
// гейт открыт навсегда, повторная блокировка не предусмотрена.
func (s *State) MarkRegistered() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered = true
}

// Check вычисляется заново на каждую мутирующую операцию: Registered
// может стать true асинхронно между вызовами, кешировать решение нельзя.
// Blocked — когда в диалоге уже есть хотя бы одно сообщение пользователя,
// а регистрация ещё не подтверждена.
func Check(messages []models.Message, state *State) Decision {
	if state.Registered() {
		return Open
	}

	for _, m := range messages {
		if m.Role == models.RoleUser {
			return Blocked
		}
	}

	return Open
}
