package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const statusRegistered = "registered"

// Verifier клиент внешнего эндпоинта проверки регистрации.
// Эндпоинт ненадёжный и best-effort: сетевые сбои не должны ронять
// проверку гейта, статус просто остаётся прежним.
type Verifier struct {
	checkURL   string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewVerifier(checkURL string, timeout time.Duration, logger *zap.Logger) *Verifier {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Verifier{
		checkURL: checkURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type statusResponse struct {
	Status string `json:"status"`
}

// Check запрашивает статус регистрации по идентификатору пользователя.
// Возвращает (true, nil) только при подтверждённой регистрации; ошибка
// означает "статус неизвестен", а не "не зарегистрирован".
func (v *Verifier) Check(ctx context.Context, userID string) (bool, error) {
	endpoint := fmt.Sprintf("%s?userId=%s", v.checkURL, url.QueryEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build verification request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("verification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("verification endpoint returned status %d", resp.StatusCode)
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode verification response: %w", err)
	}

	return body.Status == statusRegistered, nil
}

// Refresh проверяет статус и при подтверждении открывает гейт.
// Сбой проверки оставляет state как есть — деградация до "ещё не
// зарегистрирован", никаких паник за границей гейта.
func (v *Verifier) Refresh(ctx context.Context, state *State) bool {
	if state.Registered() {
		return true
	}

	registered, err := v.Check(ctx, state.UserID())
	if err != nil {
		v.logger.Warn("Registration check failed, keeping previous status",
			zap.String("user_id", state.UserID()),
			zap.Error(err),
		)
		return state.Registered()
	}

	if registered {
		state.MarkRegistered()
		v.logger.Info("Registration confirmed", zap.String("user_id", state.UserID()))
	}

	return state.Registered()
}
