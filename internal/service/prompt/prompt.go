package prompt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Запасной (безопасный) промпт на случай недоступности API
const FallbackBasePrompt = `You are Vi, an expert analyst from Oracle. Your primary goal is to assist users in a helpful and friendly manner.`

const searchEnabledSuffix = `
When analyzing search results:
1. Analyze the provided search results carefully to answer the user's question
2. Always cite sources using the [number](url) format, matching the order of search results
3. If multiple sources are relevant, include all of them using comma-separated citations
4. Only use information that has a URL available for citation
5. If the search results don't contain relevant information, acknowledge this and provide a general response

Citation Format:
[number](url)`

const searchDisabledSuffix = `
Important:
1. Provide responses based on your general knowledge
2. Be clear about any limitations in your knowledge
3. Suggest when searching for additional information might be beneficial`

// Loader загружает базовый системный промпт с защищённого эндпоинта.
// Любой сбой сети или не-200 ответ деградирует до запасного промпта,
// наружу ошибки не выходят.
type Loader struct {
	apiURL     string
	secretKey  string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewLoader(apiURL, secretKey string, timeout time.Duration, logger *zap.Logger) *Loader {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Loader{
		apiURL:    apiURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Base возвращает базовый промпт. Никогда не возвращает ошибку.
func (l *Loader) Base(ctx context.Context) string {
	if l.apiURL == "" || l.secretKey == "" {
		l.logger.Debug("Prompt API is not configured, using fallback prompt")
		return FallbackBasePrompt
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.apiURL, nil)
	if err != nil {
		l.logger.Warn("Failed to build prompt request, using fallback", zap.Error(err))
		return FallbackBasePrompt
	}
	req.Header.Set("X-Secret-Key", l.secretKey)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		l.logger.Warn("Failed to fetch prompt from API, using fallback", zap.Error(err))
		return FallbackBasePrompt
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.logger.Warn("Prompt API returned non-OK status, using fallback",
			zap.Int("status_code", resp.StatusCode),
		)
		return FallbackBasePrompt
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		l.logger.Warn("Failed to read prompt response, using fallback", zap.Error(err))
		return FallbackBasePrompt
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return FallbackBasePrompt
	}

	l.logger.Debug("System prompt fetched from API", zap.Int("length", len(text)))
	return text
}

// System собирает полный системный промпт с учётом режима поиска.
func (l *Loader) System(ctx context.Context, searchEnabled bool) string {
	base := l.Base(ctx)

	suffix := searchDisabledSuffix
	if searchEnabled {
		suffix = searchEnabledSuffix
	}

	return fmt.Sprintf("%s\n%s\nCurrent date and time: %s",
		base, suffix, time.Now().Format("1/2/2006, 3:04:05 PM"))
}
