package gate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/godyjooce/1win-predictor.01-international4/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func userMsg(content string) models.Message {
	return models.Message{ID: content, Role: models.RoleUser, Content: content}
}

func assistantMsg(content string) models.Message {
	return models.Message{ID: content, Role: models.RoleAssistant, Content: content}
}

func TestCheckOpenWhenRegistered(t *testing.T) {
	state := NewState("u-1")
	state.MarkRegistered()

	decision := Check([]models.Message{userMsg("hello")}, state)
	assert.Equal(t, Open, decision)
}

func TestCheckOpenWithoutUserMessages(t *testing.T) {
	state := NewState("u-1")

	assert.Equal(t, Open, Check(nil, state))
	assert.Equal(t, Open, Check([]models.Message{assistantMsg("hi")}, state))
}

func TestCheckBlockedWithUserMessageAndNoRegistration(t *testing.T) {
	state := NewState("u-1")

	messages := []models.Message{assistantMsg("hi"), userMsg("hello")}
	assert.Equal(t, Blocked, Check(messages, state))
}

func TestMarkRegisteredIsOneWay(t *testing.T) {
	state := NewState("u-1")
	require.False(t, state.Registered())

	state.MarkRegistered()
	assert.True(t, state.Registered())

	// Повторный вызов ничего не ломает
	state.MarkRegistered()
	assert.True(t, state.Registered())
}

func TestVerifierCheckRegistered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u-42", r.URL.Query().Get("userId"))
		w.Write([]byte(`{"status":"registered"}`))
	}))
	defer srv.Close()

	v := NewVerifier(srv.URL, time.Second, zap.NewNop())

	registered, err := v.Check(context.Background(), "u-42")
	require.NoError(t, err)
	assert.True(t, registered)
}

func TestVerifierCheckNotRegistered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"pending"}`))
	}))
	defer srv.Close()

	v := NewVerifier(srv.URL, time.Second, zap.NewNop())

	registered, err := v.Check(context.Background(), "u-42")
	require.NoError(t, err)
	assert.False(t, registered)
}

func TestVerifierCheckServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewVerifier(srv.URL, time.Second, zap.NewNop())

	_, err := v.Check(context.Background(), "u-42")
	require.Error(t, err)
}

func TestRefreshOpensGateOnConfirmation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"registered"}`))
	}))
	defer srv.Close()

	v := NewVerifier(srv.URL, time.Second, zap.NewNop())
	state := NewState("u-1")

	assert.True(t, v.Refresh(context.Background(), state))
	assert.True(t, state.Registered())
}

func TestRefreshKeepsPreviousStatusOnFailure(t *testing.T) {
	// Эндпоинт недоступен: статус остаётся прежним, паники нет
	v := NewVerifier("http://127.0.0.1:0", 100*time.Millisecond, zap.NewNop())
	state := NewState("u-1")

	assert.False(t, v.Refresh(context.Background(), state))
	assert.False(t, state.Registered())

	state.MarkRegistered()
	assert.True(t, v.Refresh(context.Background(), state))
}
