package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func allEnabled(string) bool  { return true }
func allDisabled(string) bool { return false }

func TestParseSelectionEmptyFallsBackToDefault(t *testing.T) {
	r := NewResolver(allEnabled, zap.NewNop())

	assert.Equal(t, DefaultModel(), r.ParseSelection(""))
	assert.Equal(t, DefaultModel(), r.ParseSelection("   "))
}

func TestParseSelectionBrokenJSONFallsBackToDefault(t *testing.T) {
	r := NewResolver(allEnabled, zap.NewNop())

	assert.Equal(t, DefaultModel(), r.ParseSelection("{not json"))
	assert.Equal(t, DefaultModel(), r.ParseSelection(`{"id": ""}`))
}

func TestParseSelectionValidDescriptor(t *testing.T) {
	r := NewResolver(allEnabled, zap.NewNop())

	m := r.ParseSelection(`{
		"id": "openai/gpt-4o",
		"name": "GPT-4o",
		"provider": "OpenRouter",
		"providerId": "openrouter",
		"enabled": true,
		"toolCallType": "native"
	}`)

	assert.Equal(t, "openai/gpt-4o", m.ID)
	assert.Equal(t, "openrouter", m.ProviderID)
	assert.Equal(t, ToolCallNative, m.ToolCallType)
}

func TestResolveProviderDisabled(t *testing.T) {
	r := NewResolver(allDisabled, zap.NewNop())

	_, err := r.Resolve(DefaultModel())
	require.Error(t, err)

	var provErr *ProviderDisabledError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, "google", provErr.ProviderID)
}

func TestResolveModelDisabled(t *testing.T) {
	r := NewResolver(allEnabled, zap.NewNop())

	m := DefaultModel()
	m.Enabled = false

	_, err := r.Resolve(m)
	require.Error(t, err)

	var modelErr *ModelDisabledError
	require.True(t, errors.As(err, &modelErr))
	assert.Equal(t, "google", modelErr.ProviderID)
}

func TestResolveEnabledModelPassesThrough(t *testing.T) {
	r := NewResolver(allEnabled, zap.NewNop())

	m, err := r.Resolve(DefaultModel())
	require.NoError(t, err)
	assert.Equal(t, DefaultModel(), m)
}

func TestResolveReactsToEnabledChanges(t *testing.T) {
	enabled := false
	r := NewResolver(func(string) bool { return enabled }, zap.NewNop())

	_, err := r.Resolve(DefaultModel())
	require.Error(t, err)

	// Включённость перечитывается на каждый запрос
	enabled = true
	_, err = r.Resolve(DefaultModel())
	require.NoError(t, err)
}
