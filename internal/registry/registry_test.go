package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadEmbeddedModels(t *testing.T) {
	reg, err := Load(zap.NewNop())
	require.NoError(t, err)

	models := reg.ListModels()
	require.NotEmpty(t, models)

	// Дефолтная модель обязана присутствовать в реестре
	def := DefaultModel()
	found, ok := reg.FindModel(def.ID, def.ProviderID)
	require.True(t, ok)
	assert.True(t, found.Enabled)
	assert.Equal(t, ToolCallManual, found.ToolCallType)
}

func TestLoadFromDropsInvalidDescriptors(t *testing.T) {
	payload := []byte(`{
		"models": [
			{"id": "good", "name": "Good", "provider": "P", "providerId": "p", "enabled": true, "toolCallType": "native"},
			{"id": "", "name": "No ID", "provider": "P", "providerId": "p", "toolCallType": "native"},
			{"id": "bad-type", "name": "Bad", "provider": "P", "providerId": "p", "toolCallType": "telepathy"}
		]
	}`)

	reg, err := LoadFrom(payload, zap.NewNop())
	require.NoError(t, err)

	models := reg.ListModels()
	require.Len(t, models, 1)
	assert.Equal(t, "good", models[0].ID)
}

func TestLoadFromRejectsBrokenPayload(t *testing.T) {
	_, err := LoadFrom([]byte(`{"models": [`), zap.NewNop())
	require.Error(t, err)
}

func TestListModelsReturnsCopy(t *testing.T) {
	reg, err := Load(zap.NewNop())
	require.NoError(t, err)

	first := reg.ListModels()
	first[0].ID = "mutated"

	second := reg.ListModels()
	assert.NotEqual(t, "mutated", second[0].ID)
}

func TestFindModelMissing(t *testing.T) {
	reg, err := Load(zap.NewNop())
	require.NoError(t, err)

	_, ok := reg.FindModel("no-such-model", "google")
	assert.False(t, ok)
}
