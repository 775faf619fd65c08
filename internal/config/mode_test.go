package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/gitfolio/internal/storage"
)

func TestShouldUseRemoteBackend(t *testing.T) {
	tests := []struct {
		name   string
		stored string // raw stored value, empty = absent
		want   bool
	}{
		{"absent defaults to remote", "", true},
		{"explicit false", "false", false},
		{"explicit true", "true", true},
		{"string false is not false", `"false"`, true},
		{"zero is not false", "0", true},
		{"garbage", "{{", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := storage.NewMemoryStore()
			if tt.stored != "" {
				require.NoError(t, store.Set(ctx, storage.KeyUseBackendAPI, []byte(tt.stored)))
			}

			got, err := ShouldUseRemoteBackend(ctx, store)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShouldUseRemoteBackendStorageError(t *testing.T) {
	_, err := ShouldUseRemoteBackend(context.Background(), failingStore{err: assert.AnError})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSelectBackendMode(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	mode, err := SelectBackendMode(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, BackendRemote, mode)

	require.NoError(t, storage.SetJSON(ctx, store, storage.KeyUseBackendAPI, false))
	mode, err = SelectBackendMode(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, BackendDirect, mode)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	cfg := Default()

	s, err := LoadSettings(ctx, store, cfg)
	require.NoError(t, err)
	assert.Equal(t, Settings{
		BackendURL:    "http://localhost:8000",
		UseBackendAPI: true,
		TokenScope:    storage.ScopeLocal,
	}, s)

	require.NoError(t, SetSetting(ctx, store, "backend-url", "https://gitfolio.example/"))
	require.NoError(t, SetSetting(ctx, store, "use-backend", "false"))
	require.NoError(t, SetSetting(ctx, store, "token-scope", "sync"))
	require.NoError(t, SetSetting(ctx, store, "username", "alice"))

	s, err = LoadSettings(ctx, store, cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://gitfolio.example", s.BackendURL)
	assert.False(t, s.UseBackendAPI)
	assert.Equal(t, storage.ScopeSync, s.TokenScope)
	assert.Equal(t, "alice", s.GitHubUsername)

	assert.Error(t, SetSetting(ctx, store, "backend-url", "ftp://nope"))
	assert.Error(t, SetSetting(ctx, store, "use-backend", "maybe"))
	assert.Error(t, SetSetting(ctx, store, "token-scope", "cloud"))
	assert.Error(t, SetSetting(ctx, store, "theme", "dark"))

	require.NoError(t, SetSetting(ctx, store, "use-backend", ""))
	s, err = LoadSettings(ctx, store, cfg)
	require.NoError(t, err)
	assert.True(t, s.UseBackendAPI)
}
