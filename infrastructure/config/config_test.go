package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("TABLE_NAME", "tax")
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "tax", cfg.TreesTable)
	assert.Equal(t, "tax-events", cfg.EventsTable)
	assert.Equal(t, "tax-history", cfg.HistoryTable)
	assert.Equal(t, StorageDynamoDB, cfg.Storage)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.UsesMemoryStorage())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("ENABLE_TRACING", "yes")
	t.Setenv("HISTORY_LIMIT", "10")
	t.Setenv("JWT_ROLES_CLAIM", "groups")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.UsesMemoryStorage())
	assert.True(t, cfg.EnableTracing)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, "groups", cfg.RolesClaim)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "unknown storage",
			cfg:     Config{Storage: "redis"},
			wantErr: "STORAGE",
		},
		{
			name:    "production needs a secret",
			cfg:     Config{Environment: "production", Storage: StorageDynamoDB, TreesTable: "t", EventsTable: "e", EventBusName: "b"},
			wantErr: "JWT_SECRET",
		},
		{
			name:    "production needs dynamodb",
			cfg:     Config{Environment: "production", Storage: StorageMemory, JWTSecret: "s"},
			wantErr: "dynamodb",
		},
		{
			name: "production complete",
			cfg:  Config{Environment: "production", Storage: StorageDynamoDB, JWTSecret: "s", TreesTable: "t", EventsTable: "e", EventBusName: "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
