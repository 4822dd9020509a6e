package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/system-design/14-chat-rooms/internal/config"
	apperrors "github.com/koopa0/system-design/14-chat-rooms/pkg/errors"
)

// clearEnv 清除會影響配置的環境變數（測試結束後自動還原）
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"NODE_ENV", "HOST", "PORT", "STATIC_DIR", "LOG_LEVEL", "LOG_FORMAT", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoad 測試配置載入的優先順序
func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		env      map[string]string
		wantErr  bool
		validate func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "defaults only",
			validate: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "127.0.0.1:3500", cfg.Addr())
				assert.Equal(t, "Admin", cfg.Chat.AdminName)
				assert.Equal(t, "Welcome To ChatKaro", cfg.Chat.WelcomeText)
				assert.False(t, cfg.Production())
				assert.False(t, cfg.RedisEnabled())
				assert.Equal(t, []string{"http://localhost:3500", "http://127.0.0.1:3500"}, cfg.AllowedOrigins())
			},
		},
		{
			name: "yaml overrides defaults",
			yaml: `
server:
  port: 8080
  read_timeout: 5s
chat:
  welcome_text: "Hello"
redis:
  addr: "localhost:6379"
log:
  level: debug
`,
			validate: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "Hello", cfg.Chat.WelcomeText)
				assert.Equal(t, "Admin", cfg.Chat.AdminName)
				assert.True(t, cfg.RedisEnabled())
				assert.Equal(t, "debug", cfg.Log.Level)
			},
		},
		{
			name: "environment overrides yaml",
			yaml: `
server:
  port: 8080
`,
			env: map[string]string{
				"PORT":     "9000",
				"HOST":     "0.0.0.0",
				"NODE_ENV": "production",
			},
			validate: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
				assert.True(t, cfg.Production())
				assert.Empty(t, cfg.AllowedOrigins())
			},
		},
		{
			name:    "invalid port from environment",
			env:     map[string]string{"PORT": "not-a-number"},
			wantErr: true,
		},
		{
			name: "port out of range",
			yaml: `
server:
  port: 70000
`,
			wantErr: true,
		},
		{
			name: "ping period must be shorter than pong wait",
			yaml: `
websocket:
  ping_period: 90s
  pong_wait: 60s
`,
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			yaml:    "server: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := filepath.Join(t.TempDir(), "missing.yaml")
			if tt.yaml != "" {
				path = writeConfig(t, tt.yaml)
			}

			cfg, err := config.Load(path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

// TestValidate_ErrorCode 測試驗證錯誤帶有 INVALID_INPUT 錯誤碼
func TestValidate_ErrorCode(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	cfg.Server.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidInput(err))
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}
