// Package config 載入服務配置：預設值 → YAML 檔 → .env → 環境變數。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	apperrors "github.com/koopa0/system-design/14-chat-rooms/pkg/errors"
)

// Config 整個應用的配置
type Config struct {
	Env string `yaml:"env"` // "production" 時關閉開發用的跨域白名單

	Server struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		IdleTimeout     time.Duration `yaml:"idle_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Chat struct {
		AdminName   string `yaml:"admin_name"`
		WelcomeText string `yaml:"welcome_text"`
		TimeLayout  string `yaml:"time_layout"`
	} `yaml:"chat"`

	WebSocket struct {
		SendBuffer     int           `yaml:"send_buffer"`
		MaxMessageSize int64         `yaml:"max_message_size"`
		PingPeriod     time.Duration `yaml:"ping_period"`
		PongWait       time.Duration `yaml:"pong_wait"`
		WriteWait      time.Duration `yaml:"write_wait"`
		DevOrigins     []string      `yaml:"dev_origins"` // 非 production 時額外允許的 Origin
	} `yaml:"websocket"`

	Static struct {
		Dir string `yaml:"dir"` // 空字串表示不提供靜態檔案
	} `yaml:"static"`

	Redis struct {
		Addr         string        `yaml:"addr"` // 空字串表示停用鏡像
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		KeyPrefix    string        `yaml:"key_prefix"`
		QueueSize    int           `yaml:"queue_size"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"redis"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
}

// envOverrides 可由環境變數覆蓋的欄位
//
// 指標欄位區分「未設定」與「設為零值」。
type envOverrides struct {
	Env       *string `envconfig:"NODE_ENV"`
	Host      *string `envconfig:"HOST"`
	Port      *int    `envconfig:"PORT"`
	StaticDir *string `envconfig:"STATIC_DIR"`
	LogLevel  *string `envconfig:"LOG_LEVEL"`
	LogFormat *string `envconfig:"LOG_FORMAT"`
	RedisAddr *string `envconfig:"REDIS_ADDR"`
	RedisPass *string `envconfig:"REDIS_PASSWORD"`
	RedisDB   *int    `envconfig:"REDIS_DB"`
}

// Default 返回預設配置
func Default() *Config {
	cfg := &Config{Env: "development"}

	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 3500
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 15 * time.Second
	cfg.Server.IdleTimeout = 60 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Chat.AdminName = "Admin"
	cfg.Chat.WelcomeText = "Welcome To ChatKaro"
	cfg.Chat.TimeLayout = "3:04:05 PM"

	cfg.WebSocket.SendBuffer = 256
	cfg.WebSocket.MaxMessageSize = 64 * 1024
	cfg.WebSocket.PingPeriod = 54 * time.Second
	cfg.WebSocket.PongWait = 60 * time.Second
	cfg.WebSocket.WriteWait = 10 * time.Second
	cfg.WebSocket.DevOrigins = []string{"http://localhost:3500", "http://127.0.0.1:3500"}

	cfg.Redis.KeyPrefix = "chat"
	cfg.Redis.QueueSize = 1024
	cfg.Redis.WriteTimeout = 3 * time.Second

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Log.Output = "stdout"

	return cfg
}

// Load 載入配置
//
// path 為空或檔案不存在時只使用預設值與環境變數。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 - path 來自命令列參數
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// .env 不存在不是錯誤
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv 套用環境變數覆蓋
func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "parse environment")
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&c.Env, env.Env)
	set(&c.Server.Host, env.Host)
	set(&c.Static.Dir, env.StaticDir)
	set(&c.Log.Level, env.LogLevel)
	set(&c.Log.Format, env.LogFormat)
	set(&c.Redis.Addr, env.RedisAddr)
	set(&c.Redis.Password, env.RedisPass)

	if env.Port != nil {
		c.Server.Port = *env.Port
	}
	if env.RedisDB != nil {
		c.Redis.DB = *env.RedisDB
	}

	return nil
}

// Validate 檢查配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperrors.ErrInvalidConfig.WithDetails(fmt.Sprintf("server.port out of range: %d", c.Server.Port))
	}
	if c.WebSocket.PongWait > 0 && c.WebSocket.PingPeriod >= c.WebSocket.PongWait {
		return apperrors.ErrInvalidConfig.WithDetails("websocket.ping_period must be shorter than websocket.pong_wait")
	}
	if c.Chat.TimeLayout == "" {
		return apperrors.ErrInvalidConfig.WithDetails("chat.time_layout must not be empty")
	}
	return nil
}

// Production 是否為正式環境
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Addr 監聽位址
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// AllowedOrigins WebSocket 額外允許的 Origin（正式環境只允許同源）
func (c *Config) AllowedOrigins() []string {
	if c.Production() {
		return nil
	}
	return c.WebSocket.DevOrigins
}

// RedisEnabled 是否啟用 Redis 鏡像
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}
