package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 應用程式的全部設定
type Config struct {
	Environment string        `mapstructure:"environment"`
	Server      ServerConfig  `mapstructure:"server"`
	Log         LogConfig     `mapstructure:"log"`
	Poll        PollConfig    `mapstructure:"poll"`
	Hub         HubConfig     `mapstructure:"hub"`
	Archive     ArchiveConfig `mapstructure:"archive"`
	DB          DBConfig      `mapstructure:"db"`
}

// ServerConfig HTTP 伺服器設定
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	Mode            string        `mapstructure:"mode"` // gin 模式：debug / release / test
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig 日誌設定
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // console 或 json
	OutputPath string `mapstructure:"output_path"` // 空字串表示輸出到 stdout
	MaxSize    int    `mapstructure:"max_size"`    // MB
	MaxAge     int    `mapstructure:"max_age"`     // 天
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// PollConfig 投票規則
type PollConfig struct {
	DefaultDuration      int  `mapstructure:"default_duration"` // 秒
	EnforceDeadline      bool `mapstructure:"enforce_deadline"`
	OneVotePerConnection bool `mapstructure:"one_vote_per_connection"`
	HistoryLimit         int  `mapstructure:"history_limit"` // 0 表示不限制
}

// HubConfig WebSocket 連接參數
type HubConfig struct {
	SendBuffer int           `mapstructure:"send_buffer"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
}

// ArchiveConfig 投票歸檔設定
type ArchiveConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	QueueSize int  `mapstructure:"queue_size"`
}

// DBConfig 資料庫連接設定，僅供歸檔使用
type DBConfig struct {
	Driver   string `mapstructure:"driver"` // postgres 或 sqlite
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Port     int    `mapstructure:"port"`
	SSLMode  string `mapstructure:"ssl_mode"`
	Path     string `mapstructure:"path"` // sqlite 檔案路徑
}

// Load 讀取設定檔與環境變數。configPath 為空時只使用預設值與環境變數。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("LIVEPOLL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.address", ":5000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_path", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.compress", true)

	v.SetDefault("poll.default_duration", 15)
	v.SetDefault("poll.enforce_deadline", false)
	v.SetDefault("poll.one_vote_per_connection", false)
	v.SetDefault("poll.history_limit", 0)

	v.SetDefault("hub.send_buffer", 256)
	v.SetDefault("hub.read_limit", 4096)
	v.SetDefault("hub.pong_wait", "60s")
	v.SetDefault("hub.write_wait", "10s")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.queue_size", 64)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "live_poll")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.ssl_mode", "disable")
	v.SetDefault("db.path", "live_poll_archive.db")
}

// Validate 檢查設定是否合理
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return errors.New("server address is required")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown server mode %q", c.Server.Mode)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Poll.DefaultDuration <= 0 {
		return errors.New("poll default duration must be positive")
	}
	if c.Poll.HistoryLimit < 0 {
		return errors.New("poll history limit must not be negative")
	}
	if c.Hub.SendBuffer <= 0 {
		return errors.New("hub send buffer must be positive")
	}
	if c.Hub.PongWait <= 0 || c.Hub.WriteWait <= 0 {
		return errors.New("hub timeouts must be positive")
	}
	if c.Archive.Enabled {
		switch c.DB.Driver {
		case "postgres", "sqlite":
		default:
			return fmt.Errorf("unsupported database driver %q", c.DB.Driver)
		}
		if c.Archive.QueueSize <= 0 {
			return errors.New("archive queue size must be positive")
		}
	}
	return nil
}
