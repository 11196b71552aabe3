// Package config загружает настройки сервера и клиента.
//
// Источники в порядке возрастания приоритета: значения по умолчанию,
// YAML файл (--config), переменные окружения GOPHSYNC_*, флаги командной строки.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/iudanet/gophsync/internal/validation"
)

// EnvPrefix префикс переменных окружения: GOPHSYNC_DB_PATH и т.д.
const EnvPrefix = "GOPHSYNC"

// Config errors
var (
	// ErrInvalidConfig indicates that a loaded value is out of range
	ErrInvalidConfig = errors.New("invalid config")
)

// Server настройки sync сервера
type Server struct {
	Addr       string        `mapstructure:"addr"`
	DBPath     string        `mapstructure:"db_path"`
	LogFile    string        `mapstructure:"log_file"`
	LogLevel   string        `mapstructure:"log_level"`
	Latency    time.Duration `mapstructure:"latency"`
	RateWindow time.Duration `mapstructure:"rate_window"`
	RateLimit  int           `mapstructure:"rate_limit"`
	// TrustedProxies адреса и подсети прокси, чьим X-Forwarded-For можно верить
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// Client настройки CLI клиента
type Client struct {
	Server         string        `mapstructure:"server"`
	DBPath         string        `mapstructure:"db_path"`
	Store          string        `mapstructure:"store"`
	PeerID         string        `mapstructure:"peer_id"`
	LogLevel       string        `mapstructure:"log_level"`
	SaveDebounce   time.Duration `mapstructure:"save_debounce"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
}

var serverDefaults = map[string]any{
	"addr":        ":8080",
	"db_path":     "gophsync-server.db",
	"log_file":    "",
	"log_level":   "info",
	"latency":     100 * time.Millisecond,
	"rate_limit":  100,
	"rate_window": time.Minute,

	"trusted_proxies": []string{},
}

var clientDefaults = map[string]any{
	"server":          "http://localhost:8080",
	"db_path":         "gophsync-client.db",
	"store":           "default",
	"peer_id":         "",
	"log_level":       "warn",
	"save_debounce":   100 * time.Millisecond,
	"reconnect_delay": 3 * time.Second,
	"poll_interval":   5 * time.Second,
}

// LoadServer читает настройки сервера. path может быть пустым,
// flags может быть nil.
func LoadServer(path string, flags *pflag.FlagSet) (*Server, error) {
	v, err := load(path, serverDefaults, flags)
	if err != nil {
		return nil, err
	}

	var cfg Server
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode server config: %w", err)
	}

	switch {
	case cfg.Addr == "":
		return nil, fmt.Errorf("%w: addr is empty", ErrInvalidConfig)
	case cfg.DBPath == "":
		return nil, fmt.Errorf("%w: db_path is empty", ErrInvalidConfig)
	case cfg.Latency < 0:
		return nil, fmt.Errorf("%w: latency %s is negative", ErrInvalidConfig, cfg.Latency)
	case cfg.RateLimit < 0:
		return nil, fmt.Errorf("%w: rate_limit %d is negative", ErrInvalidConfig, cfg.RateLimit)
	case cfg.RateLimit > 0 && cfg.RateWindow <= 0:
		return nil, fmt.Errorf("%w: rate_window must be positive", ErrInvalidConfig)
	}

	if _, err := validation.ParsePrefixes(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("%w: trusted_proxies: %w", ErrInvalidConfig, err)
	}

	return &cfg, nil
}

// LoadClient читает настройки клиента
func LoadClient(path string, flags *pflag.FlagSet) (*Client, error) {
	v, err := load(path, clientDefaults, flags)
	if err != nil {
		return nil, err
	}

	var cfg Client
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode client config: %w", err)
	}

	if err := validation.ValidateStoreName(cfg.Store); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.PeerID != "" {
		if err := validation.ValidatePeerID(cfg.PeerID); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	switch {
	case cfg.DBPath == "":
		return nil, fmt.Errorf("%w: db_path is empty", ErrInvalidConfig)
	case cfg.ReconnectDelay <= 0 || cfg.PollInterval <= 0:
		return nil, fmt.Errorf("%w: reconnect_delay and poll_interval must be positive", ErrInvalidConfig)
	}

	return &cfg, nil
}

func load(path string, defaults map[string]any, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if flags != nil {
		// Флаги называются через дефис: --db-path -> db_path.
		// Учитываются только явно заданные флаги.
		for key := range defaults {
			flag := flags.Lookup(strings.ReplaceAll(key, "_", "-"))
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
			}
		}
	}

	return v, nil
}
