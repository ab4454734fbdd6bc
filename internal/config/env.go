package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const namespace = "TASKBOARD"

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3100"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	// APIKey enables bearer authentication when set.
	APIKey string `envconfig:"API_KEY"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".taskboard/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"taskboard/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
	// SQLite settings (used when Type == "sqlite")
	SQLitePath string `envconfig:"SQLITE_PATH" default:".taskboard/taskboard.db"`
}

type EventEnv struct {
	BufferSize int `envconfig:"EVENT_BUFFER_SIZE" default:"64"`
}

type VAPIDEnv struct {
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDContact    string `envconfig:"VAPID_CONTACT" default:"mailto:admin@taskboard.local"`
}

func (e *VAPIDEnv) Configured() bool {
	return e != nil && e.VAPIDPublicKey != "" && e.VAPIDPrivateKey != ""
}

type Env struct {
	BaseEnv
	StorageEnv
	EventEnv
	VAPIDEnv
}

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	switch env.StorageEnv.Type {
	case "local", "s3", "sqlite":
	default:
		return nil, fmt.Errorf("unknown storage type %q (want local, s3 or sqlite)", env.StorageEnv.Type)
	}
	if env.StorageEnv.Type == "s3" && env.S3Bucket == "" {
		return nil, fmt.Errorf("%s_S3_BUCKET is required when storage type is s3", namespace)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	return parseLevel(e.LogLevel)
}

func BaseEnvFromEnv(env *Env) *BaseEnv {
	return &env.BaseEnv
}

func StorageEnvFromEnv(env *Env) *StorageEnv {
	return &env.StorageEnv
}

func VAPIDEnvFromEnv(env *Env) *VAPIDEnv {
	return &env.VAPIDEnv
}

// ClientEnv configures the taskboard CLI.
type ClientEnv struct {
	ServerURL         string        `envconfig:"SERVER_URL" default:"http://localhost:3100"`
	APIKey            string        `envconfig:"API_KEY"`
	ClientDir         string        `envconfig:"CLIENT_DIR" default:".taskboard/client"`
	ReconnectInterval time.Duration `envconfig:"RECONNECT_INTERVAL" default:"5s"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
}

func LoadClientEnv() (*ClientEnv, error) {
	var env ClientEnv
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *ClientEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelInfo
	}
	return parseLevel(e.LogLevel)
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelDebug
	}
	return level
}
