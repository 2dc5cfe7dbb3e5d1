package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"hillshield/internal/logging"
)

type Config struct {
	Port         int
	MasterSecret string
	GinMode      string
	TLSCertFile  string
	TLSKeyFile   string
	TokenExpiry  time.Duration

	// Auth attempt throttling, per address and per handle.
	AuthRateLimit  int
	AuthRateWindow time.Duration

	// Store backend: "memory" (with optional snapshot file) or "sqlite".
	StoreBackend  string
	SnapshotFile  string
	SQLiteDSN     string
	BackupPath    string
	BackupCron    string

	// Delivery simulator.
	MeshWindow    time.Duration
	SweepInterval time.Duration
	StartOnline   bool

	// AI collaborator.
	AIAPIKey   string
	AIBaseURL  string
	AIModel    string
	AITimeout  time.Duration
	AICacheTTL time.Duration

	Log logging.Config
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

func LoadConfig() (Config, error) {
	return LoadConfigFromEnv(osEnv{})
}

func LoadConfigFromEnv(env Env) (Config, error) {
	cfg := Config{
		Port:           3000,
		GinMode:        "release",
		TokenExpiry:    30 * 24 * time.Hour,
		AuthRateLimit:  10,
		AuthRateWindow: time.Minute,
		StoreBackend:   "memory",
		MeshWindow:     3 * time.Second,
		SweepInterval:  time.Second,
		StartOnline:    true,
		AITimeout:      10 * time.Second,
		AICacheTTL:     15 * time.Minute,
	}

	if raw := env.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT")
		}
		cfg.Port = port
	}

	cfg.MasterSecret = env.Getenv("MASTER_SECRET")
	if cfg.MasterSecret == "" {
		return Config{}, fmt.Errorf("MASTER_SECRET is required")
	}

	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}

	cfg.TLSCertFile = env.Getenv("TLS_CERT_FILE")
	cfg.TLSKeyFile = env.Getenv("TLS_KEY_FILE")

	if raw := env.Getenv("TOKEN_EXPIRY_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid TOKEN_EXPIRY_SECONDS")
		}
		cfg.TokenExpiry = time.Duration(seconds) * time.Second
	}

	if raw := env.Getenv("AUTH_RATE_LIMIT"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return Config{}, fmt.Errorf("invalid AUTH_RATE_LIMIT")
		}
		cfg.AuthRateLimit = limit
	}
	if raw := env.Getenv("AUTH_RATE_WINDOW_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid AUTH_RATE_WINDOW_SECONDS")
		}
		cfg.AuthRateWindow = time.Duration(seconds) * time.Second
	}

	if raw := env.Getenv("STORE_BACKEND"); raw != "" {
		if raw != "memory" && raw != "sqlite" {
			return Config{}, fmt.Errorf("invalid STORE_BACKEND")
		}
		cfg.StoreBackend = raw
	}
	cfg.SnapshotFile = env.Getenv("SNAPSHOT_FILE")
	cfg.SQLiteDSN = env.Getenv("SQLITE_DSN")
	if cfg.StoreBackend == "sqlite" && cfg.SQLiteDSN == "" {
		return Config{}, fmt.Errorf("SQLITE_DSN is required with STORE_BACKEND=sqlite")
	}
	cfg.BackupPath = env.Getenv("BACKUP_PATH")
	cfg.BackupCron = env.Getenv("BACKUP_CRON")

	if raw := env.Getenv("MESH_WINDOW_MS"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			return Config{}, fmt.Errorf("invalid MESH_WINDOW_MS")
		}
		cfg.MeshWindow = time.Duration(ms) * time.Millisecond
	}
	if raw := env.Getenv("SWEEP_INTERVAL_MS"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			return Config{}, fmt.Errorf("invalid SWEEP_INTERVAL_MS")
		}
		cfg.SweepInterval = time.Duration(ms) * time.Millisecond
	}
	if raw := env.Getenv("START_ONLINE"); raw != "" {
		online, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid START_ONLINE")
		}
		cfg.StartOnline = online
	}

	cfg.AIAPIKey = env.Getenv("AI_API_KEY")
	cfg.AIBaseURL = env.Getenv("AI_BASE_URL")
	cfg.AIModel = env.Getenv("AI_MODEL")
	if raw := env.Getenv("AI_TIMEOUT_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid AI_TIMEOUT_SECONDS")
		}
		cfg.AITimeout = time.Duration(seconds) * time.Second
	}

	cfg.Log = logging.Config{
		Level:    env.Getenv("LOG_LEVEL"),
		Filename: env.Getenv("LOG_FILENAME"),
	}
	if raw := env.Getenv("LOG_MAX_SIZE"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return Config{}, fmt.Errorf("invalid LOG_MAX_SIZE")
		}
		cfg.Log.MaxSize = v
	}
	if raw := env.Getenv("LOG_MAX_AGE"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return Config{}, fmt.Errorf("invalid LOG_MAX_AGE")
		}
		cfg.Log.MaxAge = v
	}
	if raw := env.Getenv("LOG_MAX_BACKUPS"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return Config{}, fmt.Errorf("invalid LOG_MAX_BACKUPS")
		}
		cfg.Log.MaxBackups = v
	}

	return cfg, nil
}
