// Package backend builds the storage.Backend selected by DATA_BACKEND.
package backend

import (
	"context"
	"fmt"

	"studio/internal/config"
	"studio/internal/log"
	"studio/internal/storage"
)

// BackendType names a storage implementation
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
	RedisBackend  BackendType = "redis"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend, RedisBackend:
		return true
	default:
		return false
	}
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, FileBackend, SQLiteBackend, RedisBackend}
}

// Config holds what each backend needs to open
type Config struct {
	Type BackendType

	DataDirectory string
	SQLiteDBPath  string
	RedisAddr     string
	RedisPrefix   string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:          backendType,
		DataDirectory: appConfig.DataDir,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		RedisAddr:     appConfig.RedisAddr,
		RedisPrefix:   appConfig.RedisPrefix,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case FileBackend:
		if c.DataDirectory == "" {
			return fmt.Errorf("data directory is required for file backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case RedisBackend:
		if c.RedisAddr == "" {
			return fmt.Errorf("Redis address is required for redis backend")
		}
	}
	return nil
}

// CleanupFunc releases the resources held by a backend
type CleanupFunc func() error

type BackendResult struct {
	Backend storage.Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &Factory{logger: logger}
}

func (f *Factory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		b   storage.Backend
		err error
	)
	switch cfg.Type {
	case MemoryBackend:
		b = storage.NewMemoryStore()
	case FileBackend:
		b, err = storage.NewFileStore(cfg.DataDirectory)
	case SQLiteBackend:
		b, err = storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err == nil {
			if version, dirty, verr := storage.SchemaVersion(cfg.SQLiteDBPath); verr == nil {
				f.logger.Debug("SQLite schema ready", "schema_version", version, "dirty", dirty)
			}
		}
	case RedisBackend:
		b, err = storage.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", cfg.Type, err)
	}

	f.logger.Info("Initialized storage backend",
		log.FieldBackend, cfg.Type.String(),
		"data_directory", cfg.DataDirectory,
		"db_path", cfg.SQLiteDBPath,
		"redis_addr", cfg.RedisAddr)

	return &BackendResult{Backend: b, Cleanup: b.Close}, nil
}
