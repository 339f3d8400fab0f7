package backend

import (
	"errors"
	"fmt"
	"time"

	"costoflife/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Memory specific: the journal the store is seeded from and saved to.
	// Empty keeps everything in memory.
	JournalPath string

	// Reports
	EvalWorkers int
	CacheTTL    time.Duration
	CacheSize   int
}

// DefaultCacheSize bounds the number of cached evaluation results.
const DefaultCacheSize = 4096

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		JournalPath: appConfig.JournalPath,

		EvalWorkers: appConfig.EvalWorkers,
		CacheTTL:    appConfig.CacheTTL,
		CacheSize:   DefaultCacheSize,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
		// AMQP is optional
	case MemoryBackend:
		// An empty journal path keeps the store purely in memory
	}

	if c.EvalWorkers < 0 {
		return fmt.Errorf("eval workers must not be negative, got %d", c.EvalWorkers)
	}
	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{SQLiteBackend.String(), MemoryBackend.String()}
}
