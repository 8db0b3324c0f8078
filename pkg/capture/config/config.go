package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/incridea/capture-pipeline/pkg/capture"
	"github.com/incridea/capture-pipeline/pkg/capture/ingest"
	"github.com/incridea/capture-pipeline/pkg/capture/repo/memory"
	repopg "github.com/incridea/capture-pipeline/pkg/capture/repo/postgres"
	fsstorage "github.com/incridea/capture-pipeline/pkg/capture/storage/fs"
	memorystorage "github.com/incridea/capture-pipeline/pkg/capture/storage/memory"
	s3storage "github.com/incridea/capture-pipeline/pkg/capture/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:                  "8080",
		Environment:           "development",
		DatabaseType:          "memory",
		DefaultStorageBackend: "memory",
		StorageBackends: []StorageBackendConfig{
			{
				Name:   "memory",
				Type:   "memory",
				Config: map[string]interface{}{},
			},
		},
		JWTSecret:          "",
		CompressionQuality: 85,
		ThumbnailSize:      400,
		UploadTimeout:      30 * time.Second,
		EnableEventLogging: true,
	}
}

// ServerConfig represents server configuration for the capture pipeline service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Storage configuration
	DefaultStorageBackend string
	StorageBackends       []StorageBackendConfig

	// Auth configuration
	JWTSecret string

	// Ingest configuration
	CompressionQuality int
	ThumbnailSize      int
	UploadTimeout      time.Duration

	// Server options
	EnableEventLogging bool
}

// StorageBackendConfig represents configuration for a storage backend
type StorageBackendConfig struct {
	Name   string
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	if c.CompressionQuality < 1 || c.CompressionQuality > 100 {
		return errors.New("compression_quality must be between 1 and 100")
	}

	// Ensure default storage backend exists in configured backends
	found := false
	for _, backend := range c.StorageBackends {
		if backend.Name == c.DefaultStorageBackend {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("default storage backend '%s' not found in configured backends", c.DefaultStorageBackend)
	}

	return nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService() (capture.Service, error) {
	var options []capture.Option

	repo, err := c.buildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	options = append(options, capture.WithRepository(repo))

	// The default backend must be registered first so asset URL resolution
	// goes through it.
	for _, backendConfig := range c.orderedBackends() {
		store, err := c.buildStorageBackend(backendConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build storage backend %s: %w", backendConfig.Name, err)
		}
		options = append(options, capture.WithBlobStore(backendConfig.Name, store))
	}

	if c.EnableEventLogging {
		options = append(options, capture.WithEventSink(capture.NewLoggingEventSink(slog.Default())))
	}

	return capture.New(options...)
}

// BuildIngestor creates an Ingestor writing to the default storage backend.
func (c *ServerConfig) BuildIngestor() (*ingest.Ingestor, error) {
	backend, err := c.defaultBackendConfig()
	if err != nil {
		return nil, err
	}
	store, err := c.buildStorageBackend(backend)
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backend %s: %w", backend.Name, err)
	}
	return ingest.New(store,
		ingest.WithQuality(c.CompressionQuality),
		ingest.WithThumbnails(c.ThumbnailSize),
		ingest.WithUploadTimeout(c.UploadTimeout),
	)
}

func (c *ServerConfig) defaultBackendConfig() (StorageBackendConfig, error) {
	for _, backend := range c.StorageBackends {
		if backend.Name == c.DefaultStorageBackend {
			return backend, nil
		}
	}
	return StorageBackendConfig{}, fmt.Errorf("default storage backend '%s' not found", c.DefaultStorageBackend)
}

func (c *ServerConfig) orderedBackends() []StorageBackendConfig {
	ordered := make([]StorageBackendConfig, 0, len(c.StorageBackends))
	for _, backend := range c.StorageBackends {
		if backend.Name == c.DefaultStorageBackend {
			ordered = append(ordered, backend)
		}
	}
	for _, backend := range c.StorageBackends {
		if backend.Name != c.DefaultStorageBackend {
			ordered = append(ordered, backend)
		}
	}
	return ordered
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository() (capture.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, errors.New("database_url is required for postgres")
		}
		pool, err := pgxpool.New(context.Background(), c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// MigrateDatabase applies schema migrations when running on Postgres.
// It is a no-op for the memory database.
func (c *ServerConfig) MigrateDatabase() error {
	if c.DatabaseType != "postgres" {
		return nil
	}
	return repopg.Migrate(c.DatabaseURL)
}

// PingPostgres verifies connectivity to Postgres.
func PingPostgres(databaseURL string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// buildStorageBackend creates a BlobStore based on the backend configuration
func (c *ServerConfig) buildStorageBackend(config StorageBackendConfig) (capture.BlobStore, error) {
	switch config.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		fsConfig := fsstorage.Config{
			BaseDir:   getString(config.Config, "base_dir", "./data/storage"),
			URLPrefix: getString(config.Config, "url_prefix", ""),
		}
		return fsstorage.New(fsConfig)

	case "s3":
		s3Config := s3storage.Config{
			Region:                 getString(config.Config, "region", "us-east-1"),
			Bucket:                 getString(config.Config, "bucket", ""),
			AccessKeyID:            getString(config.Config, "access_key_id", ""),
			SecretAccessKey:        getString(config.Config, "secret_access_key", ""),
			Endpoint:               getString(config.Config, "endpoint", ""),
			UsePathStyle:           getBool(config.Config, "use_path_style", false),
			PresignDuration:        getInt(config.Config, "presign_duration", 3600),
			CreateBucketIfNotExist: getBool(config.Config, "create_bucket_if_not_exist", false),
		}
		return s3storage.New(s3Config)

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", config.Type)
	}
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}

func getInt(config map[string]interface{}, key string, defaultValue int) int {
	if value, exists := config[key]; exists {
		if i, ok := value.(int); ok {
			return i
		}
		if str, ok := value.(string); ok {
			if i, err := strconv.Atoi(str); err == nil {
				return i
			}
		}
		if f, ok := value.(float64); ok {
			return int(f)
		}
	}
	return defaultValue
}
