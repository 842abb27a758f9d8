package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type DBDriver string
type StorageType string

const (
	DBDriverMSSQL    DBDriver = "mssql"
	DBDriverPostgres DBDriver = "postgres"
)

const (
	StorageS3    StorageType = "s3"
	StorageMinIO StorageType = "minio"
	StorageLocal StorageType = "local"
)

const redactedValue = "********"

// DBConfig describes the database connection. A zero Port means the
// driver's default. SSLMode is the lib/pq sslmode and is ignored by mssql.
type DBConfig struct {
	Driver                 DBDriver      `koanf:"driver" yaml:"driver"`
	Server                 string        `koanf:"server" yaml:"server"`
	Port                   int           `koanf:"port" yaml:"port,omitempty"`
	Database               string        `koanf:"database" yaml:"database"`
	User                   string        `koanf:"user" yaml:"user"`
	Password               string        `koanf:"password" yaml:"password"`
	Encrypt                bool          `koanf:"encrypt" yaml:"encrypt"`
	TrustServerCertificate bool          `koanf:"trust_server_certificate" yaml:"trust_server_certificate"`
	SSLMode                string        `koanf:"ssl_mode" yaml:"ssl_mode,omitempty"`
	ConnectTimeout         time.Duration `koanf:"connect_timeout" yaml:"connect_timeout"`
}

type StorageConfig struct {
	Type      StorageType `koanf:"type" yaml:"type"`
	Bucket    string      `koanf:"bucket" yaml:"bucket"`
	Region    string      `koanf:"region" yaml:"region,omitempty"`
	Endpoint  string      `koanf:"endpoint" yaml:"endpoint,omitempty"`
	AccessKey string      `koanf:"access_key" yaml:"access_key,omitempty"`
	SecretKey string      `koanf:"secret_key" yaml:"secret_key,omitempty"`
	UseSSL    bool        `koanf:"use_ssl" yaml:"use_ssl"`
	PathStyle bool        `koanf:"path_style" yaml:"path_style"`
	LocalPath string      `koanf:"local_path" yaml:"local_path,omitempty"`
}

type RedisConfig struct {
	Host     string `koanf:"host" yaml:"host,omitempty"`
	Port     int    `koanf:"port" yaml:"port"`
	Password string `koanf:"password" yaml:"password,omitempty"`
	DB       int    `koanf:"db" yaml:"db"`
}

// Enabled reports whether a Redis host was configured. The queue and the
// invocation record endpoints are only available when it is.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Host) != ""
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

type ServerConfig struct {
	Port string `koanf:"port" yaml:"port"`
}

type TracingConfig struct {
	Enabled bool `koanf:"enabled" yaml:"enabled"`
}

type Config struct {
	DB      DBConfig      `koanf:"db" yaml:"db"`
	Storage StorageConfig `koanf:"storage" yaml:"storage"`
	Redis   RedisConfig   `koanf:"redis" yaml:"redis"`
	Log     LogConfig     `koanf:"log" yaml:"log"`
	Server  ServerConfig  `koanf:"server" yaml:"server"`
	Tracing TracingConfig `koanf:"tracing" yaml:"tracing"`
}

func Default() Config {
	return Config{
		DB: DBConfig{
			Driver:                 DBDriverMSSQL,
			Encrypt:                true,
			TrustServerCertificate: true,
			ConnectTimeout:         15 * time.Second,
		},
		Storage: StorageConfig{
			Type:      StorageS3,
			UseSSL:    true,
			LocalPath: "/tmp/sp-export",
		},
		Redis: RedisConfig{
			Port: 6379,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Port: "8080",
		},
	}
}

// Validate checks that everything an invocation needs was supplied.
func (c Config) Validate() error {
	var missing []string

	if strings.TrimSpace(c.DB.Server) == "" {
		missing = append(missing, "DB_SERVER")
	}
	if strings.TrimSpace(c.DB.Database) == "" {
		missing = append(missing, "DB_NAME")
	}
	if strings.TrimSpace(c.DB.User) == "" {
		missing = append(missing, "DB_USER")
	}
	if c.DB.Password == "" {
		missing = append(missing, "DB_PASSWORD")
	}
	if strings.TrimSpace(c.Storage.Bucket) == "" {
		missing = append(missing, "S3_BUCKET_NAME")
	}
	if c.Storage.Type == StorageLocal && strings.TrimSpace(c.Storage.LocalPath) == "" {
		missing = append(missing, "SP_EXPORT_STORAGE_LOCAL_PATH")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	switch c.DB.Driver {
	case DBDriverMSSQL, DBDriverPostgres:
	default:
		return fmt.Errorf("unsupported db driver: %q", c.DB.Driver)
	}

	// zero picks the driver's default port
	if c.DB.Port < 0 || c.DB.Port > 65535 {
		return errors.New("db port is invalid")
	}

	switch c.Storage.Type {
	case StorageS3, StorageMinIO, StorageLocal:
	default:
		return fmt.Errorf("unsupported storage type: %q", c.Storage.Type)
	}

	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	out := c
	if out.DB.Password != "" {
		out.DB.Password = redactedValue
	}
	if out.Storage.SecretKey != "" {
		out.Storage.SecretKey = redactedValue
	}
	if out.Redis.Password != "" {
		out.Redis.Password = redactedValue
	}
	return out
}

func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.Redacted())
}
