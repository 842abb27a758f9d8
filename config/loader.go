package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix namespaces every setting that has no historical name.
const EnvPrefix = "SP_EXPORT_"

// ConfigFileEnv points at an optional YAML file when --config is not given.
const ConfigFileEnv = EnvPrefix + "CONFIG"

// envKeys are the names the function has always been deployed with.
var envKeys = map[string]string{
	"DB_SERVER":      "db.server",
	"DB_NAME":        "db.database",
	"DB_USER":        "db.user",
	"DB_PASSWORD":    "db.password",
	"S3_BUCKET_NAME": "storage.bucket",
}

// legacyEnvKeys are lower precedence spellings used by older deployments.
var legacyEnvKeys = map[string]string{
	"server":         "db.server",
	"database":       "db.database",
	"userid":         "db.user",
	"password":       "db.password",
	"s3_bucket_name": "storage.bucket",
}

var flagKeys = map[string]string{
	"log-level":    "log.level",
	"log-format":   "log.format",
	"storage-type": "storage.type",
	"bucket":       "storage.bucket",
	"port":         "server.port",
}

// Load builds a Config from defaults, an optional YAML file, the
// environment and explicitly set flags, in increasing priority.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultMap(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile == "" {
		cfgFile = os.Getenv(ConfigFileEnv)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	if err := k.Load(env.Provider("", ".", legacyEnvKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load env vars: %w", err)
	}
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	return cfg, nil
}

func legacyEnvKey(name string) string {
	return legacyEnvKeys[name]
}

// envKey maps DB_SERVER style names and SP_EXPORT_<SECTION>_<FIELD> names to
// koanf keys. Anything else in the environment is ignored.
func envKey(name string) string {
	if key, ok := envKeys[name]; ok {
		return key
	}
	if !strings.HasPrefix(name, EnvPrefix) || name == ConfigFileEnv {
		return ""
	}
	rest := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	section, field, ok := strings.Cut(rest, "_")
	if !ok || field == "" {
		return ""
	}
	return section + "." + field
}

func defaultMap() map[string]interface{} {
	d := Default()
	// CloudWatch indexes JSON lines
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		d.Log.Format = "json"
	}
	return map[string]interface{}{
		"db.driver":                   string(d.DB.Driver),
		"db.port":                     d.DB.Port,
		"db.encrypt":                  d.DB.Encrypt,
		"db.trust_server_certificate": d.DB.TrustServerCertificate,
		"db.connect_timeout":          d.DB.ConnectTimeout.String(),
		"storage.type":                string(d.Storage.Type),
		"storage.use_ssl":             d.Storage.UseSSL,
		"storage.local_path":          d.Storage.LocalPath,
		"redis.port":                  d.Redis.Port,
		"log.level":                   d.Log.Level,
		"log.format":                  d.Log.Format,
		"server.port":                 d.Server.Port,
		"tracing.enabled":             d.Tracing.Enabled,
	}
}
