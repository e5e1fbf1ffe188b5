package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/yourlabs/compoctl/internal/storage"
)

// EnvPrefix is prepended to every environment override, so that
// COMPOCTL_RESTORE_TIMEOUT sets restore.timeout
const EnvPrefix = "COMPOCTL"

type Config struct {
	Compose ComposeConfig `mapstructure:"compose"`
	Docker  DockerConfig  `mapstructure:"docker"`
	Backup  BackupConfig  `mapstructure:"backup"`
	Restore RestoreConfig `mapstructure:"restore"`
	Labels  LabelsConfig  `mapstructure:"labels"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Storage StorageConfig `mapstructure:"storage"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Log     LogConfig     `mapstructure:"log"`

	// File is the configuration file that was read, empty when none was found
	File string `mapstructure:"-"`
}

type ComposeConfig struct {
	Binary string `mapstructure:"binary"`
}

type DockerConfig struct {
	Host string `mapstructure:"host"`
}

type BackupConfig struct {
	Dir      string `mapstructure:"dir"`
	Snapshot string `mapstructure:"snapshot"`
}

type RestoreConfig struct {
	File     string        `mapstructure:"file"`
	Settle   time.Duration `mapstructure:"settle"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Interval time.Duration `mapstructure:"interval"`
}

type LabelsConfig struct {
	Backup  string `mapstructure:"backup"`
	Restore string `mapstructure:"restore"`
}

type FetchConfig struct {
	Retries int           `mapstructure:"retries"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Type  string             `mapstructure:"type"`
	Local LocalStorageConfig `mapstructure:"local"`
	S3    S3StorageConfig    `mapstructure:"s3"`
	GCS   GCSStorageConfig   `mapstructure:"gcs"`
}

type LocalStorageConfig struct {
	Path string `mapstructure:"path"`
}

type S3StorageConfig struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type GCSStorageConfig struct {
	Bucket      string `mapstructure:"bucket"`
	Project     string `mapstructure:"project"`
	Credentials string `mapstructure:"credentials"`
	Prefix      string `mapstructure:"prefix"`
}

type ArchiveConfig struct {
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// flagKeys maps command line flags onto configuration keys
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("compose.binary", "docker-compose")
	v.SetDefault("docker.host", "")
	v.SetDefault("backup.dir", "backup")
	v.SetDefault("backup.snapshot", "docker-compose._restore.yml")
	v.SetDefault("restore.file", "docker-compose._restore.yml")
	v.SetDefault("restore.settle", 5*time.Second)
	v.SetDefault("restore.timeout", 2*time.Minute)
	v.SetDefault("restore.interval", time.Second)
	v.SetDefault("labels.backup", "io.yourlabs.backup.cmd")
	v.SetDefault("labels.restore", "io.yourlabs.restore.cmd")
	v.SetDefault("fetch.retries", 3)
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("storage.type", "")
	v.SetDefault("storage.local.path", "")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.prefix", "")
	v.SetDefault("storage.gcs.bucket", "")
	v.SetDefault("storage.gcs.project", "")
	v.SetDefault("storage.gcs.credentials", "")
	v.SetDefault("storage.gcs.prefix", "")
	v.SetDefault("archive.password", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load builds the configuration from defaults, an optional config file,
// COMPOCTL_* environment variables and finally the command line flags.
// An explicit configFile must exist; otherwise compoctl.{yml,yaml,toml,json}
// is searched in projectDir, $HOME/.config/compoctl and /etc/compoctl.
func Load(flags *pflag.FlagSet, configFile, projectDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("compoctl")
		if projectDir == "" {
			projectDir = "."
		}
		v.AddConfigPath(projectDir)
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "compoctl"))
		}
		v.AddConfigPath("/etc/compoctl")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	if c.Compose.Binary == "" {
		return fmt.Errorf("compose.binary must not be empty")
	}
	if c.Backup.Dir == "" || c.Backup.Snapshot == "" || c.Restore.File == "" {
		return fmt.Errorf("backup.dir, backup.snapshot and restore.file must not be empty")
	}
	if c.Restore.Interval <= 0 {
		return fmt.Errorf("restore.interval must be positive")
	}
	if c.Restore.Timeout <= 0 {
		return fmt.Errorf("restore.timeout must be positive")
	}
	if c.Restore.Settle < 0 {
		return fmt.Errorf("restore.settle must not be negative")
	}
	if c.Fetch.Retries < 0 {
		return fmt.Errorf("fetch.retries must not be negative")
	}

	switch c.Storage.Type {
	case "", "local", "s3", "gcs":
	default:
		return fmt.Errorf("storage.type must be one of: local, s3, gcs")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}
	return nil
}

// StorageEnabled reports whether an archive store is configured
func (c *Config) StorageEnabled() bool {
	return c.Storage.Type != ""
}

// StorageBackend translates the storage section into a backend config
func (c *Config) StorageBackend() *storage.Config {
	sc := &storage.Config{Type: c.Storage.Type}
	switch c.Storage.Type {
	case "local":
		path := c.Storage.Local.Path
		if path == "" {
			if home, err := os.UserHomeDir(); err == nil {
				path = filepath.Join(home, ".local", "share", "compoctl", "archives")
			} else {
				path = filepath.Join(".compoctl", "archives")
			}
		}
		sc.Local = &storage.LocalConfig{BasePath: path}
	case "s3":
		sc.S3 = &storage.S3Config{
			Bucket:    c.Storage.S3.Bucket,
			Region:    c.Storage.S3.Region,
			Endpoint:  c.Storage.S3.Endpoint,
			AccessKey: c.Storage.S3.AccessKey,
			SecretKey: c.Storage.S3.SecretKey,
			Prefix:    c.Storage.S3.Prefix,
		}
	case "gcs":
		sc.GCS = &storage.GCSConfig{
			Bucket:      c.Storage.GCS.Bucket,
			ProjectID:   c.Storage.GCS.Project,
			Credentials: c.Storage.GCS.Credentials,
			Prefix:      c.Storage.GCS.Prefix,
		}
	}
	return sc
}
