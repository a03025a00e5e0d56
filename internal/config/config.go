package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig           `mapstructure:"server"`
	Database DatabaseConfig         `mapstructure:"database"`
	Staging  StagingConfig          `mapstructure:"staging"`
	Models   map[string]ModelConfig `mapstructure:"models"`
	Archive  ArchiveConfig          `mapstructure:"archive"`
	Notify   NotifyConfig           `mapstructure:"notify"`
	Contact  ContactConfig          `mapstructure:"contact"`
	App      AppConfig              `mapstructure:"app"`
	Metrics  MetricsConfig          `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port        int        `mapstructure:"port"`
	Mode        string     `mapstructure:"mode"`
	MaxUploadMB int64      `mapstructure:"max_upload_mb"`
	CORS        CORSConfig `mapstructure:"cors"`

	// TrustedProxies lists IPs or CIDRs whose X-Forwarded-For is honored. Empty trusts none.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite or postgres
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogLevel        string        `mapstructure:"log_level"`
}

// DSN builds the driver-specific data source name.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path + "?_busy_timeout=5000&_foreign_keys=on"
}

type StagingConfig struct {
	Dir string `mapstructure:"dir"`
}

// ModelConfig describes how to load one classifier kind.
type ModelConfig struct {
	Backend    string        `mapstructure:"backend"` // tflite or remote
	ModelPath  string        `mapstructure:"model_path"`
	LabelsPath string        `mapstructure:"labels_path"`
	Endpoint   string        `mapstructure:"endpoint"`
	InputSize  int           `mapstructure:"input_size"`
	Threads    int           `mapstructure:"threads"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type ArchiveConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type NotifyConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URLs    []string      `mapstructure:"urls"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ContactConfig struct {
	Email          string `mapstructure:"email"`
	WhatsApp       string `mapstructure:"whatsapp"`
	DefaultSubject string `mapstructure:"default_subject"`
}

type AppConfig struct {
	Name     string             `mapstructure:"name"`
	Version  string             `mapstructure:"version"`
	Accuracy map[string]float64 `mapstructure:"accuracy"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from .env, the config file and the environment.
// Parameters:
//   - configPath: explicit config file; empty searches ./configs and the working directory.
// Returns:
//   - *Config: validated configuration.
//   - error: non-nil if the file is unreadable or validation fails.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.path", "DB_PATH")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("archive.access_key", "ARCHIVE_ACCESS_KEY")
	v.BindEnv("archive.secret_key", "ARCHIVE_SECRET_KEY")
	v.BindEnv("notify.urls", "NOTIFY_URLS")
	v.BindEnv("server.port", "PORT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Models) == 0 {
		cfg.Models = DefaultModels()
	}
	for kind, m := range cfg.Models {
		if m.InputSize == 0 {
			m.InputSize = DefaultInputSize
		}
		if m.Backend == "" {
			m.Backend = "tflite"
		}
		cfg.Models[kind] = m
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultInputSize is the square input resolution the classifiers were trained on.
const DefaultInputSize = 224

// DefaultModels returns the fruit and leaf classifiers at their conventional paths.
func DefaultModels() map[string]ModelConfig {
	return map[string]ModelConfig{
		"fruit": {
			Backend:    "tflite",
			ModelPath:  "models/fruit_model.tflite",
			LabelsPath: "mappings/fruit_classes.json",
			InputSize:  DefaultInputSize,
		},
		"leaf": {
			Backend:    "tflite",
			ModelPath:  "models/leaf_disease_model.tflite",
			LabelsPath: "mappings/leaf_classes.json",
			InputSize:  DefaultInputSize,
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.max_upload_mb", 16)
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/crop_disease_db.sqlite")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("staging.dir", "uploads")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.bucket", "cropguard-uploads")

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.timeout", 10*time.Second)

	v.SetDefault("contact.email", "kartheeswarmails@gmail.com")
	v.SetDefault("contact.whatsapp", "+917845844982")
	v.SetDefault("contact.default_subject", "CropGuard AI Contact Form Submission")

	v.SetDefault("app.name", "CropGuard AI - Multi-Crop Disease Detection API")
	v.SetDefault("app.version", "3.0")
	v.SetDefault("app.accuracy", map[string]float64{"fruit": 99.77, "leaf": 95.50})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks the configuration for values the service cannot start with.
func (c *Config) Validate() error {
	for _, p := range c.Server.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("server.trusted_proxies: invalid address %q", p)
			}
		}
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}

	for kind, m := range c.Models {
		if kind == "" {
			return fmt.Errorf("models: empty model kind")
		}
		switch m.Backend {
		case "tflite":
			if m.ModelPath == "" {
				return fmt.Errorf("models.%s: model_path is required for tflite backend", kind)
			}
		case "remote":
			if _, err := url.ParseRequestURI(m.Endpoint); err != nil {
				return fmt.Errorf("models.%s: invalid endpoint %q: %w", kind, m.Endpoint, err)
			}
		default:
			return fmt.Errorf("models.%s: unknown backend %q", kind, m.Backend)
		}
		if m.InputSize <= 0 {
			return fmt.Errorf("models.%s: input_size must be positive", kind)
		}
	}

	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive: bucket is required when enabled")
	}
	return nil
}
