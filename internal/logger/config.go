package logger

import (
	"io"

	"github.com/spf13/viper"
)

// EnvConfig is the logger configuration read from LOG_* and APP_ENV variables.
type EnvConfig struct {
	Level       string    // debug, info, warn, error
	Format      string    // json, text
	Output      io.Writer // overrides every other destination when set
	ServiceName string

	// Environment: local, dev, prod. Non-local environments also write to LogFile.
	Environment string

	LogFile     string
	LogFileOnly bool

	// Rotation
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

func envDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("service_name", "cropguard")
	v.SetDefault("app_env", "local")
	v.SetDefault("log_file", "/var/log/cropguard/app.log")
	v.SetDefault("log_file_only", false)
	v.SetDefault("log_max_size", 100)
	v.SetDefault("log_max_backups", 7)
	v.SetDefault("log_max_age", 30)
	v.SetDefault("log_compress", true)
}

// LoadFromEnv reads the logger configuration from the environment.
// Unparseable values fall back to their defaults.
func LoadFromEnv() *EnvConfig {
	v := viper.New()
	envDefaults(v)
	v.AutomaticEnv()

	return &EnvConfig{
		Level:       v.GetString("log_level"),
		Format:      v.GetString("log_format"),
		ServiceName: v.GetString("service_name"),
		Environment: v.GetString("app_env"),
		LogFile:     v.GetString("log_file"),
		LogFileOnly: v.GetBool("log_file_only"),
		MaxSize:     positive(v.GetInt("log_max_size"), 100),
		MaxBackups:  positive(v.GetInt("log_max_backups"), 7),
		MaxAge:      positive(v.GetInt("log_max_age"), 30),
		Compress:    v.GetBool("log_compress"),
	}
}

func positive(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}
