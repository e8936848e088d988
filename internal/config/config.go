package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultFile = "configfile/config.yml"

// environment variables and the viper keys they feed
var envBindings = map[string]string{
	"openai.api-key":  "OPENAI_API_KEY",
	"openai.model":    "OPENAI_MODEL",
	"openai.base-url": "OPENAI_BASE_URL",
	"database.url":    "DATABASE_URL",
	"database.path":   "DATABASE_PATH",
	"seed.file":       "JSON_FILE_PATH",
	"redis.addr":      "REDIS_ADDR",
	"admin-secret":    "ADMIN_SECRET",
}

// Load reads .env, then the config file at path, on top of the defaults.
// A missing file is not an error; every key has a default.
func Load(path string) error {
	if err := LoadDotEnv(".env"); err != nil {
		return err
	}

	SetDefaults()

	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		path = DefaultFile
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	viper.SetConfigFile(path)
	return viper.ReadInConfig()
}

// LoadDotEnv exports the entries of a dotenv file without overriding
// variables that are already set.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}

func SetDefaults() {
	viper.SetDefault("hostname", "0.0.0.0")
	viper.SetDefault("port", 8000)
	viper.SetDefault("allow-origins", []string{"*"})
	viper.SetDefault("admin-secret", "")

	// static checker
	viper.SetDefault("checker.binary", "pylint")
	viper.SetDefault("checker.args", []string{})
	viper.SetDefault("checker.timeout", 20*time.Second)

	// engines
	viper.SetDefault("runner.python", "python3")
	viper.SetDefault("runner.timeout", 10*time.Second)
	viper.SetDefault("timeout", 10*time.Second)
	viper.SetDefault("code-cache-expiration", 10*time.Minute)

	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("openai.temperature", 0.4)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.hostname", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.expiration", 10*time.Minute)
	viper.SetDefault("review.timeout", 2*time.Minute)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// milliseconds
	viper.SetDefault("websocket.ping", 30000)
	viper.SetDefault("websocket.pong", 10000)
}
