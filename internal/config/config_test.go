package config_test

import (
	"os"
	"path/filepath"
	"refacto/internal/config"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "REFACTO_TEST_KEEP=from-file\nREFACTO_TEST_NEW=fresh\n"
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("REFACTO_TEST_KEEP", "from-env")
	os.Unsetenv("REFACTO_TEST_NEW")
	defer os.Unsetenv("REFACTO_TEST_NEW")

	assert.NoError(t, config.LoadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv("REFACTO_TEST_KEEP"))
	assert.Equal(t, "fresh", os.Getenv("REFACTO_TEST_NEW"))
}

func TestMissingDotEnv(t *testing.T) {
	assert.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadWithoutFile(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	t.Setenv("DATABASE_PATH", "/tmp/refacto.db")
	err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.NoError(t, err)

	assert.Equal(t, "pylint", viper.GetString("checker.binary"))
	assert.Equal(t, 20*time.Second, viper.GetDuration("checker.timeout"))
	assert.Equal(t, 10*time.Second, viper.GetDuration("runner.timeout"))
	assert.Equal(t, "/tmp/refacto.db", viper.GetString("database.path"))
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	path := filepath.Join(t.TempDir(), "config.yml")
	content := "port: 9001\nchecker:\n  timeout: 5s\n"
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	assert.NoError(t, config.Load(path))
	assert.Equal(t, 9001, viper.GetInt("port"))
	assert.Equal(t, 5*time.Second, viper.GetDuration("checker.timeout"))
	assert.Equal(t, "python3", viper.GetString("runner.python"))
}
