package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_HappyPath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	tempConfigsSubDir := filepath.Join(tempDir, "configs")
	err = os.Mkdir(tempConfigsSubDir, 0755)
	require.NoError(t, err)

	testAppName := "TestProxy"
	testPort := 9090
	testLogLevel := "debug"
	testPlaidClientID := "client-id-from-file"

	envContent := fmt.Sprintf(
		"APP_NAME=%s\nSERVER_PORT=%d\nLOG_LEVEL=%s\nPLAID_CLIENT_ID=%s\n",
		testAppName, testPort, testLogLevel, testPlaidClientID,
	)
	envFilePath := filepath.Join(tempConfigsSubDir, "test_happy.env")
	err = os.WriteFile(envFilePath, []byte(envContent), 0644)
	require.NoError(t, err)

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	cfg, err := LoadConfig("test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, testAppName, cfg.Application.Name)
	assert.Equal(t, testPort, cfg.Server.Port)
	assert.Equal(t, testLogLevel, cfg.Logging.Level)
	assert.Equal(t, testPlaidClientID, cfg.Plaid.ClientID)

	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sandbox", cfg.Plaid.Environment)
	assert.Equal(t, "migrations/postgres", cfg.Postgres.MigrationsPath)
	assert.False(t, cfg.Batch.StrictMarking)
	assert.Equal(t, 500, cfg.Batch.MaxPageSize)

	cfgWithName, err := LoadConfigWithName("configs/test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfgWithName)
	assert.Equal(t, testAppName, cfgWithName.Application.Name)

	cfgWithNameAndType, err := LoadConfigWithNameAndType("configs/test_happy", "env")
	require.NoError(t, err)
	require.NotNil(t, cfgWithNameAndType)
	assert.Equal(t, testAppName, cfgWithNameAndType.Application.Name)
}

func TestConfig_Validate_HappyPath(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{
		Application: ApplicationConfig{Env: v.GetString("APP_ENV"), Name: v.GetString("APP_NAME")},
		Logging:     LoggingConfig{Level: v.GetString("LOG_LEVEL")},
		Server: ServerConfig{
			Port:            v.GetInt("SERVER_PORT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("SERVER_IDLE_TIMEOUT"),
		},
		Postgres: PostgresConfig{
			URL:             v.GetString("POSTGRES_URL"),
			MaxConns:        int32(v.GetInt("POSTGRES_MAX_CONNS")),
			MinConns:        int32(v.GetInt("POSTGRES_MIN_CONNS")),
			ConnMaxLifetime: v.GetDuration("POSTGRES_MAX_CONN_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("POSTGRES_MAX_CONN_IDLE_TIME"),
			MigrationsPath:  v.GetString("POSTGRES_MIGRATIONS_PATH"),
		},
		Plaid: PlaidConfig{
			ClientID:    v.GetString("PLAID_CLIENT_ID"),
			Secret:      v.GetString("PLAID_SECRET"),
			Environment: v.GetString("PLAID_ENV"),
		},
		Batch: BatchConfig{
			StrictMarking: v.GetBool("BATCH_STRICT_MARKING"),
			MaxPageSize:   v.GetInt("BATCH_MAX_PAGE_SIZE"),
		},
	}

	assert.NoError(t, cfg.validate())
}

func TestConfig_Validate_Failures(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{
				Port:            8000,
				ShutdownTimeout: time.Second,
				ReadTimeout:     time.Second,
				WriteTimeout:    time.Second,
				IdleTimeout:     time.Second,
			},
			Postgres: PostgresConfig{
				URL:             "postgres://localhost:5432/plaid_proxy",
				MaxConns:        10,
				MinConns:        2,
				ConnMaxLifetime: time.Hour,
				ConnMaxIdleTime: time.Minute,
			},
			Plaid: PlaidConfig{Environment: "sandbox"},
			Batch: BatchConfig{MaxPageSize: 500},
		}
	}

	t.Run("ValidBase", func(t *testing.T) {
		assert.NoError(t, base().validate())
	})

	t.Run("MissingPort", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 0
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SERVER_PORT")
	})

	t.Run("MissingPostgresURL", func(t *testing.T) {
		cfg := base()
		cfg.Postgres.URL = ""
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "POSTGRES_URL")
	})

	t.Run("InvalidPlaidEnvironment", func(t *testing.T) {
		cfg := base()
		cfg.Plaid.Environment = "staging"
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PLAID_ENV")
	})

	t.Run("InvalidMaxPageSize", func(t *testing.T) {
		cfg := base()
		cfg.Batch.MaxPageSize = 0
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "BATCH_MAX_PAGE_SIZE")
	})
}
