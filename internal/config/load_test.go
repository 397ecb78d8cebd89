package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

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

	testAppName := "TestGateway"
	testPort := 9090
	testLogLevel := "debug"
	testAnswerCeiling := 600

	envContent := fmt.Sprintf(
		"APP_NAME=%s\nSERVER_PORT=%d\nLOG_LEVEL=%s\nRISK_MAX_PLAUSIBLE_ANSWER_SECS=%d\n",
		testAppName, testPort, testLogLevel, testAnswerCeiling,
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
	assert.Equal(t, testAnswerCeiling, cfg.Risk.MaxPlausibleAnswerSecs)

	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "session_events", cfg.Kafka.SessionEventTopic)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, "migrations/postgres", cfg.Postgres.MigrationsPath)
	assert.Equal(t, 10, cfg.WorkerPool.Size)
	assert.Equal(t, 7000, cfg.Session.CreatorShareBps)
	assert.Equal(t, int64(1000), cfg.Session.MinWithdrawal)
	assert.Equal(t, 30*time.Second, cfg.Session.GracePeriod)
	assert.Equal(t, 3, cfg.Risk.MinPlausibleAnswerSecs)

	cfgWithName, err := LoadConfigWithName("configs/test_happy") // Viper will look for configs/test_happy.env
	require.NoError(t, err)
	require.NotNil(t, cfgWithName)
	assert.Equal(t, testAppName, cfgWithName.Application.Name)

	cfgWithNameAndType, err := LoadConfigWithNameAndType("configs/test_happy", "env")
	require.NoError(t, err)
	require.NotNil(t, cfgWithNameAndType)
	assert.Equal(t, testAppName, cfgWithNameAndType.Application.Name)
}

func TestConfig_Validate(t *testing.T) {
	validConfig := func() *Config {
		cfg, err := LoadConfig("nonexistent_defaults_only")
		require.NoError(t, err)
		return cfg
	}

	t.Run("DefaultsAreValid", func(t *testing.T) {
		cfg := validConfig()
		assert.NoError(t, cfg.validate())
	})

	t.Run("RejectsDegenerateRevenueSplit", func(t *testing.T) {
		for _, bps := range []int{0, -100, 10000, 12000} {
			cfg := validConfig()
			cfg.Session.CreatorShareBps = bps
			assert.ErrorContains(t, cfg.validate(), "SESSION_CREATOR_SHARE_BPS", "bps %d", bps)
		}
	})

	t.Run("RejectsMalformedPlatformAccount", func(t *testing.T) {
		cfg := validConfig()
		cfg.Session.PlatformAccountID = "not-a-uuid"
		assert.ErrorContains(t, cfg.validate(), "SESSION_PLATFORM_ACCOUNT_ID")
	})

	t.Run("RejectsInvertedPlausibilityBounds", func(t *testing.T) {
		cfg := validConfig()
		cfg.Risk.MinPlausibleAnswerSecs = 300
		cfg.Risk.MaxPlausibleAnswerSecs = 300
		assert.ErrorContains(t, cfg.validate(), "RISK_MAX_PLAUSIBLE_ANSWER_SECS")
	})

	t.Run("CollectsAllErrors", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Port = 0
		cfg.Kafka.SessionEventTopic = ""

		err := cfg.validate()

		require.Error(t, err)
		assert.ErrorContains(t, err, "SERVER_PORT")
		assert.ErrorContains(t, err, "KAFKA_SESSION_EVENT_TOPIC")
	})
}
