// File: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "climber", cfg.Logger.ServiceName)
	assert.Equal(t, 1920, cfg.Browser.WindowWidth)
	assert.True(t, cfg.Browser.DisableSiteIsolation)
	assert.Equal(t, "https://hatsandladders.com/login", cfg.Platform.LoginURL)
	assert.Equal(t, "federated", cfg.Auth.Method)
	assert.Equal(t, 3*time.Second, cfg.Activity.ProbeTimeout)
	assert.Equal(t, time.Second, cfg.Activity.ThinkTimeMin)
	assert.Equal(t, 2*time.Second, cfg.Activity.ThinkTimeMax)
	assert.Equal(t, 200, cfg.Walker.MaxActivities)
	assert.Equal(t, "error_screenshot_final.png", cfg.Run.ScreenshotPath)

	require.NoError(t, cfg.Validate(), "defaults must validate")
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Core Validation", func(t *testing.T) {
		base := NewDefaultConfig()

		badLogin := *base
		badLogin.Platform.LoginURL = "not a url"
		err := badLogin.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "platform.login_url must be an absolute URL")

		badMethod := *base
		badMethod.Auth.Method = "magic-link"
		err = badMethod.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth.method must be one of")

		noProvider := *base
		noProvider.Auth.ProviderDomain = ""
		err = noProvider.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "provider_domain is required")

		firstParty := noProvider
		firstParty.Auth.Method = "first_party"
		assert.NoError(t, firstParty.Validate(), "provider domain is irrelevant for first party login")

		badModule := *base
		badModule.Platform.ModuleURL = "/relative/path"
		assert.Error(t, badModule.Validate())

		badHold := *base
		badHold.Browser.Humanoid.ClickHoldMinMs = 200
		badHold.Browser.Humanoid.ClickHoldMaxMs = 100
		assert.Error(t, badHold.Validate())
	})

	t.Run("Activity Validation", func(t *testing.T) {
		valid := NewDefaultConfig().Activity
		assert.NoError(t, valid.Validate())

		inverted := valid
		inverted.ThinkTimeMin = 3 * time.Second
		err := inverted.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "think_time_min/max")

		table := valid
		table.AnswerStrategy = "table"
		err = table.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "answers_file is required")

		table.AnswersFile = "answers.yaml"
		assert.NoError(t, table.Validate())

		unknown := valid
		unknown.AnswerStrategy = "oracle"
		assert.Error(t, unknown.Validate())
	})

	t.Run("Walker Validation", func(t *testing.T) {
		valid := NewDefaultConfig().Walker
		assert.NoError(t, valid.Validate())

		noBudget := valid
		noBudget.MaxActivities = 0
		err := noBudget.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_activities must be greater than 0")

		noTimeout := valid
		noTimeout.FrameTimeout = 0
		assert.Error(t, noTimeout.Validate())
	})
}

func TestValidateCredentials(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Error(t, cfg.ValidateCredentials())

	cfg.Auth.Username = "climber@example.com"
	cfg.Auth.Password = "hunter2"
	assert.NoError(t, cfg.ValidateCredentials())
}

// -- Viper Integration Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("env credentials and overrides", func(t *testing.T) {
		t.Setenv("CLIMBER_USERNAME", "student@example.com")
		t.Setenv("CLIMBER_PASSWORD", "s3cret")

		v := viper.New()
		SetDefaults(v)
		v.Set("walker.max_activities", 12)
		v.Set("activity.probe_timeout", "1500ms")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "student@example.com", cfg.Auth.Username)
		assert.Equal(t, "s3cret", cfg.Auth.Password)
		assert.Equal(t, 12, cfg.Walker.MaxActivities)
		assert.Equal(t, 1500*time.Millisecond, cfg.Activity.ProbeTimeout)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("walker.max_activities", -1)

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}
