package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                "test",
		JWTSecret:          "secure-secret-at-least-32-chars-long",
		DBPassword:         "secure-password",
		DBDriver:           "postgres",
		Port:               "8080",
		LeaderboardWindow:  24 * time.Hour,
		LeaderboardLimit:   5,
		TracingSampleRatio: 1,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Valid test config", func(c *Config) {}, false},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"SQLite driver", func(c *Config) { c.DBDriver = "sqlite" }, false},
		{"Zero leaderboard window", func(c *Config) { c.LeaderboardWindow = 0 }, true},
		{"Zero leaderboard limit", func(c *Config) { c.LeaderboardLimit = 0 }, true},
		{"Sample ratio above one", func(c *Config) { c.TracingSampleRatio = 1.5 }, true},
		{"Production with default secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = defaultJWTSecret
		}, true},
		{"Production with weak db password", func(c *Config) {
			c.Env = "prod"
			c.DBPassword = "password"
		}, true},
		{"Production with strong settings", func(c *Config) { c.Env = "production" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("LEADERBOARD_WINDOW", "2h")
	t.Setenv("LEADERBOARD_LIMIT", "10")

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, 2*time.Hour, c.LeaderboardWindow)
	assert.Equal(t, 10, c.LeaderboardLimit)
	assert.Equal(t, "8000", c.Port)
	assert.Equal(t, "@every 1m", c.LeaderboardBroadcastSpec)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, c.LeaderboardWindow)
	assert.Equal(t, 5, c.LeaderboardLimit)
	assert.Equal(t, "hybrid", c.DBSchemaMode)
	assert.Equal(t, "live_events=on,leaderboard_broadcast=on", c.FeatureFlags)
	assert.False(t, c.IsProduction())
}
