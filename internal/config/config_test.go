package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	c, err := FromLookup(lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, 5000, c.ServerPort)
	assert.Equal(t, "development", c.AppEnv)
	assert.Equal(t, "./taskflow.db", c.DatabasePath)
	assert.Equal(t, 7*24*time.Hour, c.JWTExpiresIn)
	assert.Equal(t, 12, c.BcryptCost)
	assert.Equal(t, "@hourly", c.ReminderSchedule)
	assert.Equal(t, 5*time.Minute, c.StatsCacheTTL)
	assert.True(t, c.UsingDevSecret)
	assert.NotEmpty(t, c.JWTSecret)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:5174", "http://localhost:5175"}, c.AllowedOrigins)
}

func TestFromLookup_Overrides(t *testing.T) {
	c, err := FromLookup(lookupFrom(map[string]string{
		"PORT":              "8081",
		"JWT_SECRET":        "s3cr3t",
		"JWT_EXPIRES_IN":    "2d",
		"FRONTEND_URL":      "https://app.example.com/, http://localhost:5173",
		"BCRYPT_COST":       "10",
		"REMINDER_SCHEDULE": "",
		"STATS_CACHE_TTL":   "30s",
	}))
	require.NoError(t, err)

	assert.Equal(t, 8081, c.ServerPort)
	assert.Equal(t, "s3cr3t", c.JWTSecret)
	assert.False(t, c.UsingDevSecret)
	assert.Equal(t, 48*time.Hour, c.JWTExpiresIn)
	assert.Equal(t, 10, c.BcryptCost)
	assert.Equal(t, "", c.ReminderSchedule)
	assert.Equal(t, 30*time.Second, c.StatsCacheTTL)
	assert.Equal(t, []string{
		"https://app.example.com",
		"http://localhost:5173",
		"http://localhost:5174",
		"http://localhost:5175",
	}, c.AllowedOrigins)
}

func TestFromLookup_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad port", map[string]string{"PORT": "http"}},
		{"bad expiry", map[string]string{"JWT_EXPIRES_IN": "soon"}},
		{"negative expiry", map[string]string{"JWT_EXPIRES_IN": "-1h"}},
		{"bad cost", map[string]string{"BCRYPT_COST": "99"}},
		{"prod without secret", map[string]string{"APP_ENV": "production"}},
		{"prod short secret", map[string]string{"APP_ENV": "production", "JWT_SECRET": "short"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromLookup(lookupFrom(tc.env))
			assert.Error(t, err)
		})
	}
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("7d")
	require.NoError(t, err)
	assert.Equal(t, 168*time.Hour, d)

	d, err = parseDuration("90m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)

	_, err = parseDuration("0d")
	assert.Error(t, err)
}
