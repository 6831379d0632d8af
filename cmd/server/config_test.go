package main

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagDefaults(t *testing.T) {
	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NoError(t, cmd.Flags().Parse(nil))

	assert.Equal(t, "0.0.0.0", cfg.bind)
	assert.Equal(t, 8080, cfg.port)
	assert.Equal(t, 60*time.Minute, cfg.sessionTimeout)
	assert.Equal(t, "drawphone_actions", cfg.redisQueue)
	assert.Empty(t, cfg.redisAddr)
	assert.Empty(t, cfg.databaseURL)
	assert.NoError(t, cfg.validate())
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("DRAWPHONE_PORT", "9000")
	t.Setenv("DRAWPHONE_SESSION_TIMEOUT", "5m")
	t.Setenv("DRAWPHONE_REDIS_ADDR", "redis:6379")
	t.Setenv("DRAWPHONE_VERBOSE", "true")

	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NoError(t, cmd.Flags().Parse(nil))

	assert.Equal(t, 9000, cfg.port)
	assert.Equal(t, 5*time.Minute, cfg.sessionTimeout)
	assert.Equal(t, "redis:6379", cfg.redisAddr)
	assert.True(t, cfg.verbose)
	assert.Equal(t, logrus.DebugLevel, newLogger(cfg).GetLevel())
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("DRAWPHONE_PORT", "9000")

	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9100", "--prefix", "/draw", "--topics", "cat,dog"}))

	assert.Equal(t, 9100, cfg.port)
	assert.Equal(t, "/draw", cfg.prefix)
	assert.Equal(t, []string{"cat", "dog"}, cfg.topics)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"valid", Config{port: 8080}, true},
		{"port too low", Config{port: 0}, false},
		{"port too high", Config{port: 70000}, false},
		{"negative timeout", Config{port: 8080, sessionTimeout: -time.Second}, false},
		{"relative prefix", Config{port: 8080, prefix: "draw"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
