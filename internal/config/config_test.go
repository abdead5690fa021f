package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBackends(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"single", "file", []string{"file"}},
		{"colon separated", "file:mirror:database", []string{"file", "mirror", "database"}},
		{"whitespace trimmed", " file : mirror ", []string{"file", "mirror"}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitBackends(tt.input))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GRAPH_BACKENDS", "")
	t.Setenv("TIMEOUT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("FORGE_TOKEN", "")
	t.Setenv("BOT_TOKEN", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"file"}, cfg.GraphBackends)
	assert.Equal(t, defaultTimeoutSeconds, cfg.TimeoutSeconds)
	assert.Equal(t, defaultPRRetryWindow, cfg.PRRetryWindow)
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("GRAPH_BACKENDS", "file:database")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err, "expected error when database backend configured without DATABASE_URL")
}

func TestLoad_BotTokenAlias(t *testing.T) {
	t.Setenv("FORGE_TOKEN", "")
	t.Setenv("BOT_TOKEN", "legacy-token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "legacy-token", cfg.ForgeToken)
}

func TestLoad_ForgeTokenTakesPrecedence(t *testing.T) {
	t.Setenv("FORGE_TOKEN", "primary-token")
	t.Setenv("BOT_TOKEN", "legacy-token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "primary-token", cfg.ForgeToken)
}
