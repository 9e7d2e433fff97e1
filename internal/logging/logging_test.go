package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" info ":  zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := ParseLevel(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := ParseLevel("")
	assert.False(t, ok)
	_, ok = ParseLevel("loud")
	assert.False(t, ok)
}

func TestConfigure_EnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogNoColor, "true")

	cfg := DefaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	assert.Equal(t, zerolog.ErrorLevel, cfg.Level)
	assert.True(t, cfg.NoColor)
}

func TestConfigure_FlagWins(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	t.Setenv(EnvLogLevel, "error")

	var buf bytes.Buffer
	logger, err := Configure(ProfileRuntime, "debug", &buf)
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	logger.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")

	_, err = Configure(ProfileRuntime, "loud", nil)
	var invalid *InvalidLevelError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "loud", invalid.Value)
}

func TestInstall_RunID(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	cfg := DefaultConfig(ProfileTest)
	cfg.Out = &buf
	Install(cfg)

	log.Debug().Str("host", "web-1").Msg("connected")
	out := buf.String()
	assert.Contains(t, out, "connected")
	assert.Contains(t, out, "host=web-1")
	assert.Contains(t, out, "run_id=")
}
