package observability

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupLoggerLevels(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for level, want := range cases {
		SetupLogger(level, "json")
		require.True(t, slog.Default().Enabled(nil, want))
		if want != slog.LevelDebug {
			require.False(t, slog.Default().Enabled(nil, want-1))
		}
	}
}

func TestSetupLoggerDoesNotPanicOnEitherFormat(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	require.NotPanics(t, func() { SetupLogger("info", "text") })
	require.NotPanics(t, func() { SetupLogger("info", "json") })
}
