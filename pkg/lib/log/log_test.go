package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"":        LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLazyLogger_FollowsDefault(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	l := Logger("core/test")

	var buf bytes.Buffer
	SetOutputWithLevel(&buf, LevelDebug)
	l.Debug("探测完成", "ip", "10.0.0.1")

	out := buf.String()
	assert.Contains(t, out, "component=core/test")
	assert.Contains(t, out, "ip=10.0.0.1")
}

func TestSetup_JSON(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	Setup(&buf, FormatJSON, LevelInfo)
	Logger("core/netstack").Info("网络栈已启动", "links", 2)
	Logger("core/netstack").Debug("suppressed")

	out := buf.String()
	assert.Contains(t, out, `"component":"core/netstack"`)
	assert.Contains(t, out, `"links":2`)
	assert.NotContains(t, out, "suppressed")

	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc", TruncateID("abc", 8))
	assert.Equal(t, "01234567", TruncateID("0123456789", 8))
}
