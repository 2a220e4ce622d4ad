package tlog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerIncludesMessageAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{out: &buf, minLevel: LevelDebug}
	l.Info("block accepted", "height", 3, "miner", "alice")

	out := buf.String()
	require.True(t, strings.Contains(out, "block accepted"))
	require.True(t, strings.Contains(out, "height=3"))
	require.True(t, strings.Contains(out, "miner=alice"))
}

func TestMinLevelSuppressesLowerSeverity(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{out: &buf, minLevel: LevelWarn}
	l.Debug("should not appear")
	l.Info("also should not appear")
	require.Empty(t, buf.String())
}

func TestWithCarriesContext(t *testing.T) {
	var buf bytes.Buffer
	base := &Logger{out: &buf, minLevel: LevelDebug}
	child := base.With("participant", "alice")
	child.Info("started")
	require.True(t, strings.Contains(buf.String(), "participant=alice"))
}
