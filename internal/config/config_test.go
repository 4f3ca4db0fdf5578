package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"LIVEBOARD_SERVER_URL", "LIVEBOARD_LISTEN_ADDR", "LIVEBOARD_ROOM", "LIVEBOARD_USER_NAME",
	"LIVEBOARD_USER_COLOR", "LIVEBOARD_RECONNECT_ATTEMPTS", "LIVEBOARD_RECONNECT_DELAY",
	"LIVEBOARD_HANDSHAKE_TIMEOUT", "LIVEBOARD_HISTORY_DEPTH", "LIVEBOARD_MDNS", "LIVEBOARD_LOG_LEVEL",
	"LIVEBOARD_ROOM_GRACE",
}

// clearEnv runs the test from an empty directory so no stray .env is read.
func clearEnv(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	// Set-but-empty server URL means discovery; the test env sets it to "".
	assert.Equal(t, "", cfg.ServerURL)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultRoom, cfg.Room)
	assert.Equal(t, 5, cfg.ReconnectAttempts)
	assert.Equal(t, time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 5*time.Second, cfg.HandshakeTimeout)
	assert.Equal(t, 100, cfg.HistoryDepth)
	assert.Equal(t, 30*time.Second, cfg.RoomGrace)
	assert.True(t, cfg.MDNS)
	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIVEBOARD_SERVER_URL", "ws://relay:9000/ws")
	t.Setenv("LIVEBOARD_ROOM", "design")
	t.Setenv("LIVEBOARD_RECONNECT_ATTEMPTS", "2")
	t.Setenv("LIVEBOARD_RECONNECT_DELAY", "250ms")
	t.Setenv("LIVEBOARD_MDNS", "false")
	t.Setenv("LIVEBOARD_ROOM_GRACE", "2m")
	t.Setenv("LIVEBOARD_HISTORY_DEPTH", "not-a-number")
	t.Setenv("LIVEBOARD_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ws://relay:9000/ws", cfg.ServerURL)
	assert.Equal(t, "design", cfg.Room)
	assert.Equal(t, 2, cfg.ReconnectAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.ReconnectDelay)
	assert.False(t, cfg.MDNS)
	assert.Equal(t, 2*time.Minute, cfg.RoomGrace)
	assert.Equal(t, DefaultHistoryDepth, cfg.HistoryDepth, "malformed values fall back")
	lvl, _ := cfg.Level()
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestInvalidConfiguration(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIVEBOARD_RECONNECT_ATTEMPTS", "-1")
	_, err := Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("LIVEBOARD_ROOM_GRACE", "-1s")
	_, err = Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("LIVEBOARD_LOG_LEVEL", "chatty")
	_, err = Load()
	assert.Error(t, err)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIVEBOARD_ROOM", "from-env")
	cfg, err := Load()
	require.NoError(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--room", "from-flag", "-s", "ws://other/ws", "--reconnect-delay", "2s"}))

	assert.Equal(t, "from-flag", cfg.Room)
	assert.Equal(t, "ws://other/ws", cfg.ServerURL)
	assert.Equal(t, 2*time.Second, cfg.ReconnectDelay)
	require.NoError(t, cfg.Validate())
}
