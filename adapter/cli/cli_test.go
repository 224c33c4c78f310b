package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	internalApp "github.com/snapyr/snapyr-bridge/internal/app"
	"github.com/snapyr/snapyr-bridge/internal/shared/infrastructure/journal"
	"github.com/snapyr/snapyr-bridge/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCLIApp(t *testing.T) *internalApp.Container {
	t.Helper()
	cfg := &config.Config{
		AppEnv:               "test",
		Simulator:            true,
		EventBuffer:          8,
		CommandQueue:         16,
		EventSink:            config.EventSinkInProcess,
		EventTopic:           "snapyr.events",
		JournalDriver:        config.JournalDriverSQLite,
		SQLitePath:           filepath.Join(t.TempDir(), "journal.db"),
		JournalRetentionDays: 14,
	}
	quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	SetLogger(quiet)

	container, err := internalApp.NewContainer(context.Background(), cfg, quiet)
	require.NoError(t, err)
	SetApp(NewApp(container))
	t.Cleanup(func() {
		SetApp(nil)
		container.Close()
	})
	return container
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := Root()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version", "--json=false")
	require.NoError(t, err)
	assert.Contains(t, out, "snapyr-bridge dev (SnapyrRnSdk)")

	out, err = runCLI(t, "version", "--json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "SnapyrRnSdk", info["module"])
	assert.Equal(t, Version, info["version"])
}

func TestCommandsRequireApp(t *testing.T) {
	SetApp(nil)
	for _, args := range [][]string{
		{"journal", "list"},
		{"journal", "prune"},
		{"health"},
	} {
		_, err := runCLI(t, args...)
		assert.True(t, errors.Is(err, ErrAppNotInitialized), "args %v", args)
	}
}

func TestJournalCommands(t *testing.T) {
	container := setupCLIApp(t)
	ctx := context.Background()

	out, err := runCLI(t, "journal", "list", "--json=false")
	require.NoError(t, err)
	assert.Contains(t, out, "No commands recorded.")

	started := time.Now().Add(-time.Millisecond)
	require.NoError(t, container.Journal.Record(ctx, journal.NewEntry("1", "configure", started, nil, "")))
	require.NoError(t, container.Journal.Record(ctx, journal.NewEntry("2", "track", started.Add(time.Microsecond), errors.New("not configured"), "not_configured")))

	out, err = runCLI(t, "journal", "list", "--json=false", "-n", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "COMMAND")
	assert.Contains(t, out, "configure")
	assert.Contains(t, out, "not configured")

	out, err = runCLI(t, "journal", "list", "--json", "-n", "1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	var entry journal.Entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "track", entry.Command)
	assert.Equal(t, journal.StatusRejected, entry.Status)

	out, err = runCLI(t, "journal", "prune", "--days", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 entries older than 1 days.")
}

func TestHealthCommand(t *testing.T) {
	setupCLIApp(t)

	out, err := runCLI(t, "health", "--json=false")
	require.NoError(t, err)
	assert.Contains(t, out, "status: degraded")
	assert.Contains(t, out, "sdk not configured")

	out, err = runCLI(t, "health", "--json")
	require.NoError(t, err)
	var health map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &health))
	checks, ok := health["checks"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, checks, "journal")
	assert.Contains(t, checks, "sdk")
}
