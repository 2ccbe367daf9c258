package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdev1/tours-bulk-editor/internal/store"
)

// seedDB creates an item database with the given IDs and returns its path.
func seedDB(t *testing.T, itemIDs ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "items.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	defer s.Close()
	for _, id := range itemIDs {
		require.NoError(t, s.UpsertItem(context.Background(), id, ""))
	}
	return path
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRunCommand_EndToEnd(t *testing.T) {
	dbPath := seedDB(t, "tour-1", "tour-2", "tour-3")
	changePath := writeTempFile(t, "change.yaml", "weekdays: [mon]\n")
	itemsPath := writeTempFile(t, "items.txt", "tour-1\ntour-2\ntour-3\n")

	out, err := executeCommand(t,
		"--db", dbPath, "--redis", "memory", "--format", "json",
		"run", "--items", itemsPath, "--change", changePath, "--user", "alice")
	require.NoError(t, err, "output: %s", out)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	payload, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, payload["is_complete"])
	assert.Equal(t, float64(3), payload["success_count"])
}

func TestRunCommand_MissingItemsBecomeFailures(t *testing.T) {
	dbPath := seedDB(t, "tour-1")
	changePath := writeTempFile(t, "change.yaml", "weekdays: [mon]\n")

	out, err := executeCommand(t,
		"--db", dbPath, "--redis", "memory",
		"run", "--id", "tour-1", "--id", "tour-gone", "--change", changePath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAILED tour-gone")
}

func TestRunCommand_RejectsInvalidChangeSet(t *testing.T) {
	dbPath := seedDB(t, "tour-1")
	// reset combined with other fields violates reset exclusivity.
	changePath := writeTempFile(t, "change.yaml", "reset: true\nweekdays: [mon]\n")

	out, err := executeCommand(t,
		"--db", dbPath, "--redis", "memory",
		"run", "--id", "tour-1", "--change", changePath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeValidation)
}

func TestResumeCommand_UnknownOperation(t *testing.T) {
	dbPath := seedDB(t)

	out, err := executeCommand(t,
		"--db", dbPath, "--redis", "memory",
		"resume", "op-never-existed")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeCannotResume)
}

func TestValidateCommand(t *testing.T) {
	good := writeTempFile(t, "good.yaml", "weekdays: [sat, sun]\n")
	out, err := executeCommand(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "valid change set")

	empty := writeTempFile(t, "empty.yaml", "weekdays: []\n")
	out, err = executeCommand(t, "validate", empty)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeEmptyChangeSet)
}

func TestPreviewCommand_WritesNothing(t *testing.T) {
	dbPath := seedDB(t, "tour-1")
	changePath := writeTempFile(t, "change.yaml", "weekdays: [mon]\n")

	out, err := executeCommand(t,
		"--db", dbPath, "--redis", "memory",
		"preview", "--id", "tour-1", "--change", changePath)
	require.NoError(t, err, "output: %s", out)
	assert.Contains(t, out, "tour-1")

	// The stored record is untouched.
	s, err := store.Open(dbPath)
	require.NoError(t, err)
	defer s.Close()
	record, err := s.GetAvailability(context.Background(), "tour-1")
	require.NoError(t, err)
	assert.True(t, record.IsZero())
}

func TestItemsAddAndList(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "items.db")

	out, err := executeCommand(t, "--db", dbPath, "items", "add", "tour-1", "tour-2")
	require.NoError(t, err, "output: %s", out)

	out, err = executeCommand(t, "--db", dbPath, "items", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "tour-1")
	assert.Contains(t, out, "tour-2")
}
