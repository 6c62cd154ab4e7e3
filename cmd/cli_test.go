package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	boltsink "github.com/bnema/datagen/internal/adapters/sink/bolt"
	"github.com/bnema/datagen/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunQuickstartPrintsMessagesAndSummary(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home,
		"run", "--quickstart", "clickstream",
		"--iterations", "3", "--max-interval", "0", "--seed", "1",
	)
	require.NoError(t, err)

	assert.Equal(t, 3, strings.Count(stdout, " --> "))
	assert.Contains(t, stdout, "Run Summary")
	assert.Contains(t, stdout, "3/3 delivered")
	assert.Contains(t, stdout, "clickstream -> console")
}

func TestRunDelimitedFormat(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home,
		"run", "--quickstart", "pageviews", "--format", "delimited",
		"--iterations", "2", "--max-interval", "0", "--no-record",
	)
	require.NoError(t, err)

	lines := strings.Split(stdout, "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	for _, line := range lines[:2] {
		_, value, ok := strings.Cut(line, " --> ")
		require.True(t, ok, line)
		assert.False(t, strings.HasPrefix(value, "{"), value)
		assert.Contains(t, value, ",")
	}
}

func TestRunRequiresSchemaOrQuickstart(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "run", "--iterations", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")

	_, _, err = executeCLI(t, home, "run", "--quickstart", "clickstream", "--schema", "x.avro")
	require.Error(t, err)
}

func TestRunRejectsUnknownSinkFormatAndQuickstart(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "run", "--quickstart", "clickstream", "--sink", "carrier-pigeon")
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), `unknown sink "carrier-pigeon"`)

	_, _, err = executeCLI(t, home, "run", "--quickstart", "clickstream", "--format", "xml")
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), `unknown format "xml"`)

	_, _, err = executeCLI(t, home, "run", "--quickstart", "nope")
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestRunSchemaFileRequiresKeyAndTopic(t *testing.T) {
	home := t.TempDir()
	schemaPath := filepath.Join(home, "tiny.avro")
	require.NoError(t, os.WriteFile(schemaPath, []byte(`{
  "type": "record",
  "name": "tiny",
  "fields": [
    {"name": "id", "type": {"type": "string", "arg.properties": {"options": ["x", "y"]}}}
  ]
}`), 0o600))

	_, _, err := executeCLI(t, home, "run", "--schema", schemaPath, "--topic", "tiny")
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "--key")

	_, _, err = executeCLI(t, home, "run", "--schema", schemaPath, "--key", "id")
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "--topic")

	stdout, _, err := executeCLI(t, home, "run", "--schema", schemaPath, "--key", "id", "--topic", "tiny",
		"--iterations", "2", "--max-interval", "0")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(stdout, " --> "))
}

func TestRunBoltSinkFromEnvironment(t *testing.T) {
	home := t.TempDir()
	dbPath := filepath.Join(home, "out.db")
	t.Setenv("DATAGEN_BOLT_PATH", dbPath)

	_, stderr, err := executeCLI(t, home,
		"run", "--quickstart", "orders", "--sink", "bolt",
		"--iterations", "4", "--max-interval", "0", "--seed", "7",
	)
	require.NoError(t, err, stderr)

	sink, err := boltsink.Open(dbPath)
	require.NoError(t, err)
	defer sink.Close()

	entries, err := sink.Entries("orders")
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for _, entry := range entries {
		assert.True(t, json.Valid(entry.Value), string(entry.Value))
		assert.NotEmpty(t, entry.Key)
	}
}

func TestRunIsRecordedInHistory(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "run", "--quickstart", "users", "--iterations", "2", "--max-interval", "0")
	require.NoError(t, err)
	_, _, err = executeCLI(t, home, "run", "--quickstart", "users", "--iterations", "1", "--max-interval", "0", "--no-record")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Run History")
	assert.Contains(t, stdout, "runs: 1")
	assert.Contains(t, stdout, "2/2 delivered")

	stdout, _, err = executeCLI(t, home, "history", "--json")
	require.NoError(t, err)

	var runs []domain.RunSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "users", runs[0].Topic)
	assert.Equal(t, "console", runs[0].Sink)
	assert.Equal(t, "json", runs[0].Format)

	stdout, _, err = executeCLI(t, home, "history", string(runs[0].ID))
	require.NoError(t, err)
	assert.Contains(t, stdout, string(runs[0].ID))

	_, _, err = executeCLI(t, home, "history", "missing-run")
	require.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestHistoryEmpty(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No runs recorded.")
}

func TestSchemasListsAndShowsPresets(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "schemas")
	require.NoError(t, err)
	for _, name := range []string{"clickstream", "orders", "pageviews", "users"} {
		assert.Contains(t, stdout, name)
	}
	assert.Contains(t, stdout, "key=ip")

	stdout, _, err = executeCLI(t, home, "schemas", "show", "clickstream")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, "session-sibling-int-hash")

	_, _, err = executeCLI(t, home, "schemas", "show", "nope")
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestConfigFileSelectsDefaults(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".datagen"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".datagen", "config.toml"), []byte(strings.Join([]string{
		`format = "delimited"`,
		``,
		`[delimited]`,
		`separator = "|"`,
		``,
	}, "\n")), 0o600))

	stdout, _, err := executeCLI(t, home, "run", "--quickstart", "pageviews", "--iterations", "1", "--max-interval", "0", "--no-record")
	require.NoError(t, err)

	line, _, _ := strings.Cut(stdout, "\n")
	_, value, ok := strings.Cut(line, " --> ")
	require.True(t, ok)
	assert.Contains(t, value, "|")
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
