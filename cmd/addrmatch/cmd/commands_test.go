package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/addrmatch/internal/batch"
	"github.com/Aman-CERP/addrmatch/internal/config"
	amerrors "github.com/Aman-CERP/addrmatch/internal/errors"
)

// streetData lays out a small street data directory.
func streetData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeLines(t, filepath.Join(dir, "plzs", "3005"), "aarstrasse 76", "bernastrasse 10")
	writeLines(t, filepath.Join(dir, "plzs", "3011"), "aarbergergasse 5")
	writeLines(t, filepath.Join(dir, "places", "bercher"), "chemin de saint-cierges 3", "route de fey 1")
	writeLines(t, filepath.Join(dir, "places.txt"), "bercher")
	return dir
}

func TestStreetCmd_ByPostcode(t *testing.T) {
	data := streetData(t)

	out, err := execute(t, "street", "aarstr. 76", "--plz", "3005", "--data-dir", data)

	require.NoError(t, err)
	assert.Contains(t, out, "aarstrasse 76")
	assert.Contains(t, out, "(3005)")
}

func TestStreetCmd_ByPlace_JSON(t *testing.T) {
	data := streetData(t)

	out, err := execute(t, "street", "ch de st-cierges 3", "--place", "Bercher", "--data-dir", data, "--format", "json")

	require.NoError(t, err)
	var got struct {
		Street string `json:"street"`
		Source string `json:"source"`
		Found  bool   `json:"found"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Found)
	assert.Equal(t, "chemin de saint-cierges 3", got.Street)
	assert.Equal(t, filepath.Join(data, "places", "bercher"), got.Source)
}

func TestStreetCmd_DataDirFromProjectConfig(t *testing.T) {
	// Given: street data under the project and a relative data_dir
	project := t.TempDir()
	data := streetData(t)
	require.NoError(t, os.Rename(data, filepath.Join(project, "streets")))
	writeLines(t, filepath.Join(project, ".addrmatch.yaml"), "street:", "  data_dir: streets")

	// When: looking up a street without --data-dir
	out, err := execute(t, "-C", project, "street", "aarstr. 76", "--plz", "3005")

	// Then: data_dir resolves against the project
	require.NoError(t, err)
	assert.Contains(t, out, "aarstrasse 76")
}

func TestStreetCmd_MissingHouseNumber(t *testing.T) {
	_, err := execute(t, "street", "aarstrasse", "--plz", "3005", "--data-dir", streetData(t))

	require.Error(t, err)
	assert.Equal(t, amerrors.ErrCodeMissingHouseNumber, amerrors.GetCode(err))
}

func TestBatchCmd(t *testing.T) {
	// Given: one matchable row and one without a house number
	data := streetData(t)
	work := t.TempDir()
	in := filepath.Join(work, "in.tsv")
	outPath := filepath.Join(work, "out.tsv")
	writeLines(t, in, "1\tch de st-cierges 3\tbercher", "2\tchemin sans numero\tbercher")

	// When: running the batch
	out, err := execute(t, "batch", in, outPath, "--data-dir", data, "--format", "json")

	// Then: stats report one match and one skip, and the output has one row
	require.NoError(t, err)
	var stats batch.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, batch.Stats{Rows: 2, Matched: 1, Skipped: 1, Chunks: 1}, stats)

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "1\tch de st-cierges 3\tbercher\tchemin de saint-cierges 3\tbercher\n", string(written))
}

func TestBatchCmd_MissingInput(t *testing.T) {
	_, err := execute(t, "batch", filepath.Join(t.TempDir(), "none.tsv"), "out.tsv", "--data-dir", t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "open input")
}

func TestConfigInit_Project(t *testing.T) {
	project := t.TempDir()

	out, err := execute(t, "-C", project, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Created")
	assert.FileExists(t, filepath.Join(project, config.ProjectConfigName))

	// A second run keeps the file.
	out, err = execute(t, "-C", project, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestConfigInit_TemplateLoads(t *testing.T) {
	project := t.TempDir()
	_, err := execute(t, "-C", project, "config", "init")
	require.NoError(t, err)

	_, err = config.LoadFile(filepath.Join(project, config.ProjectConfigName))

	require.NoError(t, err)
}

func TestConfigInit_UserForceBacksUp(t *testing.T) {
	// Given: an existing user config
	xdg := t.TempDir()
	userPath := filepath.Join(xdg, "addrmatch", "config.yaml")
	writeLines(t, userPath, "match:", "  keep: 7")

	cmd := NewRootCmd()
	buf := new(strings.Builder)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	t.Setenv("XDG_CONFIG_HOME", xdg)
	cmd.SetArgs([]string{"config", "init", "--user", "--force"})

	// When: forcing a fresh user config
	require.NoError(t, cmd.Execute())

	// Then: the old content survives in a backup
	backups, err := config.ListUserConfigBackups()
	require.NoError(t, err)
	require.Len(t, backups, 1)
	data, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "keep: 7")
	assert.Contains(t, buf.String(), "Backup: ")
}

func TestConfigShow(t *testing.T) {
	project := t.TempDir()
	writeLines(t, filepath.Join(project, ".addrmatch.yaml"), "match:", "  keep: 3")

	t.Run("merged yaml", func(t *testing.T) {
		out, err := execute(t, "-C", project, "config", "show")

		require.NoError(t, err)
		assert.Contains(t, out, "keep: 3")
	})

	t.Run("project json", func(t *testing.T) {
		out, err := execute(t, "-C", project, "config", "show", "--source", "project", "--format", "json")

		require.NoError(t, err)
		var cfg config.Config
		require.NoError(t, json.Unmarshal([]byte(out), &cfg))
		assert.Equal(t, 3, cfg.Match.Keep)
	})

	t.Run("no user config", func(t *testing.T) {
		out, err := execute(t, "config", "show", "--source", "user")

		require.NoError(t, err)
		assert.Contains(t, out, "No user configuration")
	})

	t.Run("invalid source", func(t *testing.T) {
		_, err := execute(t, "config", "show", "--source", "remote")

		require.Error(t, err)
	})
}

func TestConfigRestore_NoBackups(t *testing.T) {
	_, err := execute(t, "config", "restore")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no backups found")
}

func TestLogsCmd_TailFiltersLevel(t *testing.T) {
	// Given: a log file with info and warn entries
	logFile := filepath.Join(t.TempDir(), "addrmatch.log")
	writeLines(t, logFile,
		`{"time":"2026-01-02T10:00:00Z","level":"INFO","msg":"shard_search_started","shards":3}`,
		`{"time":"2026-01-02T10:00:01Z","level":"WARN","msg":"shard_failed","shard":"1201"}`)

	// When: showing warnings only
	out, err := execute(t, "logs", "--file", logFile, "--level", "warn")

	// Then: the info entry is filtered out
	require.NoError(t, err)
	assert.Contains(t, out, "shard_failed")
	assert.NotContains(t, out, "shard_search_started")
}

func TestLogsCmd_InvalidFilter(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "addrmatch.log")
	writeLines(t, logFile, `{"level":"INFO","msg":"x"}`)

	_, err := execute(t, "logs", "--file", logFile, "--filter", "([")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestLogsCmd_MissingFile(t *testing.T) {
	_, err := execute(t, "logs", "--file", filepath.Join(t.TempDir(), "none.log"))

	require.Error(t, err)
}

func TestMCPLoggingConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Logging.Level = "debug"
	cfg.Logging.File = "/tmp/addrmatch-test.log"
	cfg.Logging.MaxFiles = 2

	got := mcpLoggingConfig(cfg)

	assert.Equal(t, "debug", got.Level)
	assert.Equal(t, "/tmp/addrmatch-test.log", got.FilePath)
	assert.Equal(t, 2, got.MaxFiles)
	assert.Equal(t, cfg.Logging.MaxSizeMB, got.MaxSizeMB)
}
