package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/addrmatch/internal/errors"
	"github.com/Aman-CERP/addrmatch/pkg/version"
)

// execute runs the CLI with args in an isolated environment and returns
// stdout and stderr combined.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")
	for _, name := range []string{
		"ADDRMATCH_SENSITIVITY", "ADDRMATCH_KEEP", "ADDRMATCH_WORKERS",
		"ADDRMATCH_TOLERATE_SHARD_ERRORS", "ADDRMATCH_DATA_DIR", "ADDRMATCH_LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

type matchesJSON struct {
	Query   string `json:"query"`
	Matches []struct {
		Text   string  `json:"text"`
		Score  float64 `json:"score"`
		Source string  `json:"source"`
	} `json:"matches"`
}

func TestRootCmd_ShowsHelp(t *testing.T) {
	out, err := execute(t, "--help")

	require.NoError(t, err)
	assert.Contains(t, out, "addrmatch")
	for _, sub := range []string{"match", "dir", "import", "street", "batch", "serve", "config", "logs", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestRootCmd_UnknownFormat(t *testing.T) {
	_, err := execute(t, "match", "x 1", "-c", "x 1", "--format", "yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestMatchCmd_InlineCandidates_JSON(t *testing.T) {
	// Given: two candidates on the command line
	// When: matching an abbreviated query with keep 1
	out, err := execute(t, "match", "qu du seujet 36",
		"-c", "rue du seujet 12", "-c", "quai du seujet 36",
		"--keep", "1", "--format", "json")

	// Then: the JSON carries the single best match
	require.NoError(t, err)
	var got matchesJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "qu du seujet 36", got.Query)
	require.Len(t, got.Matches, 1)
	assert.Equal(t, "quai du seujet 36", got.Matches[0].Text)
}

func TestMatchCmd_File_Text(t *testing.T) {
	file := filepath.Join(t.TempDir(), "streets.txt")
	writeLines(t, file, "haggenstrasse 5", "hagenweg 12", "route de la claie-aux-moines 21")

	out, err := execute(t, "match", "hagenstr 5", "--file", file, "-s", "0.1")

	require.NoError(t, err)
	assert.Contains(t, out, `Matches for "hagenstr 5"`)
	assert.Contains(t, out, "  1. ")
	first := strings.Split(strings.TrimSpace(out), "\n")[1]
	assert.Contains(t, first, "haggenstrasse 5")
}

func TestMatchCmd_NoMatch(t *testing.T) {
	out, err := execute(t, "match", "zzzz 99", "-c", "quai du seujet 36", "-s", "0.99")

	require.NoError(t, err)
	assert.Contains(t, out, `No match for "zzzz 99"`)
}

func TestMatchCmd_RequiresCandidates(t *testing.T) {
	_, err := execute(t, "match", "qu du seujet 36")

	require.Error(t, err)
}

func TestMatchCmd_InvalidSensitivity(t *testing.T) {
	_, err := execute(t, "match", "x 1", "-c", "x 1", "--sensitivity", "1.5")

	require.Error(t, err)
	assert.Equal(t, amerrors.ErrCodeInvalidSensitivity, amerrors.GetCode(err))
}

func TestMatchCmd_ProjectConfigSetsKeep(t *testing.T) {
	// Given: a project config that keeps a single match
	project := t.TempDir()
	writeLines(t, filepath.Join(project, ".addrmatch.yaml"), "match:", "  keep: 1", "  sensitivity: 0")

	// When: matching without --keep
	out, err := execute(t, "-C", project, "match", "rue du seujet 12",
		"-c", "rue du seujet 12", "-c", "quai du seujet 36", "--format", "json")

	// Then: the configured keep applies
	require.NoError(t, err)
	var got matchesJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Matches, 1)
}

func TestDirCmd_Files(t *testing.T) {
	// Given: candidates spread over two shard files
	dir := t.TempDir()
	writeLines(t, filepath.Join(dir, "1201"), "rue du seujet 12", "quai du mont-blanc 5")
	writeLines(t, filepath.Join(dir, "1204"), "quai du seujet 36")

	// When: searching the directory
	out, err := execute(t, "dir", "qu du seujet 36", "--dir", dir, "--workers", "2", "--format", "json")

	// Then: the best match names its shard
	require.NoError(t, err)
	var got matchesJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotEmpty(t, got.Matches)
	assert.Equal(t, "quai du seujet 36", got.Matches[0].Text)
	assert.Equal(t, filepath.Join(dir, "1204"), got.Matches[0].Source)
}

func TestDirCmd_MissingDir(t *testing.T) {
	_, err := execute(t, "dir", "x 1", "--dir", filepath.Join(t.TempDir(), "missing"))

	require.Error(t, err)
	assert.True(t, amerrors.IsSourceError(err))
}

func TestImportThenDirDB(t *testing.T) {
	// Given: a directory imported into a database
	dir := t.TempDir()
	writeLines(t, filepath.Join(dir, "1201.txt"), "rue du seujet 12")
	writeLines(t, filepath.Join(dir, "1204.txt"), "quai du seujet 36", "quai du mont-blanc 5")
	db := filepath.Join(t.TempDir(), "streets.db")

	out, err := execute(t, "import", db, dir, "--format", "json")
	require.NoError(t, err)
	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, float64(2), stats["shards"])
	assert.Equal(t, float64(3), stats["candidates"])

	// When: searching the database
	out, err = execute(t, "dir", "qu du seujet 36", "--db", db, "--format", "json")

	// Then: shards are named after the files
	require.NoError(t, err)
	var got matchesJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotEmpty(t, got.Matches)
	assert.Equal(t, "quai du seujet 36", got.Matches[0].Text)
	assert.Equal(t, "1204", got.Matches[0].Source)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version.Short()+"\n", out)

	out, err = execute(t, "version", "--format", "json")
	require.NoError(t, err)
	var info version.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Short(), info.Version)
}

func TestProfileFlags_WriteFiles(t *testing.T) {
	// Given: profile output paths
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.pprof")
	heap := filepath.Join(dir, "heap.pprof")

	// When: running a match with profiling on
	_, err := execute(t, "match", "qu du seujet 36", "-c", "quai du seujet 36",
		"--profile-cpu", cpu, "--profile-mem", heap)

	// Then: both profiles are written
	require.NoError(t, err)
	assert.FileExists(t, cpu)
	assert.FileExists(t, heap)
}
