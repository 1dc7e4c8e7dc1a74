package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/addrmatch/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFiles_Load(t *testing.T) {
	// Given: a shard file with blank lines and CRLF endings
	path := filepath.Join(t.TempDir(), "1201.txt")
	writeFile(t, path, "quai du seujet 36\r\n\r\nrue du seujet 12\n   \nroute de rière-ville 10")

	// When: loading it
	lines, err := Files{}.Load(context.Background(), path)

	// Then: only the candidates remain, in file order
	require.NoError(t, err)
	assert.Equal(t, []string{"quai du seujet 36", "rue du seujet 12", "route de rière-ville 10"}, lines)
}

func TestFiles_Load_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	writeFile(t, path, "")

	lines, err := Files{}.Load(context.Background(), path)

	require.NoError(t, err)
	require.NotNil(t, lines)
	assert.Empty(t, lines)
}

func TestFiles_Load_Missing(t *testing.T) {
	_, err := Files{}.Load(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))

	require.Error(t, err)
	assert.True(t, amerrors.IsSourceError(err))
	assert.Equal(t, amerrors.ErrCodeSourceNotFound, amerrors.GetCode(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFiles_Load_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Files{}.Load(ctx, "irrelevant")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestFiles_List(t *testing.T) {
	// Given: shards, a hidden file and a subdirectory
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "x")
	writeFile(t, filepath.Join(dir, "a.txt"), "x")
	writeFile(t, filepath.Join(dir, ".hidden"), "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	// When: listing
	paths, err := Files{}.List(context.Background(), dir)

	// Then: only regular visible files, sorted
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")}, paths)
}

func TestFiles_List_MissingDir(t *testing.T) {
	_, err := Files{}.List(context.Background(), filepath.Join(t.TempDir(), "missing"))

	require.Error(t, err)
	assert.True(t, amerrors.IsSourceError(err))
}

func TestShardName(t *testing.T) {
	assert.Equal(t, "1201", ShardName("/data/streets/1201.txt"))
	assert.Equal(t, "Villars-sur-Glâne", ShardName("Villars-sur-Glâne"))
}
