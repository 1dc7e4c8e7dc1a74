package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupUserConfig_NoConfig_ReturnsEmpty(t *testing.T) {
	isolate(t)

	backupPath, err := BackupUserConfig()

	require.NoError(t, err)
	assert.Empty(t, backupPath)
}

func TestBackupUserConfig_CopiesContent(t *testing.T) {
	// Given: an existing user config
	xdg := isolate(t)
	content := "version: 1\nmatch:\n  keep: 9\n"
	writeFile(t, filepath.Join(xdg, "addrmatch", "config.yaml"), content)

	// When: backing it up
	backupPath, err := BackupUserConfig()

	// Then: the backup sits next to the config with the same bytes
	require.NoError(t, err)
	require.NotEmpty(t, backupPath)
	assert.Equal(t, filepath.Join(xdg, "addrmatch"), filepath.Dir(backupPath))
	data, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestListUserConfigBackups_NewestFirstAndPruned(t *testing.T) {
	// Given: more backups than MaxBackups with distinct modification times
	xdg := isolate(t)
	dir := filepath.Join(xdg, "addrmatch")
	writeFile(t, filepath.Join(dir, "config.yaml"), "version: 1\n")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < MaxBackups+2; i++ {
		path := filepath.Join(dir, "config.yaml"+BackupSuffix+"."+string(rune('a'+i)))
		writeFile(t, path, "old\n")
		mt := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(path, mt, mt))
	}

	// When: a new backup is written
	newest, err := BackupUserConfig()
	require.NoError(t, err)

	// Then: only MaxBackups remain and the new one is first
	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	require.Len(t, backups, MaxBackups)
	assert.Equal(t, newest, backups[0])
	assert.Equal(t, filepath.Join(dir, "config.yaml"+BackupSuffix+".e"), backups[1])
}

func TestListUserConfigBackups_NoDir_ReturnsNil(t *testing.T) {
	isolate(t)

	backups, err := ListUserConfigBackups()

	require.NoError(t, err)
	assert.Nil(t, backups)
}

func TestRestoreUserConfig(t *testing.T) {
	// Given: a current config and a saved backup
	xdg := isolate(t)
	configPath := filepath.Join(xdg, "addrmatch", "config.yaml")
	writeFile(t, configPath, "match:\n  keep: 1\n")
	backup := filepath.Join(t.TempDir(), "saved.yaml")
	writeFile(t, backup, "match:\n  keep: 2\n")

	// When: restoring
	require.NoError(t, RestoreUserConfig(backup))

	// Then: the config holds the backup and the old config was kept
	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, "match:\n  keep: 2\n", string(data))

	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestRestoreUserConfig_MissingBackup_ReturnsError(t *testing.T) {
	isolate(t)

	err := RestoreUserConfig(filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "backup file not found")
}
