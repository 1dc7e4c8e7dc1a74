package source

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	amerrors "github.com/Aman-CERP/addrmatch/internal/errors"
)

// maxLineBytes bounds a single candidate line.
const maxLineBytes = 1 << 20

// Files reads one candidate per line from plain text files. Blank lines are
// skipped and a trailing carriage return is dropped.
type Files struct{}

var _ Store = Files{}

// Load reads the candidates of the file at path.
func (Files) Load(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, sourceErr(path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, amerrors.SourceError(amerrors.ErrCodeSourceUnreadable, path, err)
	}
	if lines == nil {
		lines = []string{}
	}
	return lines, nil
}

// List returns the regular, non-hidden files directly inside dir, sorted by
// name. Subdirectories are not descended into.
func (Files) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, sourceErr(dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// ShardName returns the display name of a shard path ("shards/1201.txt" -> "1201").
func ShardName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func sourceErr(id string, err error) error {
	code := amerrors.ErrCodeSourceUnreadable
	if os.IsNotExist(err) {
		code = amerrors.ErrCodeSourceNotFound
	}
	return amerrors.SourceError(code, id, err).
		WithSuggestion("Check that the path exists and is readable")
}
