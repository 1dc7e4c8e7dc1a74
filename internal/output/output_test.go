package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/addrmatch/internal/rank"
	"github.com/Aman-CERP/addrmatch/internal/street"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriter_Matches_Text(t *testing.T) {
	// Given: a text writer on a buffer (not a terminal, so no color)
	buf := &bytes.Buffer{}
	w := New(buf, FormatText)

	// When: printing two matches
	err := w.Matches("qu des bergues 7", []rank.Match{
		{Text: "quai des bergues 7", Score: 0.976, Source: "/data/plzs/1201"},
		{Text: "quai du seujet 36", Score: 0.61},
	})

	// Then: rank, score, text and shard name appear in order
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"qu des bergues 7"`)
	assert.Equal(t, "  1. 0.976  quai des bergues 7  1201", lines[1])
	assert.Equal(t, "  2. 0.610  quai du seujet 36", lines[2])
}

func TestWriter_Matches_EmptyIsWarning(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, FormatText)

	require.NoError(t, w.Matches("zzz", nil))

	assert.Contains(t, buf.String(), `No match for "zzz"`)
}

func TestWriter_Matches_JSON(t *testing.T) {
	// Given: a JSON writer
	buf := &bytes.Buffer{}
	w := New(buf, FormatJSON)

	// When: printing no matches
	require.NoError(t, w.Matches("zzz", nil))

	// Then: matches is an empty array, never null
	var got struct {
		Query   string      `json:"query"`
		Matches []MatchJSON `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "zzz", got.Query)
	assert.NotNil(t, got.Matches)
	assert.Contains(t, buf.String(), `"matches": []`)
}

func TestWriter_Street(t *testing.T) {
	t.Run("text found", func(t *testing.T) {
		buf := &bytes.Buffer{}
		w := New(buf, FormatText)

		require.NoError(t, w.Street("aarstr. 76", street.MatchedStreet{Street: "aarstrasse 76", Score: 0.938, Source: "/d/plzs/3005"}))

		assert.Equal(t, "0.938  aarstrasse 76  (3005)\n", buf.String())
	})

	t.Run("json not found", func(t *testing.T) {
		buf := &bytes.Buffer{}
		w := New(buf, FormatJSON)

		require.NoError(t, w.Street("zzz 1", street.MatchedStreet{}))

		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, false, got["found"])
		assert.Equal(t, "zzz 1", got["query"])
		assert.NotContains(t, got, "street")
	})
}

func TestWriter_StatusMessages(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, FormatText)

	w.Successf("Wrote %d rows", 3)
	w.Warning("places.txt missing")
	w.Error("failed")
	w.Status("", "indented")

	out := buf.String()
	assert.Contains(t, out, "✓ Wrote 3 rows")
	assert.Contains(t, out, "! places.txt missing")
	assert.Contains(t, out, "✗ failed")
	assert.Contains(t, out, "   indented")
}

func TestWriter_Progress(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, FormatText)

	w.Progress(5, 10, "rows")
	assert.Contains(t, buf.String(), "50%")
	assert.NotContains(t, buf.String(), "\n")

	w.Progress(10, 10, "rows")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestRenderProgressBar(t *testing.T) {
	assert.Equal(t, strings.Repeat("░", 10), renderProgressBar(0, 10, 10))
	assert.Equal(t, strings.Repeat("█", 5)+strings.Repeat("░", 5), renderProgressBar(5, 10, 10))
	assert.Equal(t, strings.Repeat("█", 10), renderProgressBar(20, 10, 10))
}

func TestIsTTY_NonFile(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
}
