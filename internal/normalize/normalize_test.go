package normalize

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Pipeline(t *testing.T) {
	n := Default()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "Quai du Seujet 36", "quai du seujet 36"},
		{"street type abbreviation", "qu du seujet 36", "quai du seujet 36"},
		{"route abbreviation with dot", "rt. de la claie 21", "route de la claie 21"},
		{"chemin abbreviation", "ch de saint-cierges 3", "chemin de saint cierges 3"},
		{"impasse and apostrophe", "imp de pra d'amont 2", "impasse de pra damont 2"},
		{"accent folding", "Route de Villars-sur-Glâne 2", "route de villars sur glane 2"},
		{"numeric noise", "rt de riere-ville 10.afsdfsf", "route de riere ville 10"},
		{"glued noise", "rt de riere-ville 10afsdfsf", "route de riere ville 10"},
		{"house number letter kept", "chemin de la planche-aux-oies 9a", "chemin de la planche aux oies 9a"},
		{"house number range", "Bernstrasse 4a-5-6", "bernstrasse 4a"},
		{"house number list", "Günzenenstrasse 5,5a–c", "gunzenenstrasse 5"},
		{"spaced house number list", "Bernstrasse 4a, 5, 6", "bernstrasse 4a"},
		{"saint prefix", "Route de St-Légier 15a–d", "route de saint legier 15a"},
		{"suffix expansion", "aarstr. 76", "aarstrasse 76"},
		{"leading number moved", "76 chemin des clos", "chemin des clos 76"},
		{"leading letter number moved", "a4 Résidence du Golf", "residence du golf a4"},
		{"whitespace collapse", "   route   de  la   gare  ", "route de la gare"},
		{"punctuation collapse", "Rue (du) Clos / 1", "rue du clos 1"},
		{"abbreviation inside word ignored", "chapelle 3", "chapelle 3"},
		{"empty", "", ""},
		{"only punctuation", " -- , ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.Normalize(tt.input))
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	n := Default()
	input := "Rt de Rière-Ville 10.afsdfsf"
	assert.Equal(t, n.Normalize(input), n.Normalize(input))
}

func TestForm_SurfaceSkipsExpansion(t *testing.T) {
	n := Default()

	f := n.Form("qu du seujet 36")

	assert.Equal(t, "quai du seujet 36", f.Canonical)
	assert.Equal(t, "qu du seujet 36", f.Surface)
}

func TestForm_AccentedTextMatchesItself(t *testing.T) {
	n := Default()
	assert.Equal(t, n.Form("route de rière-ville 10"), n.Form("route de rière-ville 10"))
	assert.Equal(t, n.Normalize("route de riere-ville 10"), n.Normalize("route de rière-ville 10"))
}

func TestWithLeadingNumberReorder_Disabled(t *testing.T) {
	n := New(DefaultTable(), WithLeadingNumberReorder(false))
	assert.Equal(t, "76 chemin des clos", n.Normalize("76 chemin des clos"))
}

func TestNew_CustomTable(t *testing.T) {
	// Given: a table with a single German abbreviation
	n := New(Table{
		Words:    map[string]string{"Gr": "Grosse"},
		Suffixes: map[string]string{"wg": "weg"},
	})

	// Then: only that table is used
	assert.Equal(t, "grosse allee 1", n.Normalize("gr allee 1"))
	assert.Equal(t, "bergweg 2", n.Normalize("bergwg 2"))
	assert.Equal(t, "qu du seujet 36", n.Normalize("qu du seujet 36"))
}

func TestNew_CopiesTable(t *testing.T) {
	table := Table{Words: map[string]string{"rt": "route"}}
	n := New(table)

	table.Words["rt"] = "rue"

	assert.Equal(t, "route 1", n.Normalize("rt 1"))
}

func TestTable_Merge(t *testing.T) {
	base := DefaultTable()
	merged := base.Merge(Table{Words: map[string]string{"gr": "grand", "rt": "rout"}})

	assert.Equal(t, "grand", merged.Words["gr"])
	assert.Equal(t, "rout", merged.Words["rt"])
	assert.Equal(t, "route", base.Words["rt"], "merge must not mutate the receiver")
	assert.Equal(t, "strasse", merged.Suffixes["str"])
}

func TestParseTable_Invalid(t *testing.T) {
	_, err := ParseTable([]byte("words: [not, a, map"))
	require.Error(t, err)
}

func TestDefaultTable_HasStreetTypes(t *testing.T) {
	table := DefaultTable()
	for abbr, full := range map[string]string{"qu": "quai", "rt": "route", "ch": "chemin", "imp": "impasse"} {
		assert.Equal(t, full, table.Words[abbr], abbr)
	}
}

func TestHouseNumber(t *testing.T) {
	tests := map[string]string{
		"10":         "10",
		"9a":         "9a",
		"10.afsdfsf": "10",
		"10afsdfsf":  "10",
		"4a-5-6":     "4a",
		"21/23":      "21",
		"2,10a":      "2",
		"15a–d":      "15a",
	}
	for in, want := range tests {
		assert.Equal(t, want, houseNumber(in), in)
	}
}

func TestNormalizer_ConcurrentUse(t *testing.T) {
	n := Default()
	want := n.Normalize("Rt de Villars-sur-Glâne 2")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.Equal(t, want, n.Normalize("Rt de Villars-sur-Glâne 2"))
			}
		}()
	}
	wg.Wait()
}
