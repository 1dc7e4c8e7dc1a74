package normalize

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/addrmatch/configs"
)

// Table holds the abbreviation data used during expansion.
// Words replace whole tokens; Suffixes rewrite the end of longer tokens
// ("aarstr" -> "aarstrasse").
type Table struct {
	Words    map[string]string `yaml:"words"`
	Suffixes map[string]string `yaml:"suffixes"`
}

// ParseTable decodes a YAML abbreviation table.
func ParseTable(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("parse abbreviation table: %w", err)
	}
	return t, nil
}

// DefaultTable returns the built-in table shipped in configs/abbreviations.yaml.
func DefaultTable() Table {
	t, err := ParseTable(configs.Abbreviations)
	if err != nil {
		// The embedded file is part of the build.
		panic(err)
	}
	return t
}

// Merge returns a new table with other's entries layered over t.
func (t Table) Merge(other Table) Table {
	out := Table{
		Words:    make(map[string]string, len(t.Words)+len(other.Words)),
		Suffixes: make(map[string]string, len(t.Suffixes)+len(other.Suffixes)),
	}
	for k, v := range t.Words {
		out.Words[k] = v
	}
	for k, v := range other.Words {
		out.Words[k] = v
	}
	for k, v := range t.Suffixes {
		out.Suffixes[k] = v
	}
	for k, v := range other.Suffixes {
		out.Suffixes[k] = v
	}
	return out
}

// suffixRule is a compiled suffix entry.
type suffixRule struct {
	from string
	to   string
}

// compiledTable is the immutable form held by a Normalizer. Keys are folded
// the same way as input text so "Qu" and "qu" hit the same entry.
type compiledTable struct {
	words    map[string]string
	suffixes []suffixRule
}

func compile(t Table) compiledTable {
	ct := compiledTable{words: make(map[string]string, len(t.Words))}
	for k, v := range t.Words {
		ct.words[foldText(k)] = foldText(v)
	}
	for k, v := range t.Suffixes {
		ct.suffixes = append(ct.suffixes, suffixRule{from: foldText(k), to: foldText(v)})
	}
	// Longest suffix first, then lexicographic, so expansion is deterministic.
	sort.Slice(ct.suffixes, func(i, j int) bool {
		if len(ct.suffixes[i].from) != len(ct.suffixes[j].from) {
			return len(ct.suffixes[i].from) > len(ct.suffixes[j].from)
		}
		return ct.suffixes[i].from < ct.suffixes[j].from
	})
	return ct
}

// expand rewrites a single token. It never fires inside a longer word except
// through an explicit suffix rule.
func (ct compiledTable) expand(token string) string {
	if full, ok := ct.words[token]; ok {
		return full
	}
	for _, rule := range ct.suffixes {
		if rule.from == "" || len(token) <= len(rule.from) {
			continue
		}
		if token[len(token)-len(rule.from):] == rule.from {
			return token[:len(token)-len(rule.from)] + rule.to
		}
	}
	return token
}
