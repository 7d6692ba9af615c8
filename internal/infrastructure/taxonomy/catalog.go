// Package taxonomy maps estimate line labels onto rubro codes.
package taxonomy

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/finanzas/backend/internal/domain/baseline"
	"github.com/finanzas/backend/internal/domain/rubro"
	"github.com/spf13/viper"
)

// Entry is one catalog row
type Entry struct {
	Code     string            `mapstructure:"code"`
	Kind     baseline.LineKind `mapstructure:"kind"`
	Category string            `mapstructure:"category"`
	Aliases  []string          `mapstructure:"aliases"`
}

type alias struct {
	phrase string
	code   string
}

// Catalog is a read-only lookup table, safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Entry
	// per kind, aliases sorted longest first so the most specific wins
	aliases map[baseline.LineKind][]alias
}

var _ rubro.Taxonomy = (*Catalog)(nil)

// NewCatalog builds a catalog from entries
func NewCatalog(entries []Entry) (*Catalog, error) {
	c := &Catalog{}
	if err := c.load(entries); err != nil {
		return nil, err
	}
	return c, nil
}

// Default returns the built-in catalog
func Default() *Catalog {
	c, err := NewCatalog(defaultEntries)
	if err != nil {
		panic(fmt.Sprintf("taxonomy: invalid built-in catalog: %v", err))
	}
	return c
}

func (c *Catalog) load(entries []Entry) error {
	byCode := make(map[string]Entry, len(entries))
	byKind := make(map[baseline.LineKind][]alias)
	seen := make(map[baseline.LineKind]map[string]string)

	for i, e := range entries {
		e.Code = strings.ToUpper(strings.TrimSpace(e.Code))
		if e.Code == "" {
			return fmt.Errorf("entry %d: code is required", i)
		}
		if e.Code == rubro.Unmapped {
			return fmt.Errorf("entry %d: %s is reserved", i, rubro.Unmapped)
		}
		if e.Kind != baseline.KindLabor && e.Kind != baseline.KindNonLabor {
			return fmt.Errorf("entry %s: unknown kind %q", e.Code, e.Kind)
		}
		if _, dup := byCode[e.Code]; dup {
			return fmt.Errorf("entry %s: duplicate code", e.Code)
		}
		byCode[e.Code] = e

		if seen[e.Kind] == nil {
			seen[e.Kind] = make(map[string]string)
		}
		for _, a := range append([]string{e.Category}, e.Aliases...) {
			phrase := rubro.NormalizeLabel(a)
			if phrase == "" {
				continue
			}
			if owner, taken := seen[e.Kind][phrase]; taken && owner != e.Code {
				return fmt.Errorf("alias %q claimed by both %s and %s", a, owner, e.Code)
			}
			if _, taken := seen[e.Kind][phrase]; taken {
				continue
			}
			seen[e.Kind][phrase] = e.Code
			byKind[e.Kind] = append(byKind[e.Kind], alias{phrase: phrase, code: e.Code})
		}
	}
	for k := range byKind {
		list := byKind[k]
		sort.SliceStable(list, func(i, j int) bool {
			if len(list[i].phrase) != len(list[j].phrase) {
				return len(list[i].phrase) > len(list[j].phrase)
			}
			return list[i].phrase < list[j].phrase
		})
	}

	c.mu.Lock()
	c.entries = byCode
	c.aliases = byKind
	c.mu.Unlock()
	return nil
}

// Lookup resolves a line to a rubro code. An exact alias match on the label
// wins; otherwise the longest alias contained in label or detail as a
// whole-word phrase is used.
func (c *Catalog) Lookup(kind baseline.LineKind, label, detail string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	candidates := c.aliases[kind]
	norm := rubro.NormalizeLabel(label)
	for _, a := range candidates {
		if a.phrase == norm {
			return a.code, true
		}
	}
	for _, text := range []string{norm, rubro.NormalizeLabel(detail)} {
		if text == "" {
			continue
		}
		padded := " " + text + " "
		for _, a := range candidates {
			if strings.Contains(padded, " "+a.phrase+" ") {
				return a.code, true
			}
		}
	}
	return "", false
}

// Entry returns the catalog row for code
func (c *Catalog) Entry(code string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[strings.ToUpper(code)]
	return e, ok
}

// Len returns the number of codes in the catalog
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

type catalogFile struct {
	// Replace drops the built-in entries instead of merging into them
	Replace bool    `mapstructure:"replace"`
	Entries []Entry `mapstructure:"entries"`
}

// Load returns the built-in catalog, merged with or replaced by the entries
// of the YAML, JSON or TOML file at path. An empty path yields Default().
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read taxonomy catalog %s: %w", path, err)
	}
	var file catalogFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("decode taxonomy catalog %s: %w", path, err)
	}

	if file.Replace {
		return NewCatalog(file.Entries)
	}
	merged := make([]Entry, 0, len(defaultEntries)+len(file.Entries))
	override := make(map[string]bool, len(file.Entries))
	for _, e := range file.Entries {
		override[strings.ToUpper(strings.TrimSpace(e.Code))] = true
	}
	for _, e := range defaultEntries {
		if !override[e.Code] {
			merged = append(merged, e)
		}
	}
	merged = append(merged, file.Entries...)
	return NewCatalog(merged)
}
