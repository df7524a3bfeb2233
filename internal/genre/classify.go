package genre

import (
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds a raw tag into table-key form: compatibility-normalized,
// lowercased, trimmed, with internal whitespace collapsed.
func Normalize(tag string) string {
	tag = norm.NFKC.String(tag)
	return strings.Join(strings.Fields(strings.ToLower(tag)), " ")
}

// Classification is the result of classifying a tag list. Both slices are
// sorted and free of duplicates.
type Classification struct {
	Categories []Category `json:"categories"`
	Subgenres  []Subgenre `json:"subgenres"`
}

// Empty reports whether no category was found.
func (c Classification) Empty() bool { return len(c.Categories) == 0 }

// Classifier maps raw tags to categories using an exact-match table with a
// substring fallback. It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	table map[string]Mapping
	keys  []string
}

// NewClassifier returns a classifier over DefaultTable.
func NewClassifier() *Classifier {
	return NewClassifierWithTable(DefaultTable)
}

// NewClassifierWithTable returns a classifier over a custom table. Keys are
// normalized; mappings for keys that collide after normalization are merged.
func NewClassifierWithTable(table map[string]Mapping) *Classifier {
	c := &Classifier{table: make(map[string]Mapping, len(table))}
	for k, m := range table {
		key := Normalize(k)
		if key == "" {
			continue
		}
		prev := c.table[key]
		c.table[key] = Mapping{
			Categories: append(slices.Clone(prev.Categories), m.Categories...),
			Subgenres:  append(slices.Clone(prev.Subgenres), m.Subgenres...),
		}
	}
	for k := range c.table {
		c.keys = append(c.keys, k)
	}
	slices.Sort(c.keys)
	return c
}

// Lookup returns the exact-match mapping for a tag.
func (c *Classifier) Lookup(tag string) (Mapping, bool) {
	m, ok := c.table[Normalize(tag)]
	return m, ok
}

// Keys returns the sorted table keys.
func (c *Classifier) Keys() []string { return slices.Clone(c.keys) }

// Classify maps raw tags to categories and subgenres. Each tag is tried
// against the exact table first; a tag with no exact entry is matched by
// substring containment in either direction against every key, and all
// matches are unioned.
func (c *Classifier) Classify(tags []string) Classification {
	catSet := make(map[Category]struct{})
	subSet := make(map[Subgenre]struct{})
	add := func(m Mapping) {
		for _, cat := range m.Categories {
			catSet[cat] = struct{}{}
		}
		for _, s := range m.Subgenres {
			subSet[s] = struct{}{}
		}
	}

	for _, raw := range tags {
		tag := Normalize(raw)
		if tag == "" {
			continue
		}
		if m, ok := c.table[tag]; ok {
			add(m)
			continue
		}
		for _, key := range c.keys {
			if strings.Contains(tag, key) || strings.Contains(key, tag) {
				add(c.table[key])
			}
		}
	}

	out := Classification{
		Categories: make([]Category, 0, len(catSet)),
		Subgenres:  make([]Subgenre, 0, len(subSet)),
	}
	for cat := range catSet {
		out.Categories = append(out.Categories, cat)
	}
	for s := range subSet {
		out.Subgenres = append(out.Subgenres, s)
	}
	slices.Sort(out.Categories)
	slices.Sort(out.Subgenres)
	return out
}

// Diff returns the categories in a that are absent from b, sorted.
func Diff(a, b []Category) []Category {
	var out []Category
	for _, c := range a {
		if !slices.Contains(b, c) && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out
}
