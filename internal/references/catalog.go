// Package references holds the built-in catalog of reference faces used to
// seed a similarity index.
package references

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"github.com/kozaktomas/faceratio/internal/database"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed references.yaml
var catalogYAML []byte

// SeedBatchSize is how many references are upserted per request.
const SeedBatchSize = 10

type entry struct {
	ID                         string    `yaml:"id"`
	Values                     []float32 `yaml:"values"`
	database.ReferenceMetadata `yaml:",inline"`
}

// Catalog returns the built-in references in file order.
func Catalog() ([]database.ReferenceVector, error) {
	return Parse(catalogYAML)
}

// Parse decodes a catalog document. Entries without an id get one derived
// from their category and name.
func Parse(data []byte) ([]database.ReferenceVector, error) {
	var doc struct {
		References []entry `yaml:"references"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing reference catalog: %w", err)
	}

	seen := make(map[string]bool, len(doc.References))
	out := make([]database.ReferenceVector, 0, len(doc.References))
	for i, e := range doc.References {
		if e.Name == "" {
			return nil, fmt.Errorf("reference %d has no name", i)
		}
		if len(e.Values) != database.ReferenceDim {
			return nil, fmt.Errorf("reference %q has %d values, want %d", e.Name, len(e.Values), database.ReferenceDim)
		}
		for _, v := range e.Values {
			if !(v > 0) {
				return nil, fmt.Errorf("reference %q has a non-positive value", e.Name)
			}
		}
		id := e.ID
		if id == "" {
			id = DeriveID(e.Category, e.Name)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate reference id %q", id)
		}
		seen[id] = true
		out = append(out, database.ReferenceVector{ID: id, Values: e.Values, Metadata: e.ReferenceMetadata})
	}
	return out, nil
}

// DeriveID builds a stable id such as "celeb_brad_pitt" or "art_venus_botticelli".
func DeriveID(category, name string) string {
	prefix := "celeb"
	if category == "art" {
		prefix = "art"
	}
	return prefix + "_" + Slug(name)
}

// RemoveDiacritics strips combining marks, so "Timothée" becomes "Timothee".
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Slug lowercases name, folds diacritics, drops punctuation and joins words
// with underscores.
func Slug(name string) string {
	name = strings.ToLower(RemoveDiacritics(name))
	var b strings.Builder
	pendingSep := false
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}

// Batches splits refs into chunks of at most size.
func Batches(refs []database.ReferenceVector, size int) [][]database.ReferenceVector {
	if size <= 0 {
		size = SeedBatchSize
	}
	var out [][]database.ReferenceVector
	for start := 0; start < len(refs); start += size {
		out = append(out, refs[start:min(start+size, len(refs))])
	}
	return out
}
