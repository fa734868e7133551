// Package slugify turns free-form names (brands, manufacturers) into URL-safe slugs.
package slugify

import (
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is returned when nothing slug-worthy is left of the input.
const Fallback = "unknown"

const DefaultMemoSize = 1024

// Make lowercases text, spells out "&" as "and", folds diacritics and collapses every
// run of non [a-z0-9] characters into a single hyphen. The result never starts or ends
// with a hyphen.
func Make(text string) string {
	// transform.Chain keeps state, so it is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}

	folded = strings.ToLower(folded)
	folded = strings.ReplaceAll(folded, "&", "and")

	var b strings.Builder
	b.Grow(len(folded))

	pendingDash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	if b.Len() == 0 {
		return Fallback
	}
	return b.String()
}

// Memo is a bounded memo over Make. Brand names repeat across thousands of products,
// so the same handful of inputs is slugified over and over.
type Memo struct {
	cache *lru.Cache[string, string]
}

func NewMemo(size int) *Memo {
	if size <= 0 {
		size = DefaultMemoSize
	}
	// lru.New only fails for a non-positive size
	c, _ := lru.New[string, string](size)
	return &Memo{cache: c}
}

// Make returns the same value as the package level Make. A nil Memo is usable.
func (m *Memo) Make(text string) string {
	if m == nil || m.cache == nil {
		return Make(text)
	}
	if v, ok := m.cache.Get(text); ok {
		return v
	}
	v := Make(text)
	m.cache.Add(text, v)
	return v
}

func (m *Memo) Len() int {
	if m == nil || m.cache == nil {
		return 0
	}
	return m.cache.Len()
}
