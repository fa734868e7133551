package mapper

import (
	"encoding/json"
	"strings"

	"etgcatalog/internal/apis/etg"
	"etgcatalog/internal/domain/models"
	"etgcatalog/internal/lib/fingerprint"
	"etgcatalog/internal/lib/slugify"
)

type Mapper struct {
	slugs *slugify.Memo
}

// New returns a mapper backed by slugs; a nil memo slugifies every call.
func New(slugs *slugify.Memo) *Mapper {
	return &Mapper{slugs: slugs}
}

// FromProduct maps a raw upstream product. ok is false when the product has no URL.
func (m *Mapper) FromProduct(p etg.Product, today string) (models.Product, bool) {
	url, _ := asString(p.Raw["url"])
	if url == "" {
		return models.Product{}, false
	}

	brand := extractText(p, "manufacturer")

	return models.Product{
		Source:      models.Source,
		Brand:       brand,
		BrandSlug:   m.slugs.Make(brand),
		ProductName: extractText(p, "name"),
		ProductURL:  url,
		ImageURL:    extractImage(p),
		IsNew:       truthy(p.Raw["new"]),
		Hash:        fingerprint.Of(url),
		FirstSeen:   today,
		LastSeen:    today,
	}, true
}

func extractText(p etg.Product, key string) string {
	v, _ := asString(p.Raw[key])
	return strings.TrimSpace(v)
}

func extractImage(p etg.Product) *string {
	v, ok := asString(p.Raw["image"])
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "0", "false", "no":
			return false
		}
		return true
	}
	return false
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return s, true
}
