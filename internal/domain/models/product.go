package models

// Source tags every product fetched from ETG.
const Source = "etg"

type Product struct {
	Source      string  `json:"source"`
	Brand       string  `json:"brand"`
	BrandSlug   string  `json:"brand_slug"`
	ProductName string  `json:"product_name"`
	ProductURL  string  `json:"product_url"`
	ImageURL    *string `json:"image_url"`
	IsNew       bool    `json:"is_new"`
	Hash        string  `json:"hash"`
	FirstSeen   string  `json:"first_seen"`
	LastSeen    string  `json:"last_seen"`
}

// PageError is an advisory failure for a single upstream page.
type PageError struct {
	Page  int    `json:"page"`
	Error string `json:"error"`
}
