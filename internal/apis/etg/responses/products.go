package responses

// Product is one raw element of the upstream "products" array. Fields are read
// best-effort by the mapper.
type Product struct {
	Raw map[string]any
}

type ProductsPage struct {
	Products []Product
	// Count and PerPage come from "details"; zero when absent or unparsable.
	Count   int
	PerPage int
	// HasDetails reports whether both count and products_per_page were present and numeric.
	HasDetails bool
}
