package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"etgcatalog/internal/apis/etg/responses"
)

const maxBodyBytes = 8 * 1024 * 1024

// ListProducts fetches one catalog page. A missing "products" key yields an empty page.
func (c *Client) ListProducts(ctx context.Context, page int, featureType string) (responses.ProductsPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("feature[type]", featureType)

	req, err := c.newReq(ctx, http.MethodGet, c.ProductsPath, q)
	if err != nil {
		return responses.ProductsPage{}, err
	}

	resp, err := c.Doer.Do(req)
	if err != nil {
		return responses.ProductsPage{}, err
	}

	b, err := readLimited(resp, maxBodyBytes)
	if err != nil {
		return responses.ProductsPage{}, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return responses.ProductsPage{}, ParseAPIError(resp.StatusCode, b)
	}

	var raw map[string]any
	if err := decodeJSON(b, &raw); err != nil {
		return responses.ProductsPage{}, fmt.Errorf("ListProducts page=%d: %w: body=%s", page, ErrBadJSON, excerpt(b, 256))
	}

	out := responses.ProductsPage{}

	if arr, ok := raw["products"].([]any); ok {
		out.Products = make([]responses.Product, 0, len(arr))
		for _, it := range arr {
			if m, ok := it.(map[string]any); ok {
				out.Products = append(out.Products, responses.Product{Raw: m})
			}
		}
	}

	if details, ok := raw["details"].(map[string]any); ok {
		count, okCount := asInt(details["count"])
		perPage, okPerPage := asInt(details["products_per_page"])
		out.Count = count
		out.PerPage = perPage
		out.HasDetails = okCount && okPerPage
	}

	return out, nil
}

// asInt accepts JSON numbers and numeric strings, e.g. 42, 42.0, "42".
func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := strconv.Atoi(t.String()); err == nil {
			return n, true
		}
		if f, err := t.Float64(); err == nil {
			return floatToInt(f)
		}
	case float64:
		return floatToInt(t)
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt(f)
		}
	}
	return 0, false
}

// floatToInt truncates f, rejecting values an int cannot hold.
func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || f < float64(math.MinInt) || f >= float64(math.MaxInt) {
		return 0, false
	}
	return int(f), true
}
