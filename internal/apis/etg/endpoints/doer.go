package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	Doer         Doer
	BaseURL      string
	ProductsPath string
	ApplyHeaders func(*http.Request)
}

func New(doer Doer, baseURL, productsPath string, applyHeaders func(*http.Request)) *Client {
	return &Client{
		Doer:         doer,
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ProductsPath: productsPath,
		ApplyHeaders: applyHeaders,
	}
}

func (c *Client) newReq(ctx context.Context, method, path string, query url.Values) (*http.Request, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is empty")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	if c.ApplyHeaders != nil {
		c.ApplyHeaders(req)
	}
	return req, nil
}

func readLimited(resp *http.Response, limit int64) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

func decodeJSON[T any](b []byte, out *T) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(out)
}

func excerpt(b []byte, n int) string {
	s := strings.TrimSpace(string(b[:min(len(b), n)]))
	return s
}
