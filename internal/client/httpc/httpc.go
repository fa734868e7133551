package httpc

import (
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

type Options struct {
	Timeout time.Duration
	// 0 leaves header waits to Timeout and the request context
	ResponseHeaderTimeout time.Duration
	// nil means http.ProxyFromEnvironment
	Proxy func(*http.Request) (*url.URL, error)

	MaxIdleConnsPerHost int
}

// New builds the pooled client shared by every outbound request of the process.
func New(opts Options) *http.Client {
	// cookiejar.New never returns an error
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	proxy := opts.Proxy
	if proxy == nil {
		proxy = http.ProxyFromEnvironment
	}
	perHost := opts.MaxIdleConnsPerHost
	if perHost <= 0 {
		perHost = 10
	}

	tr := &http.Transport{
		Proxy: proxy,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		ExpectContinueTimeout: 1 * time.Second,

		MaxIdleConns:        50,
		MaxIdleConnsPerHost: perHost,
		IdleConnTimeout:     90 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: tr,
		Timeout:   opts.Timeout,
		Jar:       jar,
	}
}

// ProxyFromURL returns a fixed proxy func for raw, or nil when raw is empty.
func ProxyFromURL(raw string) (func(*http.Request) (*url.URL, error), error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxy url %q has no host", raw)
	}
	return http.ProxyURL(u), nil
}
