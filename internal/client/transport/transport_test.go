package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"etgcatalog/internal/metrics"
)

const testURL = "http://etg.test/filter-machines.php"

func newTestTransport(t *testing.T, mock *httpmock.MockTransport, retries int, m *metrics.Metrics) Transport {
	t.Helper()
	tr, err := Build(Options{
		HTTPClient: &http.Client{Transport: mock},
		Retries:    retries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:    m,
	})
	if err != nil {
		t.Fatalf("build transport: %v", err)
	}
	return tr
}

func get(t *testing.T, tr Transport, method string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, testURL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	return tr.Do(req)
}

func TestRetryTransportRecoversFromTransientStatus(t *testing.T) {
	mock := httpmock.NewMockTransport()
	mock.RegisterResponder(http.MethodGet, testURL,
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "busy").
			Then(httpmock.NewStringResponder(http.StatusBadGateway, "busy")).
			Then(httpmock.NewStringResponder(http.StatusOK, `{"products":[]}`)),
	)

	m := metrics.New()
	resp, err := get(t, newTestTransport(t, mock, 3, m), http.MethodGet)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := mock.GetTotalCallCount(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
	if got := testutil.ToFloat64(m.UpstreamRetries); got != 2 {
		t.Fatalf("retries metric = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("503")); got != 1 {
		t.Fatalf("503 attempts = %v, want 1", got)
	}
}

func TestRetryTransportExhaustsRetries(t *testing.T) {
	mock := httpmock.NewMockTransport()
	mock.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(http.StatusGatewayTimeout, ""))

	_, err := get(t, newTestTransport(t, mock, 2, nil), http.MethodGet)

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != http.StatusGatewayTimeout || se.Attempts != 3 {
		t.Fatalf("status error = %+v", se)
	}
	if got := mock.GetTotalCallCount(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestRetryTransportStatusSet(t *testing.T) {
	tests := []struct {
		status    int
		wantCalls int
	}{
		{status: http.StatusTooManyRequests, wantCalls: 2},
		{status: http.StatusInternalServerError, wantCalls: 2},
		{status: http.StatusBadGateway, wantCalls: 2},
		{status: http.StatusServiceUnavailable, wantCalls: 2},
		{status: http.StatusGatewayTimeout, wantCalls: 2},
		{status: http.StatusNotImplemented, wantCalls: 1},
		{status: http.StatusNotFound, wantCalls: 1},
		{status: http.StatusForbidden, wantCalls: 1},
		{status: http.StatusOK, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			mock := httpmock.NewMockTransport()
			mock.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(tt.status, ""))

			resp, err := get(t, newTestTransport(t, mock, 1, nil), http.MethodGet)
			if err == nil {
				resp.Body.Close()
			}
			if got := mock.GetTotalCallCount(); got != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestRetryTransportSkipsNonIdempotent(t *testing.T) {
	mock := httpmock.NewMockTransport()
	mock.RegisterResponder(http.MethodPost, testURL, httpmock.NewStringResponder(http.StatusServiceUnavailable, ""))

	resp, err := get(t, newTestTransport(t, mock, 3, nil), http.MethodPost)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := mock.GetTotalCallCount(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestRetryTransportRetriesNetworkErrors(t *testing.T) {
	mock := httpmock.NewMockTransport()
	mock.RegisterResponder(http.MethodGet, testURL,
		httpmock.NewErrorResponder(errors.New("connection reset by peer")).
			Then(httpmock.NewStringResponder(http.StatusOK, "{}")),
	)

	resp, err := get(t, newTestTransport(t, mock, 2, nil), http.MethodGet)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()

	if got := mock.GetTotalCallCount(); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestRetryTransportStopsOnCanceledContext(t *testing.T) {
	mock := httpmock.NewMockTransport()
	mock.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(http.StatusOK, "{}"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, testURL, nil)
	_, err := newTestTransport(t, mock, 3, nil).Do(req)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := mock.GetTotalCallCount(); got != 0 {
		t.Fatalf("calls = %d, want 0", got)
	}
}

func TestPacingTransportSpacesRequests(t *testing.T) {
	mock := httpmock.NewMockTransport()
	mock.RegisterResponder(http.MethodGet, testURL, httpmock.NewStringResponder(http.StatusOK, "{}"))

	tr, err := Build(Options{
		HTTPClient:  &http.Client{Transport: mock},
		MinInterval: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := tr.(*PacingTransport); !ok {
		t.Fatalf("transport = %T, want *PacingTransport", tr)
	}

	start := time.Now()
	for i := 0; i < 3; i++ {
		resp, err := get(t, tr, http.MethodGet)
		if err != nil {
			t.Fatalf("do: %v", err)
		}
		resp.Body.Close()
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("3 paced requests took %v, want >= 40ms", elapsed)
	}
}

func TestBuildValidates(t *testing.T) {
	if _, err := Build(Options{}); err == nil || !strings.Contains(err.Error(), "HTTPClient") {
		t.Fatalf("expected HTTPClient error, got %v", err)
	}
	if _, err := Build(Options{HTTPClient: http.DefaultClient, Retries: -1}); err == nil {
		t.Fatalf("expected retries error")
	}
}

func TestBackoffCapped(t *testing.T) {
	for attempt := 0; attempt < 40; attempt++ {
		d := backoff(100*time.Millisecond, time.Second, attempt)
		if d > 1500*time.Millisecond {
			t.Fatalf("attempt %d: delay %v exceeds jittered cap", attempt, d)
		}
		if d <= 0 {
			t.Fatalf("attempt %d: non-positive delay %v", attempt, d)
		}
	}
}

func TestRetryAfterDelay(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{header: "", want: 0},
		{header: "abc", want: 0},
		{header: "2", want: 2 * time.Second},
		{header: "600", want: 60 * time.Second},
	}
	for _, tt := range tests {
		resp := &http.Response{Header: http.Header{}}
		if tt.header != "" {
			resp.Header.Set("Retry-After", tt.header)
		}
		if got := retryAfterDelay(resp); got != tt.want {
			t.Errorf("retryAfterDelay(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}
