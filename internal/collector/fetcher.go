package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"ProtectiveAllocator/internal/model"
)

// Fetcher loads daily closing prices for one instrument.
type Fetcher interface {
	FetchDailyCloses(ctx context.Context, symbol string, start, end time.Time) (model.PriceSeries, error)
	Name() string
}

// newHTTPClient builds a client with optional proxy support.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
