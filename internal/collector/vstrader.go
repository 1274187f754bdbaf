package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"ProtectiveAllocator/internal/model"
)

// VsTraderFetcher implements Fetcher using the vstrader REST API.
type VsTraderFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewVsTraderFetcher creates a new fetcher with optional proxy support.
func NewVsTraderFetcher(baseURL, apiKey, proxyURL string) *VsTraderFetcher {
	return &VsTraderFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *VsTraderFetcher) Name() string { return "vstrader" }

// vsBar is the expected JSON shape from the vstrader API.
type vsBar struct {
	Timestamp int64   `json:"timestamp"`
	Close     float64 `json:"close"`
}

func (f *VsTraderFetcher) FetchDailyCloses(ctx context.Context, symbol string, start, end time.Time) (model.PriceSeries, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("start", start.Format(model.DateLayout))
	q.Set("end", end.Format(model.DateLayout))
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?%s", f.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.PriceSeries{}, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return model.PriceSeries{}, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}
	var bars []vsBar
	if err := json.NewDecoder(resp.Body).Decode(&bars); err != nil {
		return model.PriceSeries{}, fmt.Errorf("decode bars: %w", err)
	}

	series := model.PriceSeries{Symbol: symbol, FetchedAt: time.Now()}
	for _, b := range bars {
		series.Points = append(series.Points, model.PricePoint{
			Date:  time.Unix(b.Timestamp, 0).UTC(),
			Close: b.Close,
		})
	}
	// Ensure chronological order
	sort.Slice(series.Points, func(i, j int) bool { return series.Points[i].Date.Before(series.Points[j].Date) })
	return series, nil
}
