package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/grid-point-interpolation/internal/weather"
)

// HTTPRetriever implements weather.Retriever against a grid-point sample
// service answering GET {base}?easting=&northing=&label= with a JSON sample.
type HTTPRetriever struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewHTTPRetriever creates an HTTPRetriever for baseURL.
func NewHTTPRetriever(client *http.Client, baseURL string) *HTTPRetriever {
	return &HTTPRetriever{
		name:    "http",
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: newCircuitBreaker("grid-samples"),
	}
}

// WithBackoff overrides the retry settings.
func (p *HTTPRetriever) WithBackoff(b BackoffConfig) *HTTPRetriever {
	p.httpCfg.Backoff = b
	return p
}

func (p *HTTPRetriever) Name() string {
	return p.name
}

// samplePayload is the wire form of a sample. Times are RFC3339.
type samplePayload struct {
	Elevation           float64        `json:"elevation"`
	Time                []string       `json:"time"`
	Temperature         weather.Values `json:"temperature"`
	Precipitation       weather.Values `json:"precipitation"`
	SnowDepth           weather.Values `json:"snow_depth"`
	NewSnowWater        weather.Values `json:"new_snow_water"`
	SnowWaterEquivalent weather.Values `json:"snow_water_equivalent"`
}

func (p *HTTPRetriever) Retrieve(ctx context.Context, easting, northing float64, label string) (weather.Sample, error) {
	if p.baseURL == "" {
		return weather.Sample{}, fmt.Errorf("sample service url is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("easting", strconv.FormatFloat(easting, 'f', -1, 64))
		values.Set("northing", strconv.FormatFloat(northing, 'f', -1, 64))
		if label != "" {
			values.Set("label", label)
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Sample{}, err
	}
	defer resp.Body.Close()

	var payload samplePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Sample{}, err
	}

	times := make([]time.Time, len(payload.Time))
	for i, s := range payload.Time {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return weather.Sample{}, fmt.Errorf("sample time %d: %w", i, err)
		}
		times[i] = ts.UTC()
	}

	return weather.Sample{
		Time:                times,
		Temperature:         payload.Temperature,
		Precipitation:       payload.Precipitation,
		SnowDepth:           payload.SnowDepth,
		NewSnowWater:        payload.NewSnowWater,
		SnowWaterEquivalent: payload.SnowWaterEquivalent,
		Elevation:           payload.Elevation,
	}, nil
}
