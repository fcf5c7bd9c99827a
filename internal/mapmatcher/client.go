// Package mapmatcher aligns a raw GPS trace to the drivable road network
// via chunked, rate-limited calls to an external map-matching provider,
// with adaptive radii, retry/backoff, recursive subdivision on failure,
// and post-match jump repair.
package mapmatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"streetcoverage/config"
)

// Coord is one input coordinate with an optional radius and timestamp.
type Coord struct {
	Lon, Lat float64
	RadiusM  float64
	Time     *time.Time
}

// Outcome is the state-machine result of a single provider call, replacing
// exception-driven control flow: the retry loop's input is always exactly
// one of these four shapes.
type Outcome struct {
	Kind       OutcomeKind
	Geometry   [][2]float64 // matched LineString coordinates, Ok only
	RetryAfter time.Duration
	Message    string
}

// OutcomeKind enumerates the four states the provider call can resolve to.
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeRateLimited
	OutcomeServerError
	OutcomeClientError
)

// Client calls the external map-matching provider for one chunk.
type Client interface {
	Match(ctx context.Context, coords []Coord) (Outcome, error)
}

type providerResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Matchings []struct {
		Geometry struct {
			Type        string       `json:"type"`
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"matchings"`
}

// HTTPClient is the fasthttp-based Client implementation against the
// map-matching provider contract (spec §6).
type HTTPClient struct {
	cfg        config.MapMatchConfig
	httpClient *fasthttp.Client
}

// NewHTTPClient builds a provider client bound to cfg.
func NewHTTPClient(cfg config.MapMatchConfig) *HTTPClient {
	return &HTTPClient{
		cfg:        cfg,
		httpClient: &fasthttp.Client{Name: "streetcoverage-mapmatcher"},
	}
}

// Match posts one chunk to the provider and classifies the response into
// an Outcome; it never returns a non-nil error for HTTP-level failures —
// those are folded into Outcome — reserving the error return for
// request-construction failures.
func (c *HTTPClient) Match(ctx context.Context, coords []Coord) (Outcome, error) {
	coordinates := make([][]float64, len(coords))
	radiuses := make([]float64, len(coords))
	for i, co := range coords {
		if co.Time != nil {
			coordinates[i] = []float64{co.Lon, co.Lat, float64(co.Time.Unix())}
		} else {
			coordinates[i] = []float64{co.Lon, co.Lat}
		}
		radiuses[i] = co.RadiusM
	}

	body, err := json.Marshal(map[string]any{
		"coordinates": coordinates,
		"radiuses":    radiuses,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("marshal map-match request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	url := fmt.Sprintf("%s/match?geometries=geojson&overview=full&tidy=true&access_token=%s", c.cfg.BaseURL, c.cfg.AccessToken)
	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.cfg.RequestTimeout)
	}

	if err := c.httpClient.DoDeadline(req, resp, deadline); err != nil {
		return Outcome{Kind: OutcomeServerError, Message: err.Error()}, nil
	}

	status := resp.StatusCode()

	if status == fasthttp.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Peek("Retry-After"))

		return Outcome{Kind: OutcomeRateLimited, RetryAfter: retryAfter}, nil
	}

	if status >= 500 {
		return Outcome{Kind: OutcomeServerError, Message: fmt.Sprintf("status %d", status)}, nil
	}

	var parsed providerResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return Outcome{Kind: OutcomeServerError, Message: err.Error()}, nil
	}

	if status >= 400 || parsed.Code == "Error" {
		return Outcome{Kind: OutcomeClientError, Message: parsed.Message}, nil
	}

	if len(parsed.Matchings) == 0 {
		return Outcome{Kind: OutcomeClientError, Message: "no matchings returned"}, nil
	}

	return Outcome{Kind: OutcomeOK, Geometry: parsed.Matchings[0].Geometry.Coordinates}, nil
}

func parseRetryAfter(header []byte) time.Duration {
	if len(header) == 0 {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(string(header), "%d", &seconds); err != nil {
		return 0
	}

	return time.Duration(seconds) * time.Second
}
