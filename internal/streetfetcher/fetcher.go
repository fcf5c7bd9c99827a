package streetfetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"

	domainerrors "streetcoverage/internal/domain/errors"
)

// Fetcher pulls the drivable way collection for an area boundary.
type Fetcher interface {
	Fetch(ctx context.Context, areaDisplayName string, boundary orb.Geometry) ([]Way, error)
}

// overpassRequest is the provider payload: a polygon, or a bounding box
// fallback when the boundary is degenerate.
type overpassRequest struct {
	Polygon [][][2]float64 `json:"polygon,omitempty"`
	BBox    *[4]float64    `json:"bbox,omitempty"` // [minLon, minLat, maxLon, maxLat]
}

type overpassResponse struct {
	Ways []Way `json:"ways"`
}

// HTTPFetcher fetches ways from an Overpass-style HTTP endpoint, caching
// results by (area, boundary hash) with an LRU of bounded size.
type HTTPFetcher struct {
	baseURL    string
	httpClient *fasthttp.Client
	timeout    time.Duration
	cache      *lru.Cache[string, []Way]
	logger     *slog.Logger
}

// NewHTTPFetcher builds a fetcher with an in-memory LRU cache of
// cacheSize boundary results.
func NewHTTPFetcher(baseURL string, timeout time.Duration, cacheSize int, logger *slog.Logger) (*HTTPFetcher, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}

	cache, err := lru.New[string, []Way](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("lru.New: %w", err)
	}

	return &HTTPFetcher{
		baseURL:    baseURL,
		httpClient: &fasthttp.Client{Name: "streetcoverage-streetfetcher"},
		timeout:    timeout,
		cache:      cache,
		logger:     logger,
	}, nil
}

// Fetch returns the drivable ways for an area's boundary. A Polygon, or a
// MultiPolygon with one part, is sent as a polygon; a multi-part
// MultiPolygon or any other geometry is sent as its bounding box. Polygon
// validity is not checked: a self-intersecting Polygon is sent unchanged.
func (f *HTTPFetcher) Fetch(ctx context.Context, areaDisplayName string, boundary orb.Geometry) ([]Way, error) {
	key := cacheKey(areaDisplayName, boundary)
	if cached, ok := f.cache.Get(key); ok {
		return cached, nil
	}

	req := buildRequest(boundary)

	ways, err := f.call(ctx, req)
	if err != nil {
		return nil, err
	}

	drivable := FilterDrivable(ways)
	f.cache.Add(key, drivable)

	return drivable, nil
}

func (f *HTTPFetcher) call(ctx context.Context, reqBody overpassRequest) ([]Way, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal street provider request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(f.baseURL + "/ways")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(f.timeout)
	}

	if err := f.httpClient.DoDeadline(req, resp, deadline); err != nil {
		return nil, errors.Wrap(domainerrors.ErrNetworkUnavailable, err.Error())
	}

	if resp.StatusCode() >= 500 {
		return nil, domainerrors.ErrNetworkUnavailable
	}
	if resp.StatusCode() >= 400 {
		return nil, domainerrors.ErrValidation.WrapMessage(fmt.Sprintf("street provider status %d", resp.StatusCode()))
	}

	var parsed overpassResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal street provider response: %w", err)
	}

	return parsed.Ways, nil
}

// buildRequest sends a Polygon, or a MultiPolygon with one part, as a
// polygon payload, and any other geometry as its bounding box.
func buildRequest(boundary orb.Geometry) overpassRequest {
	switch g := boundary.(type) {
	case orb.Polygon:
		rings := make([][][2]float64, len(g))
		for i, ring := range g {
			rings[i] = ringToPairs(ring)
		}

		return overpassRequest{Polygon: rings}
	case orb.MultiPolygon:
		if len(g) == 1 {
			return buildRequest(g[0])
		}
		bound := boundary.Bound()
		bbox := [4]float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]}

		return overpassRequest{BBox: &bbox}
	default:
		bound := boundary.Bound()
		bbox := [4]float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]}

		return overpassRequest{BBox: &bbox}
	}
}

func ringToPairs(ring orb.Ring) [][2]float64 {
	out := make([][2]float64, len(ring))
	for i, p := range ring {
		out[i] = [2]float64{p[0], p[1]}
	}

	return out
}

func cacheKey(areaDisplayName string, boundary orb.Geometry) string {
	h := sha256.New()
	h.Write([]byte(areaDisplayName))

	fmt.Fprintf(h, "|%v", boundary)

	return hex.EncodeToString(h.Sum(nil))
}
