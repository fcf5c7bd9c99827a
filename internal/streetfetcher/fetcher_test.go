package streetfetcher

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestCacheKey_StableForSameBoundary(t *testing.T) {
	boundary := orb.Polygon{orb.Ring{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}}

	k1 := cacheKey("Area1", boundary)
	k2 := cacheKey("Area1", boundary)
	assert.Equal(t, k1, k2)

	k3 := cacheKey("Area2", boundary)
	assert.NotEqual(t, k1, k3)
}

func TestBuildRequest_PolygonVsBBoxFallback(t *testing.T) {
	boundary := orb.Polygon{orb.Ring{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}}
	req := buildRequest(boundary)
	assert.NotNil(t, req.Polygon)
	assert.Nil(t, req.BBox)

	multi := orb.MultiPolygon{boundary, orb.Polygon{orb.Ring{{5, 5}, {5, 6}, {6, 6}, {6, 5}, {5, 5}}}}
	req2 := buildRequest(multi)
	assert.Nil(t, req2.Polygon)
	assert.NotNil(t, req2.BBox)
}
