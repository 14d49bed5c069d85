package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHaversineZeroDistance(t *testing.T) {
	require.Zero(t, HaversineM(37.5665, 126.9780, 37.5665, 126.9780))
}

func TestHaversineKnownDistance(t *testing.T) {
	// Seoul City Hall to Gwanghwamun, roughly 1.1km.
	d := HaversineM(37.5665, 126.9780, 37.5759, 126.9768)
	require.InDelta(t, 1050, d, 100)
}

func TestHaversineSymmetric(t *testing.T) {
	a := HaversineM(37.5665, 126.9780, 35.1796, 129.0756)
	b := HaversineM(35.1796, 129.0756, 37.5665, 126.9780)
	require.InDelta(t, a, b, 0.001)
}

func TestWithinRadiusBoundary(t *testing.T) {
	lat, lon := 37.5665, 126.9780

	// One degree of longitude at this latitude is about 88.3km, so 0.0005
	// degrees east is about 44m.
	require.True(t, WithinRadius(lat, lon, lat, lon+0.0005, 50))
	require.False(t, WithinRadius(lat, lon, lat, lon+0.0010, 50))

	// Exact point always passes, whatever the radius.
	require.True(t, WithinRadius(lat, lon, lat, lon, 0))
}
