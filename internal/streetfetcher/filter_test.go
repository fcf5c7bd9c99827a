package streetfetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDrivable(t *testing.T) {
	tests := []struct {
		name string
		way  Way
		want bool
	}{
		{"plain residential", Way{HighwayTag: "residential"}, true},
		{"footway excluded", Way{HighwayTag: "footway"}, false},
		{"service road excluded", Way{HighwayTag: "service"}, false},
		{"private access excluded", Way{HighwayTag: "residential", Access: "private"}, false},
		{"driveway service excluded", Way{HighwayTag: "residential", Service: "driveway"}, false},
		{"area yes excluded", Way{HighwayTag: "residential", Area: "yes"}, false},
		{"motor_vehicle no excluded", Way{HighwayTag: "residential", MotorVehicle: "no"}, false},
		{"motorcar no excluded", Way{HighwayTag: "residential", Motorcar: "no"}, false},
		{"vehicle no excluded", Way{HighwayTag: "residential", Vehicle: "no"}, false},
		{"destination access allowed? no, excluded", Way{HighwayTag: "residential", Access: "destination"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDrivable(tt.way))
		})
	}
}

func TestFilterDrivable(t *testing.T) {
	ways := []Way{
		{WayID: "1", HighwayTag: "residential"},
		{WayID: "2", HighwayTag: "footway"},
		{WayID: "3", HighwayTag: "primary"},
	}
	out := FilterDrivable(ways)
	assert.Len(t, out, 2)
	assert.Equal(t, "1", out[0].WayID)
	assert.Equal(t, "3", out[1].WayID)
}
