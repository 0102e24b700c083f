package fleet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SafeTrail/internal/models"
)

func seededStore() *Store {
	s := NewStore(2.0, 42)
	s.Add(models.Responder{ID: "amb-1", Category: "ambulance", Coord: models.Coordinate{Lat: 19.00, Lng: 72.80}, Status: models.ResponderAvailable})
	s.Add(models.Responder{ID: "amb-2", Category: "ambulance", Coord: models.Coordinate{Lat: 19.50, Lng: 72.80}, Status: models.ResponderAvailable})
	s.Add(models.Responder{ID: "pol-1", Category: "police", Coord: models.Coordinate{Lat: 19.05, Lng: 72.85}, Status: models.ResponderAvailable})
	return s
}

func TestAssignNearestOfCategory(t *testing.T) {
	s := seededStore()

	id, eta := s.Assign(models.Coordinate{Lat: 19.01, Lng: 72.80}, "ambulance")
	assert.Equal(t, "amb-1", id)
	assert.GreaterOrEqual(t, eta, 1)

	// assignment flips the responder to responding
	for _, r := range s.Snapshot() {
		if r.ID == "amb-1" {
			assert.Equal(t, models.ResponderResponding, r.Status)
		}
	}
}

func TestAssignSkipsBusyResponders(t *testing.T) {
	s := seededStore()

	first, _ := s.Assign(models.Coordinate{Lat: 19.01, Lng: 72.80}, "ambulance")
	require.Equal(t, "amb-1", first)

	second, _ := s.Assign(models.Coordinate{Lat: 19.01, Lng: 72.80}, "ambulance")
	assert.Equal(t, "amb-2", second)
}

func TestAssignTieKeepsFirstEncountered(t *testing.T) {
	s := NewStore(2.0, 1)
	coord := models.Coordinate{Lat: 10, Lng: 10}
	s.Add(models.Responder{ID: "r-first", Category: "rescue", Coord: coord, Status: models.ResponderAvailable})
	s.Add(models.Responder{ID: "r-second", Category: "rescue", Coord: coord, Status: models.ResponderAvailable})

	id, eta := s.Assign(coord, "rescue")
	assert.Equal(t, "r-first", id)
	assert.Equal(t, 1, eta) // zero distance still floors at one minute
}

func TestAssignEtaFromTravelModel(t *testing.T) {
	s := NewStore(2.0, 1)
	// ~111 km north of the incident, at 2 min/km
	s.Add(models.Responder{ID: "far-1", Category: "fire", Coord: models.Coordinate{Lat: 1, Lng: 0}, Status: models.ResponderAvailable})

	id, eta := s.Assign(models.Coordinate{Lat: 0, Lng: 0}, "fire")
	assert.Equal(t, "far-1", id)
	assert.InDelta(t, 222, eta, 2)
}

func TestAssignFallbackEta(t *testing.T) {
	s := NewStore(2.0, 7)

	// no responders at all: category base time plus 0-5 minutes jitter
	id, eta := s.Assign(models.Coordinate{Lat: 0, Lng: 0}, "ambulance")
	assert.Empty(t, id)
	assert.GreaterOrEqual(t, eta, 12)
	assert.LessOrEqual(t, eta, 17)

	_, eta = s.Assign(models.Coordinate{Lat: 0, Lng: 0}, "police")
	assert.GreaterOrEqual(t, eta, 8)
	assert.LessOrEqual(t, eta, 13)

	// unknown categories fall back to the default base
	_, eta = s.Assign(models.Coordinate{Lat: 0, Lng: 0}, "general")
	assert.GreaterOrEqual(t, eta, 10)
	assert.LessOrEqual(t, eta, 15)
}

func TestRelease(t *testing.T) {
	s := seededStore()

	id, _ := s.Assign(models.Coordinate{Lat: 19.01, Lng: 72.80}, "ambulance")
	require.Equal(t, "amb-1", id)

	assert.True(t, s.Release("amb-1"))
	assert.False(t, s.Release("no-such"))

	// released responders are assignable again
	again, _ := s.Assign(models.Coordinate{Lat: 19.01, Lng: 72.80}, "ambulance")
	assert.Equal(t, "amb-1", again)
}
