package fleet

import (
	"math"
	"math/rand"
	"sync"

	"SafeTrail/internal/geofence"
	"SafeTrail/internal/models"
)

// Base dispatch times in minutes when no responder can be assigned,
// keyed by help type.
var baseEta = map[string]int{
	"police":    8,
	"ambulance": 12,
	"fire":      10,
	"rescue":    15,
}

const defaultBaseEta = 10

// maxJitterMinutes bounds the random spread added to base ETAs.
const maxJitterMinutes = 5

// Store stands in for the external responder fleet. Matching reads it
// and flips assigned responders to responding; releasing them back is
// the fleet's own responsibility.
type Store struct {
	mu           sync.Mutex
	responders   []*models.Responder
	minutesPerKm float64
	rng          *rand.Rand
}

func NewStore(minutesPerKm float64, seed int64) *Store {
	if minutesPerKm <= 0 {
		minutesPerKm = 2.0
	}
	return &Store{
		minutesPerKm: minutesPerKm,
		rng:          rand.New(rand.NewSource(seed)),
	}
}

// SeedDemo installs a small responder fleet around the seeded hazard
// zones, for running without a live fleet feed.
func SeedDemo(s *Store) {
	s.Add(models.Responder{ID: "police-mumbai-1", Category: "police", Coord: models.Coordinate{Lat: 19.0825, Lng: 72.8811}})
	s.Add(models.Responder{ID: "ambulance-mumbai-1", Category: "ambulance", Coord: models.Coordinate{Lat: 19.0650, Lng: 72.8690}})
	s.Add(models.Responder{ID: "fire-mumbai-1", Category: "fire", Coord: models.Coordinate{Lat: 19.0900, Lng: 72.8600}})
	s.Add(models.Responder{ID: "police-delhi-1", Category: "police", Coord: models.Coordinate{Lat: 28.7100, Lng: 77.1100}})
	s.Add(models.Responder{ID: "rescue-delhi-1", Category: "rescue", Coord: models.Coordinate{Lat: 28.6950, Lng: 77.0950}})
}

// Add registers a responder.
func (s *Store) Add(r models.Responder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Status == "" {
		r.Status = models.ResponderAvailable
	}
	copied := r
	s.responders = append(s.responders, &copied)
}

// Assign picks the nearest available responder of the help type, flips
// it to responding, and returns its id with a travel-model ETA. Ties
// break in first-encountered order. With no candidate the id is empty
// and the ETA is the category base time plus 0-5 minutes of jitter.
func (s *Store) Assign(coord models.Coordinate, helpType string) (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *models.Responder
	bestDistance := math.MaxFloat64
	for _, r := range s.responders {
		if r.Status != models.ResponderAvailable || r.Category != helpType {
			continue
		}
		d := geofence.Haversine(coord, r.Coord)
		if d < bestDistance {
			best = r
			bestDistance = d
		}
	}

	if best == nil {
		base, ok := baseEta[helpType]
		if !ok {
			base = defaultBaseEta
		}
		return "", base + s.rng.Intn(maxJitterMinutes+1)
	}

	best.Status = models.ResponderResponding
	eta := int(math.Round(bestDistance * s.minutesPerKm))
	if eta < 1 {
		eta = 1
	}
	return best.ID, eta
}

// Release returns a responder to the available pool. Idempotent.
func (s *Store) Release(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.responders {
		if r.ID == id {
			r.Status = models.ResponderAvailable
			return true
		}
	}
	return false
}

// Snapshot copies the current fleet for the status surface.
func (s *Store) Snapshot() []models.Responder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Responder, 0, len(s.responders))
	for _, r := range s.responders {
		out = append(out, *r)
	}
	return out
}
