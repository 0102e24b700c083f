package geofence

import (
	"sync"

	"SafeTrail/internal/models"
	"SafeTrail/pkg/errors"
)

// ZoneStore owns the configured zone set. Zones are read-only to the
// engine; replacement is all-or-nothing through the admin surface.
type ZoneStore struct {
	mu    sync.RWMutex
	zones map[string][]models.Zone // keyed by category
}

func NewZoneStore() *ZoneStore {
	return &ZoneStore{zones: map[string][]models.Zone{
		models.ZoneDanger: nil,
		models.ZoneRed:    nil,
	}}
}

// SeedDefaults installs the initial hazard configuration.
func SeedDefaults(s *ZoneStore) {
	_ = s.Replace(models.ZoneDanger, []models.Zone{
		{ID: 1, Name: "High Crime Area", Center: models.Coordinate{Lat: 19.0760, Lng: 72.8777}, RadiusKm: 2, Category: models.ZoneDanger, Severity: "high", Active: true},
		{ID: 2, Name: "Flood Zone", Center: models.Coordinate{Lat: 28.7041, Lng: 77.1025}, RadiusKm: 5, Category: models.ZoneDanger, Severity: "critical", Active: true},
	})
	_ = s.Replace(models.ZoneRed, []models.Zone{
		{ID: 1, Name: "Earthquake Zone", Center: models.Coordinate{Lat: 34.0522, Lng: -118.2437}, RadiusKm: 10, Category: models.ZoneRed, Severity: "critical", Active: true},
	})
}

// List returns the zones of one category.
func (s *ZoneStore) List(category string) []models.Zone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Zone, len(s.zones[category]))
	copy(out, s.zones[category])
	return out
}

// Active returns every active zone across categories.
func (s *ZoneStore) Active() []models.Zone {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Zone
	for _, zones := range s.zones {
		for _, z := range zones {
			if z.Active {
				out = append(out, z)
			}
		}
	}
	return out
}

// Replace swaps the full zone set of one category. A malformed payload
// rejects the whole replacement and the previous set stays in force.
func (s *ZoneStore) Replace(category string, zones []models.Zone) error {
	if category != models.ZoneDanger && category != models.ZoneRed {
		return errors.WithCodef(errors.CodeZoneConfigInvalid, "unknown zone category %q", category)
	}

	seen := make(map[int]bool, len(zones))
	for _, z := range zones {
		if z.Name == "" {
			return errors.WithCode(errors.CodeZoneConfigInvalid, "zone name must not be empty")
		}
		if z.RadiusKm <= 0 {
			return errors.WithCodef(errors.CodeZoneConfigInvalid, "zone %q radius must be positive", z.Name)
		}
		if z.Center.Lat < -90 || z.Center.Lat > 90 || z.Center.Lng < -180 || z.Center.Lng > 180 {
			return errors.WithCodef(errors.CodeZoneConfigInvalid, "zone %q center out of range", z.Name)
		}
		if z.Category != category {
			return errors.WithCodef(errors.CodeZoneConfigInvalid, "zone %q category %q does not match %q", z.Name, z.Category, category)
		}
		if seen[z.ID] {
			return errors.WithCodef(errors.CodeZoneConfigInvalid, "duplicate zone id %d", z.ID)
		}
		seen[z.ID] = true
	}

	replacement := make([]models.Zone, len(zones))
	copy(replacement, zones)

	s.mu.Lock()
	s.zones[category] = replacement
	s.mu.Unlock()
	return nil
}
