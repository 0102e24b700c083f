package geofence

import (
	"math"

	"SafeTrail/internal/models"
	"SafeTrail/pkg/i18n"
	"SafeTrail/pkg/metrics"
)

// earthRadiusKm for great-circle distances.
const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometers between two
// coordinates.
func Haversine(a, b models.Coordinate) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// Engine evaluates coordinates against the configured zone set.
type Engine struct {
	zones *ZoneStore
	i18n  *i18n.I18nSupport
}

func NewEngine(zones *ZoneStore, translator *i18n.I18nSupport) *Engine {
	return &Engine{zones: zones, i18n: translator}
}

// Evaluate returns one alert per active zone whose radius contains the
// coordinate, boundary inclusive. Danger and red zones are checked
// independently and may both fire for the same point. No suppression:
// every update inside a zone re-fires its alert.
func (e *Engine) Evaluate(coord models.Coordinate, lang string) []models.ZoneAlert {
	var alerts []models.ZoneAlert

	for _, zone := range e.zones.Active() {
		distance := Haversine(coord, zone.Center)
		if distance > zone.RadiusKm {
			continue
		}

		key := "danger_zone"
		if zone.Category == models.ZoneRed {
			key = "red_zone_alert"
		}

		message := key
		if e.i18n != nil {
			message = e.i18n.T(lang, key, nil)
		}

		alerts = append(alerts, models.ZoneAlert{
			Zone:       zone,
			Category:   zone.Category,
			DistanceKm: distance,
			MessageKey: key,
			Message:    message,
		})
		metrics.ZoneAlertsTotal.WithLabelValues(zone.Category).Inc()
	}

	return alerts
}
