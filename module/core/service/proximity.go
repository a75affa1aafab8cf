package service

import (
	"math"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
)

const (
	earthRadiusKm = 6371

	// AlertRadiusKm is the distance at or under which a consumer is alerted.
	AlertRadiusKm = 0.5
)

// Evaluate returns an alert when the sample is within AlertRadiusKm of the
// subscription's stop, and nil otherwise or when no stop is bound.
func Evaluate(sub *domain.Subscription, s *domain.PositionSample) *domain.ProximityAlert {
	if sub == nil || sub.Stop == nil {
		return nil
	}

	dist := Haversine(s.Lat, s.Lon, sub.Stop.Lat, sub.Stop.Lon)
	if !withinAlertRadius(dist) {
		return nil
	}
	return &domain.ProximityAlert{
		Subscription: *sub,
		Sample:       *s,
		DistanceKm:   dist,
	}
}

func withinAlertRadius(distKm float64) bool {
	return distKm <= AlertRadiusKm
}

// Haversine returns the great-circle distance in kilometres between two
// points given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
