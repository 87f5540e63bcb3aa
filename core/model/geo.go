package model

import "math"

// earthRadiusKM is the mean Earth radius used for great-circle distances.
const earthRadiusKM = 6371.0

// Coordinate is a WGS84 position.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceKM returns the great-circle distance to o in kilometers using the
// haversine formula.
func (c Coordinate) DistanceKM(o Coordinate) float64 {
	lat1 := c.Lat * math.Pi / 180
	lat2 := o.Lat * math.Pi / 180
	dLat := (o.Lat - c.Lat) * math.Pi / 180
	dLng := (o.Lng - c.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
