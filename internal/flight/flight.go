package flight

import "math"

// Flight is the one canonical shape for a tracked arrival. Every oracle
// response shape is normalized into this at the ingestion boundary; nothing
// downstream ever sees raw API JSON.
type Flight struct {
	ID         string  `json:"id" bson:"id"`
	Callsign   string  `json:"callsign" bson:"callsign"`
	Origin     string  `json:"origin" bson:"origin"`
	Dest       string  `json:"dest" bson:"dest"`
	ETAMinutes float64 `json:"eta_minutes" bson:"eta_minutes"`
	DistanceNm float64 `json:"distance_nm,omitempty" bson:"distance_nm,omitempty"`
	Pos        *Point  `json:"pos,omitempty" bson:"pos,omitempty"`
	Landed     bool    `json:"landed" bson:"landed"`
}

// Point is a lat/lng pair.
type Point struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// SetETA clamps negative ETAs to zero before recording them.
func (f *Flight) SetETA(minutes float64) {
	f.ETAMinutes = math.Max(0, minutes)
}

// SetPos records a fresh reported position for bookkeeping. The motion model
// keeps its own visual anchor; this is the raw oracle-reported point.
func (f *Flight) SetPos(p Point) {
	f.Pos = &p
}

// Valid reports whether the flight is usable for a deal: it needs an
// identifier and a positive ETA. Position is optional (may be stale/absent).
func (f *Flight) Valid() bool {
	return f.ID != "" && f.ETAMinutes > 0
}

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points.
func DistanceKm(a, b Point) float64 {
	la1 := a.Lat * math.Pi / 180
	la2 := b.Lat * math.Pi / 180
	dLa := (b.Lat - a.Lat) * math.Pi / 180
	dLn := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLa/2)*math.Sin(dLa/2) +
		math.Cos(la1)*math.Cos(la2)*math.Sin(dLn/2)*math.Sin(dLn/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}
