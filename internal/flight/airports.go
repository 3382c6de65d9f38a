package flight

// Airport is a destination the game can deal arrivals for.
type Airport struct {
	IATA string
	Name string
	Pos  Point
}

// Airports covers the destinations plus the origin pool used by the sim
// dealer. Coordinates only need to be good enough for the landing-distance
// gate and the map interpolation.
var Airports = map[string]Airport{
	"JFK": {"JFK", "New York", Point{40.6413, -73.7781}},
	"EWR": {"EWR", "Newark", Point{40.6895, -74.1745}},
	"LGA": {"LGA", "New York", Point{40.7769, -73.8740}},
	"DEN": {"DEN", "Denver", Point{39.8561, -104.6737}},
	"LAX": {"LAX", "Los Angeles", Point{33.9416, -118.4085}},
	"ORD": {"ORD", "Chicago", Point{41.9742, -87.9073}},
	"DFW": {"DFW", "Dallas", Point{32.8998, -97.0403}},
	"MIA": {"MIA", "Miami", Point{25.7959, -80.2870}},
	"ATL": {"ATL", "Atlanta", Point{33.6407, -84.4277}},
	"BOS": {"BOS", "Boston", Point{42.3656, -71.0096}},
	"SEA": {"SEA", "Seattle", Point{47.4502, -122.3088}},
	"SFO": {"SFO", "San Francisco", Point{37.6213, -122.3790}},
	"PHX": {"PHX", "Phoenix", Point{33.4343, -112.0116}},
	"LAS": {"LAS", "Las Vegas", Point{36.0840, -115.1537}},
	"IAD": {"IAD", "Washington", Point{38.9531, -77.4565}},
}

// originPool mirrors the origin city codes arrivals get dealt from.
var originPool = []string{
	"PIT", "YYZ", "ORD", "DFW", "MIA", "ATL", "DTW", "BOS", "IAD", "LAX",
	"PHX", "CLT", "SEA", "DEN", "SFO", "MSP", "PHL", "BNA", "BWI", "HOU",
	"YUL", "YOW", "YVR", "LAS", "SLC", "RDU", "STL", "CMH", "CLE", "MCI",
}

// DealCandidates is the airport search order when the caller's choice
// produces no viable arrivals.
var DealCandidates = []string{"JFK", "EWR", "LGA", "ORD", "ATL", "DEN", "LAX"}

// DestPos resolves an IATA code to coordinates. Unknown codes fall back to
// JFK so interpolation always has a fixed endpoint.
func DestPos(iata string) Point {
	if a, ok := Airports[iata]; ok {
		return a.Pos
	}
	return Airports["JFK"].Pos
}

// DestName resolves an IATA code to a display name, falling back to the code.
func DestName(iata string) string {
	if a, ok := Airports[iata]; ok {
		return a.Name
	}
	return iata
}
