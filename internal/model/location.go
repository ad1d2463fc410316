package model

// LocationCandidate is a single search result. The provider guarantees no stable ID,
// so Key is used for display identity.
type LocationCandidate struct {
	ID      int64   `json:"id,omitempty"`
	Name    string  `json:"name"`
	Region  string  `json:"region,omitempty"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
	URL     string  `json:"url,omitempty"`
}

// Key returns the "name, country" display key.
func (c LocationCandidate) Key() string {
	if c.Country == "" {
		return c.Name
	}
	return c.Name + ", " + c.Country
}
