package domain

// Mall is the read-only slice of a shopping_malls row the geofence core needs.
type Mall struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (m Mall) HasCoordinates() bool {
	return m.Latitude != nil && m.Longitude != nil
}
