package model

// Restaurant represents one row of the restaurant table.  The table is
// owned by another system; this service only reads it.
//
// Fields:
//
//	Name      – restaurant name (non-null).
//	Votes     – popularity count; nil when the column is NULL.
//	City      – city name; nil when the column is NULL.
//	Latitude  – nil when the row has no coordinates.
//	Longitude – nil when the row has no coordinates.
type Restaurant struct {
	Name      string   // restaurants.name
	Votes     *int64   // restaurants.votes (nullable)
	City      *string  // restaurants.city (nullable)
	Latitude  *float64 // restaurants.latitude (nullable)
	Longitude *float64 // restaurants.longitude (nullable)
}

// SearchResult is one row of a name/vote search.  A NULL city is returned
// as the empty string and a NULL vote count as zero.
type SearchResult struct {
	Name  string `json:"name"`
	Votes int64  `json:"votes"`
	City  string `json:"city"`
}

// Location is a restaurant that has both coordinates.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
