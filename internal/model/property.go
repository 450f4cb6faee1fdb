package model

// PropertyRecord represents the validated facts of a single listing.
// It is immutable once attached to a session. Numeric fields that the
// listing page does not state are nil, never zero.
type PropertyRecord struct {
	URL             string   `json:"url" binding:"required"`
	Title           *string  `json:"title,omitempty"`
	PropertyType    *string  `json:"property_type,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	Address         string   `json:"address" binding:"required"`
	Bedrooms        *int     `json:"bedrooms,omitempty"`
	Bathrooms       *int     `json:"bathrooms,omitempty"`
	Parking         *int     `json:"parking,omitempty"`
	PropertySizeSqm *float64 `json:"property_size_sqm,omitempty"`
	LandSizeSqm     *float64 `json:"land_size_sqm,omitempty"`
	Description     *string  `json:"description,omitempty"`
	Images          []string `json:"images,omitempty"`
	AgencyName      *string  `json:"agency_name,omitempty"`
	AgentName       *string  `json:"agent_name,omitempty"`
	InspectionTimes []string `json:"inspection_times,omitempty"`
}

// DistanceSnapshot holds categorized travel data from the property to
// points of interest. Categories are fixed fields (not a map) so that
// iteration order is deterministic when the snapshot is rendered into
// a prompt.
type DistanceSnapshot struct {
	Work      []LocationDistance `json:"work,omitempty"`
	Groceries []LocationDistance `json:"groceries,omitempty"`
	Schools   []LocationDistance `json:"schools,omitempty"`
}

// Empty reports whether the snapshot contains no destinations at all.
func (d *DistanceSnapshot) Empty() bool {
	return d == nil || (len(d.Work) == 0 && len(d.Groceries) == 0 && len(d.Schools) == 0)
}

// LocationDistance describes one destination: its routed distance and
// the travel-time estimate per transport mode. Any of these may be
// absent when the upstream lookup fails for that mode.
type LocationDistance struct {
	Destination string      `json:"destination"`
	Distance    *Distance   `json:"distance,omitempty"`
	Modes       TravelModes `json:"modes"`
}

// Distance is a routed distance with a human-readable rendering.
type Distance struct {
	Text   string `json:"text"`
	Meters int    `json:"meters"`
}

// TravelModes holds the per-mode travel-time estimates.
type TravelModes struct {
	Driving *TravelTime `json:"driving,omitempty"`
	Transit *TravelTime `json:"transit,omitempty"`
	Walking *TravelTime `json:"walking,omitempty"`
}

// TravelTime is a travel-time estimate with a human-readable rendering.
type TravelTime struct {
	Text    string `json:"text"`
	Seconds int    `json:"seconds"`
}
