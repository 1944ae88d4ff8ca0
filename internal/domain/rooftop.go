package domain

// Rooftop is one assessed building roof with its solar-potential attributes.
// Field names follow the dataset's snake_case JSON.
type Rooftop struct {
	ID                  string  `json:"id" yaml:"id"`
	Address             string  `json:"address" yaml:"address"`
	Latitude            float64 `json:"latitude" yaml:"latitude"`
	Longitude           float64 `json:"longitude" yaml:"longitude"`
	AreaM2              float64 `json:"area_m2" yaml:"area_m2"`
	EstimatedPanels     int     `json:"estimated_panels" yaml:"estimated_panels"`
	AnnualGenerationMWh float64 `json:"annual_generation_mwh" yaml:"annual_generation_mwh"`
	RoofType            string  `json:"roof_type" yaml:"roof_type"`
	SunHoursPerDay      float64 `json:"sun_hours_per_day" yaml:"sun_hours_per_day"`
	ContactReady        bool    `json:"contact_ready" yaml:"contact_ready"`
	Notes               string  `json:"notes" yaml:"notes"`
}

// Location returns the rooftop's coordinates as a Point.
func (r Rooftop) Location() Point {
	return Point{Lat: r.Latitude, Lng: r.Longitude}
}

// FindRooftop returns the rooftop with the given id.
func FindRooftop(rooftops []Rooftop, id string) (Rooftop, bool) {
	for _, r := range rooftops {
		if r.ID == id {
			return r, true
		}
	}
	return Rooftop{}, false
}

// Partner is an installer or consultancy listed in the partner directory.
type Partner struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Specialty string   `json:"specialty" yaml:"specialty"`
	Coverage  string   `json:"coverage" yaml:"coverage"`
	Phone     string   `json:"phone" yaml:"phone"`
	Email     string   `json:"email" yaml:"email"`
	Languages []string `json:"languages" yaml:"languages"`
}
