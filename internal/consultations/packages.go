package consultations

import "strconv"

// DefaultPackageKey is served when a request names an unknown package.
const DefaultPackageKey = "45-min"

// Package is a bookable consultation offering.
type Package struct {
	Key             string   `json:"key"`
	Title           string   `json:"title"`
	DurationMinutes int      `json:"duration_minutes"`
	PriceAmount     int      `json:"price_amount"`
	Price           string   `json:"price"`
	Features        []string `json:"features"`
}

var catalog = []Package{
	{
		Key:             "30-min",
		Title:           "30-Minute Quick Consultation",
		DurationMinutes: 30,
		PriceAmount:     1000,
		Price:           "₹1,000",
		Features: []string{
			"One specific compliance query",
			"Basic regulatory guidance",
			"Document review (up to 5 pages)",
			"Email follow-up summary",
		},
	},
	{
		Key:             "45-min",
		Title:           "45-Minute Standard Consultation",
		DurationMinutes: 45,
		PriceAmount:     1500,
		Price:           "₹1,500",
		Features: []string{
			"Multiple related queries",
			"Detailed regulatory analysis",
			"Document review (up to 15 pages)",
			"Written advice summary",
			"1-week email support",
		},
	},
	{
		Key:             "60-min",
		Title:           "60-Minute Comprehensive Consultation",
		DurationMinutes: 60,
		PriceAmount:     2000,
		Price:           "₹2,000",
		Features: []string{
			"Complex compliance scenarios",
			"Strategic planning session",
			"Document review (up to 30 pages)",
			"Detailed written recommendations",
			"2-week follow-up support",
		},
	},
}

// Packages returns the catalog in ascending duration.
func Packages() []Package {
	out := make([]Package, len(catalog))
	copy(out, catalog)
	return out
}

// LookupPackage resolves "30-min", "45-min" or "60-min" (a bare minute count
// is accepted too). Unknown keys fall back to the default package.
func LookupPackage(key string) (Package, bool) {
	if _, err := strconv.Atoi(key); err == nil {
		key += "-min"
	}
	for _, p := range catalog {
		if p.Key == key {
			return p, true
		}
	}
	for _, p := range catalog {
		if p.Key == DefaultPackageKey {
			return p, false
		}
	}
	return catalog[0], false
}
