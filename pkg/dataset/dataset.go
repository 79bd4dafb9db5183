// Package dataset holds the immutable in-memory index of countries and
// cities served by cityfs.
//
// A Dataset is built once at startup by folding ingested Records through a
// Builder and is never mutated afterwards, so it can be shared between
// goroutines without synchronization.
package dataset

// City is a single city as ingested from the source. All fields are kept
// verbatim; coordinates are not parsed.
type City struct {
	Name       string
	Latitude   string
	Longitude  string
	Population string
	Timezone   string
}

// Country groups the cities of one country code.
type Country struct {
	// Code is the dataset's native key (an ISO 3166 alpha-2 code for
	// geonames-derived files).
	Code string

	// CityNames lists city names in discovery order, without duplicates.
	CityNames []string

	cityByName map[string]City
}

// City looks up a city by its name.
func (c *Country) City(name string) (City, bool) {
	city, ok := c.cityByName[name]
	return city, ok
}

// Len returns the number of distinct cities in the country.
func (c *Country) Len() int {
	return len(c.CityNames)
}

// Dataset is the read-only index of all countries.
//
// Invariant: every code in countryCodes has exactly one entry in countries
// and vice versa.
type Dataset struct {
	countries    map[string]*Country
	countryCodes []string
}

// Country looks up a country by code.
func (d *Dataset) Country(code string) (*Country, bool) {
	c, ok := d.countries[code]
	return c, ok
}

// HasCountry reports whether code is present.
func (d *Dataset) HasCountry(code string) bool {
	_, ok := d.countries[code]
	return ok
}

// City looks up a city by country code and city name.
func (d *Dataset) City(code, name string) (City, bool) {
	c, ok := d.countries[code]
	if !ok {
		return City{}, false
	}
	return c.City(name)
}

// CountryCodes returns the country codes in discovery order.
// The returned slice must not be modified.
func (d *Dataset) CountryCodes() []string {
	return d.countryCodes
}

// Len returns the number of countries.
func (d *Dataset) Len() int {
	return len(d.countryCodes)
}

// CityCount returns the total number of cities across all countries.
func (d *Dataset) CityCount() int {
	n := 0
	for _, c := range d.countries {
		n += c.Len()
	}
	return n
}
