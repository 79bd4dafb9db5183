package dataset

// Record is one ingested (country, city) tuple.
type Record struct {
	CountryCode string
	CityName    string
	Latitude    string
	Longitude   string
	Population  string
	Timezone    string
}

// Builder folds Records into a Dataset.
//
// Builder is not safe for concurrent use. After Build the builder must not
// be used again.
type Builder struct {
	countries    map[string]*Country
	countryCodes []string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		countries: make(map[string]*Country),
	}
}

// Add inserts or overwrites the city described by r.
//
// A repeated city name in the same country replaces the earlier record but
// keeps its original position in the listing order.
func (b *Builder) Add(r Record) {
	country, ok := b.countries[r.CountryCode]
	if !ok {
		country = &Country{
			Code:       r.CountryCode,
			cityByName: make(map[string]City),
		}
		b.countries[r.CountryCode] = country
		b.countryCodes = append(b.countryCodes, r.CountryCode)
	}

	if _, indexed := country.cityByName[r.CityName]; !indexed {
		country.CityNames = append(country.CityNames, r.CityName)
	}

	country.cityByName[r.CityName] = City{
		Name:       r.CityName,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Population: r.Population,
		Timezone:   r.Timezone,
	}
}

// Build returns the finished Dataset.
func (b *Builder) Build() *Dataset {
	ds := &Dataset{
		countries:    b.countries,
		countryCodes: b.countryCodes,
	}
	b.countries = nil
	b.countryCodes = nil
	return ds
}

// FromRecords builds a Dataset from an in-memory slice of records.
func FromRecords(records []Record) *Dataset {
	b := NewBuilder()
	for _, r := range records {
		b.Add(r)
	}
	return b.Build()
}
