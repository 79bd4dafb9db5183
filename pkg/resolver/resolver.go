// Package resolver classifies virtual paths against the dataset.
//
// The namespace is exactly two levels deep:
//
//	/                          Root
//	/<country display name>    CountryDir
//	/<country>/<city><ext>     CityFile
//
// Anything else is Unknown. Resolution is pure: it never generates content
// and never touches the network.
package resolver

import (
	"strings"

	"github.com/marmos91/cityfs/pkg/alias"
	"github.com/marmos91/cityfs/pkg/dataset"
)

// DefaultExtension is the suffix appended to city names in listings.
const DefaultExtension = ".txt"

// Separator is the virtual path separator.
const Separator = "/"

// Resolved is the result of resolving a path: one of Root, CountryDir,
// CityFile or Unknown.
type Resolved interface {
	resolved()
}

// Root is the filesystem root.
type Root struct{}

// CountryDir is a country directory.
type CountryDir struct {
	Code string
}

// CityFile is a city file.
type CityFile struct {
	Code string
	City string
}

// Unknown is any path that does not name an entry.
type Unknown struct{}

func (Root) resolved()       {}
func (CountryDir) resolved() {}
func (CityFile) resolved()   {}
func (Unknown) resolved()    {}

// Resolver maps virtual paths to dataset entries and back.
//
// A Resolver only holds read-only state and is safe for concurrent use.
type Resolver struct {
	dataset   *dataset.Dataset
	aliases   *alias.Table
	extension string
}

// New creates a Resolver. An empty extension uses DefaultExtension; a nil
// alias table uses alias.Identity.
func New(ds *dataset.Dataset, aliases *alias.Table, extension string) *Resolver {
	if extension == "" {
		extension = DefaultExtension
	}
	if aliases == nil {
		aliases = alias.Identity()
	}
	return &Resolver{
		dataset:   ds,
		aliases:   aliases,
		extension: extension,
	}
}

// Dataset returns the dataset the resolver works on.
func (r *Resolver) Dataset() *dataset.Dataset {
	return r.dataset
}

// Resolve classifies path.
func (r *Resolver) Resolve(path string) Resolved {
	trimmed := strings.TrimPrefix(path, Separator)
	if trimmed == "" {
		return Root{}
	}

	components := strings.Split(trimmed, Separator)
	switch len(components) {
	case 1:
		code, ok := r.countryCode(components[0])
		if !ok {
			return Unknown{}
		}
		return CountryDir{Code: code}

	case 2:
		code, ok := r.countryCode(components[0])
		if !ok {
			return Unknown{}
		}
		city, ok := r.cityName(components[1])
		if !ok {
			return Unknown{}
		}
		if _, exists := r.dataset.City(code, city); !exists {
			return Unknown{}
		}
		return CityFile{Code: code, City: city}

	default:
		return Unknown{}
	}
}

func (r *Resolver) countryCode(segment string) (string, bool) {
	if segment == "" {
		return "", false
	}
	code := r.aliases.DisplayNameToCode(segment)
	return code, r.dataset.HasCountry(code)
}

func (r *Resolver) cityName(segment string) (string, bool) {
	if !strings.HasSuffix(segment, r.extension) {
		return "", false
	}
	name := strings.TrimSuffix(segment, r.extension)
	return name, name != ""
}

// IsDirectory reports whether path resolves to the root or a country.
func (r *Resolver) IsDirectory(path string) bool {
	switch r.Resolve(path).(type) {
	case Root, CountryDir:
		return true
	default:
		return false
	}
}

// IsFile reports whether path resolves to a city file.
func (r *Resolver) IsFile(path string) bool {
	_, ok := r.Resolve(path).(CityFile)
	return ok
}

// CountryEntryName returns the directory entry name of a country.
func (r *Resolver) CountryEntryName(code string) string {
	return r.aliases.CodeToDisplayName(code)
}

// CityEntryName returns the file entry name of a city.
func (r *Resolver) CityEntryName(city string) string {
	return city + r.extension
}

// CountryPath returns the absolute virtual path of a country directory.
func (r *Resolver) CountryPath(code string) string {
	return Separator + r.CountryEntryName(code)
}

// CityPath returns the absolute virtual path of a city file.
func (r *Resolver) CityPath(code, city string) string {
	return r.CountryPath(code) + Separator + r.CityEntryName(city)
}

// UnreachableCodes returns the dataset codes whose listed directory name
// does not resolve back to them, in dataset order. This happens when an
// unaliased code equals another code's display name: both appear in the
// root listing under the same name and only the aliased one resolves.
func (r *Resolver) UnreachableCodes() []string {
	var codes []string
	for _, code := range r.dataset.CountryCodes() {
		if r.Resolve(r.CountryPath(code)) != (CountryDir{Code: code}) {
			codes = append(codes, code)
		}
	}
	return codes
}
