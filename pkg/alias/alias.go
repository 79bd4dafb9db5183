// Package alias maps dataset country codes to the display names used as
// path segments, and back.
//
// Lookups follow the AliasOrIdentity policy: a code (or name) without an
// alias entry is returned unchanged. This lets datasets with unknown codes
// still be browsed, at the price of an ambiguity: a path segment equal to a
// raw code resolves even when that code also has a display name.
package alias

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Table is a bijective mapping between country codes and display names.
//
// Tables are immutable after construction and safe for concurrent use.
type Table struct {
	codeToName map[string]string
	nameToCode map[string]string
}

// New builds a Table from code → display name pairs.
//
// It fails if a code or name is empty, if a name contains '/', or if two
// codes share the same display name (the mapping would not be invertible).
func New(pairs map[string]string) (*Table, error) {
	t := &Table{
		codeToName: make(map[string]string, len(pairs)),
		nameToCode: make(map[string]string, len(pairs)),
	}

	for code, name := range pairs {
		if err := t.add(code, name); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (t *Table) add(code, name string) error {
	if code == "" || name == "" {
		return fmt.Errorf("alias: empty code or name (%q → %q)", code, name)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("alias: display name %q contains a path separator", name)
	}
	if existing, ok := t.codeToName[code]; ok && existing != name {
		return fmt.Errorf("alias: code %q mapped to both %q and %q", code, existing, name)
	}
	if existing, ok := t.nameToCode[name]; ok && existing != code {
		return fmt.Errorf("alias: display name %q shared by codes %q and %q", name, existing, code)
	}

	t.codeToName[code] = name
	t.nameToCode[name] = code
	return nil
}

// Identity returns a table without entries; every lookup passes through.
func Identity() *Table {
	return &Table{
		codeToName: map[string]string{},
		nameToCode: map[string]string{},
	}
}

// AliasOrIdentity returns the alias of key in m, or key itself when m has
// no entry for it.
func AliasOrIdentity(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return key
}

// CodeToDisplayName returns the display name for code, or code unchanged.
func (t *Table) CodeToDisplayName(code string) string {
	return AliasOrIdentity(t.codeToName, code)
}

// DisplayNameToCode returns the code for name, or name unchanged.
func (t *Table) DisplayNameToCode(name string) string {
	return AliasOrIdentity(t.nameToCode, name)
}

// LookupName returns the display name for code and whether it was aliased.
func (t *Table) LookupName(code string) (string, bool) {
	name, ok := t.codeToName[code]
	return name, ok
}

// LookupCode returns the code for a display name and whether it was aliased.
func (t *Table) LookupCode(name string) (string, bool) {
	code, ok := t.nameToCode[name]
	return code, ok
}

// Len returns the number of alias entries.
func (t *Table) Len() int {
	return len(t.codeToName)
}

// geonamesFields is the column count of geonames countryInfo.txt.
const geonamesFields = 19

// LoadGeonamesCountryInfo builds a Table from a geonames countryInfo.txt
// stream (tab separated, '#' comments, ISO code in column 0 and country
// name in column 4).
//
// Rows whose name collides with an earlier row are rejected as an error,
// since the resulting table would not be invertible.
func LoadGeonamesCountryInfo(r io.Reader) (*Table, error) {
	t := Identity()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		fields := strings.SplitN(line, "\t", geonamesFields)
		if len(fields) < 5 || fields[0] == "" || fields[0] == "0" {
			continue
		}

		name := strings.ReplaceAll(strings.TrimSpace(fields[4]), "/", "-")
		if err := t.add(strings.TrimSpace(fields[0]), name); err != nil {
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read country info: %w", err)
	}

	return t, nil
}
