package alias

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin_IsBijective(t *testing.T) {
	table := Builtin()
	require.Equal(t, len(iso3166), table.Len())

	for code, name := range iso3166 {
		assert.Equal(t, name, table.CodeToDisplayName(code))
		assert.Equal(t, code, table.DisplayNameToCode(name))
		assert.NotContains(t, name, "/")
	}
}

func TestMutualInverse(t *testing.T) {
	table, err := New(map[string]string{"AU": "Australia", "NZ": "New Zealand"})
	require.NoError(t, err)

	for _, code := range []string{"AU", "NZ"} {
		assert.Equal(t, code, table.DisplayNameToCode(table.CodeToDisplayName(code)))
	}
	for _, name := range []string{"Australia", "New Zealand"} {
		assert.Equal(t, name, table.CodeToDisplayName(table.DisplayNameToCode(name)))
	}
}

func TestAliasOrIdentity(t *testing.T) {
	table, err := New(map[string]string{"AU": "Australia"})
	require.NoError(t, err)

	t.Run("aliased", func(t *testing.T) {
		name, ok := table.LookupName("AU")
		assert.True(t, ok)
		assert.Equal(t, "Australia", name)

		code, ok := table.LookupCode("Australia")
		assert.True(t, ok)
		assert.Equal(t, "AU", code)
	})

	t.Run("passthrough", func(t *testing.T) {
		_, ok := table.LookupName("XX")
		assert.False(t, ok)
		assert.Equal(t, "XX", table.CodeToDisplayName("XX"))

		_, ok = table.LookupCode("Atlantis")
		assert.False(t, ok)
		assert.Equal(t, "Atlantis", table.DisplayNameToCode("Atlantis"))
	})

	t.Run("raw code passes through name lookup", func(t *testing.T) {
		assert.Equal(t, "AU", table.DisplayNameToCode("AU"))
	})
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		pairs map[string]string
	}{
		{name: "empty code", pairs: map[string]string{"": "Nowhere"}},
		{name: "empty name", pairs: map[string]string{"AU": ""}},
		{name: "separator in name", pairs: map[string]string{"AU": "Aus/tralia"}},
		{name: "shared name", pairs: map[string]string{"CG": "Congo", "CD": "Congo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.pairs)
			assert.Error(t, err)
		})
	}
}

func TestIdentity(t *testing.T) {
	table := Identity()
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, "AU", table.CodeToDisplayName("AU"))
	assert.Equal(t, "Australia", table.DisplayNameToCode("Australia"))
}

func TestLoadGeonamesCountryInfo(t *testing.T) {
	input := strings.Join([]string{
		"# GeoNames country info",
		"#ISO\tISO3\tISO-Numeric\tfips\tCountry\tCapital",
		"AU\tAUS\t036\tAS\tAustralia\tCanberra\t7686850\t25649985\tOC\t.au\tAUD\tDollar\t61\t\t\ten-AU\t2077456\t\t",
		"NZ\tNZL\t554\tNZ\tNew Zealand\tWellington\t268680\t4885500\tOC\t.nz\tNZD\tDollar\t64\t####\t^(\\d{4})$\ten-NZ,mi\t2186224\t\t",
		"XX\tshort",
		"0\tXXX\t000\t\tPlaceholder\t",
		"",
	}, "\n")

	table, err := LoadGeonamesCountryInfo(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "Australia", table.CodeToDisplayName("AU"))
	assert.Equal(t, "NZ", table.DisplayNameToCode("New Zealand"))
}

func TestLoadGeonamesCountryInfo_DuplicateName(t *testing.T) {
	input := "AA\tAAA\t1\t\tSame\n" +
		"BB\tBBB\t2\t\tSame\n"

	_, err := LoadGeonamesCountryInfo(strings.NewReader(input))
	assert.Error(t, err)
}
