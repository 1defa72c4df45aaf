package versioning

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw      string
		expected Version
	}{
		{"1", Version{1, 0, 0, 0}},
		{"1.2", Version{1, 2, 0, 0}},
		{"1.2.3", Version{1, 2, 3, 0}},
		{"1.2.3.456", Version{1, 2, 3, 456}},
		{"11.5.4.112", Version{11, 5, 4, 112}},
		{"01.002", Version{1, 2, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, ok := Parse(tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestParse_NoResult(t *testing.T) {
	for _, raw := range []string{"", "abc", "1.2.3.4.5", "1.", ".1", "1..2", "v1.2", "1.2-beta", " 1.2", "1.2\n", "-1", "99999999999999999999"} {
		t.Run(raw, func(t *testing.T) {
			_, ok := Parse(raw)
			assert.False(t, ok)
		})
	}
}

func TestParseVersion_Error(t *testing.T) {
	_, err := ParseVersion("abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnparsableVersion))

	v, err := ParseVersion("2.1")
	require.NoError(t, err)
	assert.Equal(t, 2, v.Major())
	assert.Equal(t, 1, v.Minor())
	assert.Equal(t, 0, v.Patch())
	assert.Equal(t, 0, v.Build())
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("x.y") })
}

func TestCompatible(t *testing.T) {
	compatible := [][2]string{
		{"1.1.1.1", "1.1.1.2"},
		{"1.2.3.100", "1.2.3.200"},
		{"1.0.0.1", "1.0.0.999"},
		{"1.0.0", "1.0.0.7"},
		{"1", "1.0.0.0"},
		{"2.3.4.5", "2.3.4.5"},
	}
	for _, c := range compatible {
		assert.True(t, Compatible(c[0], c[1]), "should be compatible: %s vs %s", c[0], c[1])
	}

	incompatible := [][2]string{
		{"1.1.1.1", "1.1.2.1"},
		{"1.2.3.100", "1.2.4.100"},
		{"1.0.0.1", "2.0.0.1"},
		{"1.1.1.1", "1.2.0.1"},
		{"abc", "abc"},
		{"", "1.0"},
		{"1.0", "1.0.0.0.0"},
	}
	for _, c := range incompatible {
		assert.False(t, Compatible(c[0], c[1]), "should be incompatible: %s vs %s", c[0], c[1])
	}
}

func TestCompatible_Symmetric(t *testing.T) {
	samples := []string{"1", "1.1", "1.1.1", "1.1.1.1", "1.1.1.2", "1.1.2.1", "2.0", "abc", "", "1.2.3.4.5"}
	for _, a := range samples {
		for _, b := range samples {
			assert.Equal(t, Compatible(a, b), Compatible(b, a), "%q vs %q", a, b)
		}
	}
}

func TestCompare(t *testing.T) {
	assert.Equal(t, 0, MustParse("1.2.3").Compare(MustParse("1.2.3.0")))
	assert.Equal(t, -1, MustParse("1.2.3.4").Compare(MustParse("1.2.3.5")))
	assert.Equal(t, 1, MustParse("2").Compare(MustParse("1.9.9.9")))
}

func TestMatchConstraint(t *testing.T) {
	ok, err := MatchConstraint("1.2.3.456", "~1.2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = MatchConstraint("1.3.0.1", "~1.2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = MatchConstraint("abc", "*")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = MatchConstraint("1.0", "not a constraint")
	assert.Error(t, err)
}

func TestSortDescending(t *testing.T) {
	raws := []string{"1.2", "abc", "1.10.0.1", "1.9", "1.10.0.2", "zzz"}
	SortDescending(raws)
	assert.Equal(t, []string{"1.10.0.2", "1.10.0.1", "1.9", "1.2", "zzz", "abc"}, raws)
}
