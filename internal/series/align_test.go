package series

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestAlignIntersect(t *testing.T) {
	primary := []Point{{"2012", 3}, {"2010", 1}, {"2011", 2}}
	secondary := []Point{{"2011", 20}, {"2013", 40}, {"2010", 10}}

	got := Align(primary, secondary, Intersect)

	want := Aligned{
		Years:     []string{"2010", "2011"},
		Primary:   []float64{1, 2},
		Secondary: []*float64{ptr(10), ptr(20)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Align mismatch (-want +got):\n%s", diff)
	}
}

func TestAlignUnion(t *testing.T) {
	primary := []Point{{"2011", 2}, {"2009", 0}, {"2010", 1}}
	secondary := []Point{{"2010", 5}, {"2015", 9}}

	got := Align(primary, secondary, Union)

	assert.Equal(t, []string{"2009", "2010", "2011"}, got.Years)
	assert.Equal(t, []float64{0, 1, 2}, got.Primary)
	require.Len(t, got.Secondary, 3)
	assert.Nil(t, got.Secondary[0])
	assert.Equal(t, 5.0, *got.Secondary[1])
	assert.Nil(t, got.Secondary[2])
	assert.Equal(t, []float64{0, 5, 0}, got.SecondaryOr(0))
}

func TestAlignNoOverlap(t *testing.T) {
	got := Align([]Point{{"2001", 1}}, []Point{{"2002", 2}}, Intersect)

	assert.Equal(t, 0, got.Len())
	assert.NotNil(t, got.Years)
	assert.Empty(t, got.Primary)
	assert.Empty(t, got.Secondary)

	empty := Align(nil, nil, Union)
	assert.Equal(t, 0, empty.Len())
}

func TestAlignNumericYearLookup(t *testing.T) {
	primary := []Point{{"10", 1}, {"9", 2}}
	secondary := []Point{{"09", 20}, {"10", 10}}

	got := Align(primary, secondary, Intersect)

	assert.Equal(t, []string{"9", "10"}, got.Years)
	assert.Equal(t, []float64{2, 1}, got.Primary)
	assert.Equal(t, []float64{20, 10}, got.SecondaryOr(0))
}

func TestAlignDuplicateYearsFirstWins(t *testing.T) {
	got := Align([]Point{{"2010", 1}, {"2010", 99}}, []Point{{"2010", 5}, {"2010", 50}}, Intersect)

	assert.Equal(t, []string{"2010"}, got.Years)
	assert.Equal(t, []float64{1}, got.Primary)
	assert.Equal(t, []float64{5}, got.SecondaryOr(0))
}

func TestAlignYearSetProperties(t *testing.T) {
	primary := []Point{{"2001", 1}, {"2003", 3}, {"2005", 5}, {"2007", 7}}
	secondary := []Point{{"2003", 0}, {"2004", 0}, {"2007", 0}, {"2008", 0}}

	inter := Align(primary, secondary, Intersect)
	assert.ElementsMatch(t, []string{"2003", "2007"}, inter.Years)

	union := Align(primary, secondary, Union)
	assert.ElementsMatch(t, Keys(primary), union.Years)
	for i, y := range union.Years {
		if y == "2001" || y == "2005" {
			assert.Nil(t, union.Secondary[i], y)
		} else {
			assert.NotNil(t, union.Secondary[i], y)
		}
	}
}

func TestAlignMany(t *testing.T) {
	primary := []Point{{"2017", 1}, {"2014", 2}, {"2021", 3}}
	a := []Point{{"2014", 10}, {"2017", 20}}
	b := []Point{{"2017", 200}, {"2021", 300}}

	inter := AlignMany(primary, Intersect, a, b)
	assert.Equal(t, []string{"2017"}, inter.Years)
	assert.Equal(t, 20.0, *inter.Secondary[0][0])
	assert.Equal(t, 200.0, *inter.Secondary[1][0])

	union := AlignMany(primary, Union, a, b)
	assert.Equal(t, []string{"2014", "2017", "2021"}, union.Years)
	assert.Nil(t, union.Secondary[0][2])
	assert.Nil(t, union.Secondary[1][0])
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("union")
	require.NoError(t, err)
	assert.Equal(t, Union, m)
	assert.Equal(t, "intersect", Intersect.String())

	_, err = ParseMode("outer")
	assert.Error(t, err)
}
