package broadcast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regionYear(regions, years []string) []Dimension {
	return []Dimension{
		{Name: "region", Declared: regions},
		{Name: "year", Declared: years},
	}
}

func TestInferSets_DeclaredSetKeepsDeclaredOrder(t *testing.T) {
	t.Parallel()

	data := map[string]any{"R1": map[string]any{"2020": 1.0}}
	sets, err := InferSets(data, regionYear([]string{"R2", "R1"}, []string{"2020", "2021"}))
	require.NoError(t, err)

	assert.Equal(t, []string{"R2", "R1"}, sets[0])
	assert.Equal(t, []string{"2020", "2021"}, sets[1])
}

func TestInferSets_DeclaredSetRejectsUnknownKey(t *testing.T) {
	t.Parallel()

	// A key outside the declared set would survive expansion and then be
	// silently ignored by everything indexed on the declared members.
	data := map[string]any{
		"R1": map[string]any{"2020": 1.0},
		"R3": map[string]any{"*": 2.0},
	}
	_, err := InferSets(data, regionYear([]string{"R1", "R2"}, []string{"2020", "2021"}))

	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "region", berr.Dimension)
	assert.Contains(t, berr.Error(), `"R3"`)
}

func TestInferSets_UndeclaredDimensionUnionsConcreteKeys(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"a": map[string]any{"x": 1.0},
		"b": map[string]any{"y": 2.0},
	}
	sets, err := InferSets(data, []Dimension{{Name: "outer"}, {Name: "inner"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, sets[0])
	assert.Equal(t, []string{"x", "y"}, sets[1])
}

func TestInferSets_WildcardOnlyLevelCollapses(t *testing.T) {
	t.Parallel()

	data := map[string]any{"*": 5.0}
	sets, err := InferSets(data, []Dimension{{Name: "region"}})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1"}}, sets)
}

func TestInferSets_EmptyDimensionFails(t *testing.T) {
	t.Parallel()

	_, err := InferSets(map[string]any{}, []Dimension{{Name: "region"}})
	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "region", berr.Dimension)
}

func TestExpand_ScalarIsImplicitWildcard(t *testing.T) {
	t.Parallel()

	got := Expand(0.9, [][]string{{"R1", "R2"}, {"2020", "2021"}})
	want := map[string]any{
		"R1": map[string]any{"2020": 0.9, "2021": 0.9},
		"R2": map[string]any{"2020": 0.9, "2021": 0.9},
	}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestExpand_ConcreteBeatsWildcard(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"*":  1.0,
		"R2": 7.0,
	}
	got := Expand(data, [][]string{{"R1", "R2"}})
	want := map[string]any{"R1": 1.0, "R2": 7.0}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestExpand_InnerSpecificityWins(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"*": map[string]any{"*": 1.0, "2021": 3.0},
	}
	got := Expand(data, [][]string{{"R1"}, {"2020", "2021"}})
	want := map[string]any{
		"R1": map[string]any{"2020": 1.0, "2021": 3.0},
	}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestExpand_SparseConcreteKeysSurvive(t *testing.T) {
	t.Parallel()

	// Without a wildcard, only the declared coordinates carrying data
	// appear; missing ones stay absent rather than defaulting.
	data := map[string]any{"R1": 4.0}
	got := Expand(data, [][]string{{"R1", "R2"}})
	want := map[string]any{"R1": 4.0}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestExpand_WildcardDemandOverRegionsAndYears(t *testing.T) {
	t.Parallel()

	data := map[string]any{"*": map[string]any{"2020": 5.0, "2021": 6.0}}
	dims := regionYear([]string{"R1", "R2"}, []string{"2020", "2021"})

	sets, err := InferSets(data, dims)
	require.NoError(t, err)
	got := Expand(data, sets)

	want := map[string]any{
		"R1": map[string]any{"2020": 5.0, "2021": 6.0},
		"R2": map[string]any{"2020": 5.0, "2021": 6.0},
	}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestExpand_Idempotent(t *testing.T) {
	t.Parallel()

	data := map[string]any{"*": map[string]any{"2020": 2.0}}
	sets := [][]string{{"R1", "R2"}, {"2020"}}

	once := Expand(data, sets)
	twice := Expand(once, sets)
	assert.Empty(t, cmp.Diff(once, twice))
}
