package schema

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// TimeStructure is the model's complete temporal definition: the year
// horizon plus the timeslice layout (season × day type × daily time
// bracket) and the derived split fractions.
type TimeStructure struct {
	Entity

	Years        []int
	Seasons      []string
	DayTypes     []string
	TimeBrackets []string
	Timeslices   []string

	// Each timeslice maps to exactly one member of each part set.
	TimesliceSeason  map[string]string
	TimesliceDayType map[string]string
	TimesliceBracket map[string]string

	// YearSplit is the fraction of year y covered by timeslice ts, keyed
	// timeslice then year; the fractions must sum to 1 within every
	// year. DaySplit and DaysInDayType are the intra-day analogues.
	YearSplit     map[string]map[string]float64
	DaySplit      map[string]float64
	DaysInDayType map[string]float64
}

// YearKeys returns the years as decimal strings, the key form used by
// every year-indexed tensor.
func (t *TimeStructure) YearKeys() []string {
	keys := make([]string, len(t.Years))
	for i, y := range t.Years {
		keys[i] = strconv.Itoa(y)
	}
	return keys
}

// ParseTimeStructure builds a TimeStructure from resolved configuration
// data, choosing a construction pathway by which fields are present:
// explicit timeslices; part lists; part counts; or years only.
func ParseTimeStructure(id string, body map[string]any) (*TimeStructure, error) {
	vs := &violations{entity: id}

	t := &TimeStructure{Entity: parseEntity(id, body)}

	t.Years = parseYears(body["years"], vs)

	switch {
	case body["timeslices"] != nil:
		parseFromTimeslices(t, body, vs)
	case isPartList(body["seasons"]) || isPartList(body["day_types"]) || isPartList(body["daily_time_brackets"]):
		parseFromParts(t, body, vs)
	case isCount(body["seasons"]) || isCount(body["daily_time_brackets"]):
		parseFromCounts(t, body, vs)
	default:
		parseYearsOnly(t)
	}

	applySplits(t, body, vs)
	validateStructure(t, vs)

	if err := vs.err(); err != nil {
		return nil, err
	}
	return t, nil
}

func parseYears(raw any, vs *violations) []int {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		vs.addf("years", "a non-empty list of years is required")
		return nil
	}
	years := make([]int, 0, len(items))
	for _, item := range items {
		y, ok := toInt(item)
		if !ok {
			vs.addf("years", "entry %v is not an integer year", item)
			continue
		}
		years = append(years, y)
	}
	for i := 1; i < len(years); i++ {
		if years[i] <= years[i-1] {
			vs.addf("years", "years must be strictly increasing: %d follows %d", years[i], years[i-1])
			break
		}
	}
	return years
}

func isPartList(v any) bool {
	_, ok := v.([]any)
	return ok
}

func isCount(v any) bool {
	_, ok := toInt(v)
	return v != nil && ok
}

// parseFromTimeslices uses explicitly declared timeslices, with optional
// timeslice→part mappings. Parts not described collapse to a single
// synthetic member.
func parseFromTimeslices(t *TimeStructure, body map[string]any, vs *violations) {
	t.Timeslices = stringList(body["timeslices"], vs, "timeslices")

	t.TimesliceSeason = partAssignment(t.Timeslices, body["timeslice_in_season"], "season", vs)
	t.TimesliceDayType = partAssignment(t.Timeslices, body["timeslice_in_daytype"], "day_type", vs)
	t.TimesliceBracket = partAssignment(t.Timeslices, body["timeslice_in_timebracket"], "time_bracket", vs)

	t.Seasons = distinctValues(t.TimesliceSeason)
	t.DayTypes = distinctValues(t.TimesliceDayType)
	t.TimeBrackets = distinctValues(t.TimesliceBracket)
}

// parseFromParts builds timeslices as the cross-product of the declared
// part lists, labels joined with a dash.
func parseFromParts(t *TimeStructure, body map[string]any, vs *violations) {
	t.Seasons = orSingle(stringList(body["seasons"], vs, "seasons"))
	t.DayTypes = orSingle(stringList(body["day_types"], vs, "day_types"))
	t.TimeBrackets = orSingle(stringList(body["daily_time_brackets"], vs, "daily_time_brackets"))

	t.TimesliceSeason = make(map[string]string)
	t.TimesliceDayType = make(map[string]string)
	t.TimesliceBracket = make(map[string]string)

	for _, season := range t.Seasons {
		for _, dayType := range t.DayTypes {
			for _, bracket := range t.TimeBrackets {
				label := joinParts(season, dayType, bracket, t)
				t.Timeslices = append(t.Timeslices, label)
				t.TimesliceSeason[label] = season
				t.TimesliceDayType[label] = dayType
				t.TimesliceBracket[label] = bracket
			}
		}
	}
}

// parseFromCounts synthesizes part labels from integer counts, mirroring
// the original's "3 seasons, 4 brackets" shorthand.
func parseFromCounts(t *TimeStructure, body map[string]any, vs *violations) {
	seasonCount, _ := toInt(body["seasons"])
	bracketCount, _ := toInt(body["daily_time_brackets"])
	if seasonCount < 1 {
		seasonCount = 1
	}
	if bracketCount < 1 {
		bracketCount = 1
	}

	for i := 1; i <= seasonCount; i++ {
		t.Seasons = append(t.Seasons, fmt.Sprintf("s%d", i))
	}
	for i := 1; i <= bracketCount; i++ {
		t.TimeBrackets = append(t.TimeBrackets, fmt.Sprintf("h%d", i))
	}
	t.DayTypes = []string{"1"}

	t.TimesliceSeason = make(map[string]string)
	t.TimesliceDayType = make(map[string]string)
	t.TimesliceBracket = make(map[string]string)
	for _, season := range t.Seasons {
		for _, bracket := range t.TimeBrackets {
			label := season + bracket
			t.Timeslices = append(t.Timeslices, label)
			t.TimesliceSeason[label] = season
			t.TimesliceDayType[label] = "1"
			t.TimesliceBracket[label] = bracket
		}
	}
}

// parseYearsOnly synthesizes the minimal temporal layout: one season,
// one day type, one bracket, one timeslice covering the whole year.
func parseYearsOnly(t *TimeStructure) {
	t.Seasons = []string{"1"}
	t.DayTypes = []string{"1"}
	t.TimeBrackets = []string{"1"}
	t.Timeslices = []string{"ANNUAL"}
	t.TimesliceSeason = map[string]string{"ANNUAL": "1"}
	t.TimesliceDayType = map[string]string{"ANNUAL": "1"}
	t.TimesliceBracket = map[string]string{"ANNUAL": "1"}
}

// applySplits reads explicit split fractions or defaults to equal
// shares.
func applySplits(t *TimeStructure, body map[string]any, vs *violations) {
	t.YearSplit = yearSplitOrEqual(body["year_split"], t.Timeslices, t.YearKeys(), vs)
	t.DaySplit = splitOrEqual(body["day_split"], t.TimeBrackets, "day_split", vs)
	t.DaysInDayType = splitOrEqual(body["days_in_day_type"], t.DayTypes, "days_in_day_type", vs)
}

// yearSplitOrEqual builds the (timeslice, year) split. A scalar per
// timeslice is replicated over every year; a nested mapping declares
// per-year fractions directly.
func yearSplitOrEqual(raw any, timeslices, years []string, vs *violations) map[string]map[string]float64 {
	if len(timeslices) == 0 || len(years) == 0 {
		return nil
	}
	out := make(map[string]map[string]float64, len(timeslices))
	if raw == nil {
		share := 1.0 / float64(len(timeslices))
		for _, ts := range timeslices {
			row := make(map[string]float64, len(years))
			for _, y := range years {
				row[y] = share
			}
			out[ts] = row
		}
		return out
	}
	m, ok := raw.(map[string]any)
	if !ok {
		vs.addf("year_split", "expected a mapping, got %T", raw)
		return nil
	}
	for key, val := range m {
		if !contains(timeslices, key) {
			vs.addf("year_split", "key %q is not a declared member", key)
			continue
		}
		row := make(map[string]float64, len(years))
		switch v := val.(type) {
		case map[string]any:
			for yk, yv := range v {
				if !contains(years, yk) {
					vs.addf("year_split", "key %q.%q is not a declared year", key, yk)
					continue
				}
				f, ok := toFloat(yv)
				if !ok {
					vs.addf("year_split", "value at %q.%q is not numeric: %v", key, yk, yv)
					continue
				}
				row[yk] = f
			}
		default:
			f, ok := toFloat(val)
			if !ok {
				vs.addf("year_split", "value at %q is not numeric: %v", key, val)
				continue
			}
			for _, y := range years {
				row[y] = f
			}
		}
		out[key] = row
	}
	return out
}

func splitOrEqual(raw any, members []string, field string, vs *violations) map[string]float64 {
	if len(members) == 0 {
		return nil
	}
	out := make(map[string]float64, len(members))
	if raw == nil {
		share := 1.0 / float64(len(members))
		for _, m := range members {
			out[m] = share
		}
		return out
	}
	m, ok := raw.(map[string]any)
	if !ok {
		vs.addf(field, "expected a mapping, got %T", raw)
		return nil
	}
	for key, val := range m {
		f, ok := toFloat(val)
		if !ok {
			vs.addf(field, "value at %q is not numeric: %v", key, val)
			continue
		}
		out[key] = f
	}
	for key := range out {
		if !contains(members, key) {
			vs.addf(field, "key %q is not a declared member", key)
		}
	}
	return out
}

func validateStructure(t *TimeStructure, vs *violations) {
	if len(t.Timeslices) == 0 {
		vs.addf("timeslices", "no timeslices could be derived")
		return
	}
	for _, ts := range t.Timeslices {
		if _, ok := t.TimesliceSeason[ts]; !ok {
			vs.addf("timeslice_in_season", "timeslice %q has no season", ts)
		}
		if _, ok := t.TimesliceDayType[ts]; !ok {
			vs.addf("timeslice_in_daytype", "timeslice %q has no day type", ts)
		}
		if _, ok := t.TimesliceBracket[ts]; !ok {
			vs.addf("timeslice_in_timebracket", "timeslice %q has no time bracket", ts)
		}
	}

	if t.YearSplit != nil {
		for _, y := range t.YearKeys() {
			total := 0.0
			for _, ts := range t.Timeslices {
				total += t.YearSplit[ts][y]
			}
			if math.Abs(total-1.0) > SumOneTolerance {
				vs.addf("year_split", "fractions for year %s sum to %g, expected 1.0", y, total)
			}
		}
	}
}

// --- small helpers ------------------------------------------------------

func partAssignment(timeslices []string, raw any, part string, vs *violations) map[string]string {
	out := make(map[string]string, len(timeslices))
	if raw == nil {
		for _, ts := range timeslices {
			out[ts] = "1"
		}
		return out
	}
	m, ok := raw.(map[string]any)
	if !ok {
		vs.addf("timeslice_in_"+part, "expected a mapping, got %T", raw)
		return out
	}
	for _, ts := range timeslices {
		val, ok := m[ts]
		if !ok {
			vs.addf("timeslice_in_"+part, "timeslice %q is not mapped", ts)
			continue
		}
		switch v := val.(type) {
		case string:
			out[ts] = v
		case int:
			out[ts] = strconv.Itoa(v)
		default:
			vs.addf("timeslice_in_"+part, "mapping for %q is not a label: %v", ts, val)
		}
	}
	return out
}

func distinctValues(m map[string]string) []string {
	seen := make(map[string]struct{}, len(m))
	var out []string
	for _, v := range m {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func orSingle(parts []string) []string {
	if len(parts) == 0 {
		return []string{"1"}
	}
	return parts
}

func joinParts(season, dayType, bracket string, t *TimeStructure) string {
	label := season
	if len(t.DayTypes) > 1 {
		label += "-" + dayType
	}
	if len(t.TimeBrackets) > 1 {
		label += "-" + bracket
	}
	return label
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
