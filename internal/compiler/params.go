package compiler

import "github.com/vk/voltgrid/internal/schema"

// Required-parameter lookups. A missing coordinate is a
// DimensionMismatchError, never a silent zero.

func get1(name string, m schema.R, a string) (float64, error) {
	if v, ok := m[a]; ok {
		return v, nil
	}
	return 0, &DimensionMismatchError{Parameter: name, Coordinate: []string{a}}
}

func get2(name string, m schema.RY, a, b string) (float64, error) {
	if inner, ok := m[a]; ok {
		if v, ok := inner[b]; ok {
			return v, nil
		}
	}
	return 0, &DimensionMismatchError{Parameter: name, Coordinate: []string{a, b}}
}

func get3(name string, m schema.RYS, a, b, c string) (float64, error) {
	if mid, ok := m[a]; ok {
		if inner, ok := mid[b]; ok {
			if v, ok := inner[c]; ok {
				return v, nil
			}
		}
	}
	return 0, &DimensionMismatchError{Parameter: name, Coordinate: []string{a, b, c}}
}

func getInt1(name string, m schema.RInt, a string) (int, error) {
	if v, ok := m[a]; ok {
		return v, nil
	}
	return 0, &DimensionMismatchError{Parameter: name, Coordinate: []string{a}}
}

// Optional-parameter lookups: absence means the bound or tag simply
// does not apply.

func opt1(m schema.R, a string) (float64, bool) {
	v, ok := m[a]
	return v, ok
}

func opt2(m schema.RY, a, b string) (float64, bool) {
	inner, ok := m[a]
	if !ok {
		return 0, false
	}
	v, ok := inner[b]
	return v, ok
}

func opt3(m schema.RYS, a, b, c string) (float64, bool) {
	mid, ok := m[a]
	if !ok {
		return 0, false
	}
	inner, ok := mid[b]
	if !ok {
		return 0, false
	}
	v, ok := inner[c]
	return v, ok
}

func flag2(m schema.RYBool, a, b string) bool {
	inner, ok := m[a]
	if !ok {
		return false
	}
	return inner[b]
}

func flag3(m schema.RRYBool, a, b, c string) bool {
	mid, ok := m[a]
	if !ok {
		return false
	}
	inner, ok := mid[b]
	if !ok {
		return false
	}
	return inner[c]
}
