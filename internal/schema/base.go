// Package schema defines the typed model entities and their two-phase
// construction: a field-level parse with central defaults, followed by
// composition (wildcard broadcasting against the model's index sets) and
// a validation pass that accumulates every violation before failing.
package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vk/voltgrid/internal/broadcast"
)

// Tolerance within which fractional mappings must sum to one.
const SumOneTolerance = 1e-6

// Violation is a single broken constraint on one entity field.
type Violation struct {
	Entity  string
	Field   string
	Message string
}

func (v Violation) String() string {
	if v.Field == "" {
		return fmt.Sprintf("%s: %s", v.Entity, v.Message)
	}
	return fmt.Sprintf("%s.%s: %s", v.Entity, v.Field, v.Message)
}

// ValidationError carries every violation found for an entity (or for
// the model as a whole), so configuration authors fix them in one pass.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("%d validation violation(s): %s", len(e.Violations), strings.Join(msgs, "; "))
}

// violations accumulates per-entity constraint failures.
type violations struct {
	entity string
	list   []Violation
}

func (vs *violations) addf(field, format string, args ...any) {
	vs.list = append(vs.list, Violation{
		Entity:  vs.entity,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

func (vs *violations) merge(err error) {
	if err == nil {
		return
	}
	if ve, ok := err.(*ValidationError); ok {
		vs.list = append(vs.list, ve.Violations...)
		return
	}
	vs.list = append(vs.list, Violation{Entity: vs.entity, Message: err.Error()})
}

// mergeField is merge with the field attributed, for errors raised
// while composing a known field.
func (vs *violations) mergeField(field string, err error) {
	if err == nil {
		return
	}
	if ve, ok := err.(*ValidationError); ok {
		vs.list = append(vs.list, ve.Violations...)
		return
	}
	vs.list = append(vs.list, Violation{Entity: vs.entity, Field: field, Message: err.Error()})
}

func (vs *violations) err() error {
	if len(vs.list) == 0 {
		return nil
	}
	return &ValidationError{Violations: vs.list}
}

// Entity carries the identity fields shared by every model object.
type Entity struct {
	ID          string
	LongName    string
	Description string
}

func parseEntity(id string, body map[string]any) Entity {
	e := Entity{ID: id, LongName: id, Description: "No description provided."}
	if v, ok := body["long_name"].(string); ok {
		e.LongName = v
	}
	if v, ok := body["description"].(string); ok {
		e.Description = v
	}
	return e
}

// Indexed tensor shapes used by entity fields. Map keys are index member
// ids; years are decimal strings.
type (
	R       = map[string]float64
	RY      = map[string]map[string]float64
	RYS     = map[string]map[string]map[string]float64
	RInt    = map[string]int
	RString = map[string]string
	RYBool  = map[string]map[string]bool
	RRY     = map[string]map[string]map[string]float64
	RRYBool = map[string]map[string]map[string]bool
	RRYInt  = map[string]map[string]map[string]int
	RR      = map[string]map[string]float64
	RT      = map[string]map[string]float64
	RO      = map[string]map[string]float64
	GY      = map[string]map[string]float64
)

// Sets holds the declared index sets the composition step broadcasts
// against; it is assembled by the Model before composing children.
type Sets struct {
	Regions      []string
	Years        []string
	Timeslices   []string
	Commodities  []string
	Impacts      []string
	Technologies []string
	Storages     []string
	RegionGroups []string
}

func (s Sets) dim(name string) broadcast.Dimension {
	switch name {
	case "region":
		return broadcast.Dimension{Name: name, Declared: s.Regions}
	case "year":
		return broadcast.Dimension{Name: name, Declared: s.Years}
	case "timeslice":
		return broadcast.Dimension{Name: name, Declared: s.Timeslices}
	case "commodity":
		return broadcast.Dimension{Name: name, Declared: s.Commodities}
	case "impact":
		return broadcast.Dimension{Name: name, Declared: s.Impacts}
	case "storage":
		return broadcast.Dimension{Name: name, Declared: s.Storages}
	case "technology":
		return broadcast.Dimension{Name: name, Declared: s.Technologies}
	case "region_group":
		return broadcast.Dimension{Name: name, Declared: s.RegionGroups}
	default:
		return broadcast.Dimension{Name: name}
	}
}

// compose expands one raw field against the named dimensions.
func compose(raw any, sets Sets, dimNames ...string) (any, error) {
	if raw == nil {
		return nil, nil
	}
	dims := make([]broadcast.Dimension, len(dimNames))
	for i, name := range dimNames {
		dims[i] = sets.dim(name)
	}
	inferred, err := broadcast.InferSets(raw, dims)
	if err != nil {
		return nil, err
	}
	return broadcast.Expand(raw, inferred), nil
}

// --- scalar coercions -------------------------------------------------

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
		return 0, false
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case int:
		if b == 0 || b == 1 {
			return b == 1, true
		}
		return false, false
	case string:
		switch strings.ToLower(b) {
		case "true", "t", "1":
			return true, true
		case "false", "f", "0":
			return false, true
		}
		return false, false
	default:
		return false, false
	}
}

// --- composed-tensor casts ---------------------------------------------

func floatMap1(v any, vs *violations, field string) R {
	if v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		vs.addf(field, "expected a mapping, got %T", v)
		return nil
	}
	out := make(R, len(m))
	for k, item := range m {
		f, ok := toFloat(item)
		if !ok {
			vs.addf(field, "value at %q is not numeric: %v", k, item)
			continue
		}
		out[k] = f
	}
	return out
}

func floatMap2(v any, vs *violations, field string) RY {
	if v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		vs.addf(field, "expected a mapping, got %T", v)
		return nil
	}
	out := make(RY, len(m))
	for k, item := range m {
		out[k] = floatMap1(item, vs, field+"."+k)
	}
	return out
}

func floatMap3(v any, vs *violations, field string) RYS {
	if v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		vs.addf(field, "expected a mapping, got %T", v)
		return nil
	}
	out := make(RYS, len(m))
	for k, item := range m {
		out[k] = floatMap2(item, vs, field+"."+k)
	}
	return out
}

func boolMap2(v any, vs *violations, field string) RYBool {
	if v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		vs.addf(field, "expected a mapping, got %T", v)
		return nil
	}
	out := make(RYBool, len(m))
	for k, item := range m {
		inner, ok := item.(map[string]any)
		if !ok {
			vs.addf(field, "value at %q is not a mapping: %v", k, item)
			continue
		}
		row := make(map[string]bool, len(inner))
		for kk, iv := range inner {
			b, ok := toBool(iv)
			if !ok {
				vs.addf(field, "value at %q.%q is not boolean: %v", k, kk, iv)
				continue
			}
			row[kk] = b
		}
		out[k] = row
	}
	return out
}

func boolMap3(v any, vs *violations, field string) RRYBool {
	if v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		vs.addf(field, "expected a mapping, got %T", v)
		return nil
	}
	out := make(RRYBool, len(m))
	for k, item := range m {
		out[k] = boolMap2(item, vs, field+"."+k)
	}
	return out
}

func intMap1(v any, vs *violations, field string) RInt {
	if v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		vs.addf(field, "expected a mapping, got %T", v)
		return nil
	}
	out := make(RInt, len(m))
	for k, item := range m {
		i, ok := toInt(item)
		if !ok {
			vs.addf(field, "value at %q is not an integer: %v", k, item)
			continue
		}
		out[k] = i
	}
	return out
}

func intMap3(v any, vs *violations, field string) RRYInt {
	if v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		vs.addf(field, "expected a mapping, got %T", v)
		return nil
	}
	out := make(RRYInt, len(m))
	for k, item := range m {
		mid, ok := item.(map[string]any)
		if !ok {
			vs.addf(field, "value at %q is not a mapping: %v", k, item)
			continue
		}
		row := make(map[string]map[string]int, len(mid))
		for kk, inner := range mid {
			leaf, ok := inner.(map[string]any)
			if !ok {
				vs.addf(field, "value at %q.%q is not a mapping: %v", k, kk, inner)
				continue
			}
			cell := make(map[string]int, len(leaf))
			for kkk, iv := range leaf {
				i, ok := toInt(iv)
				if !ok {
					vs.addf(field, "value at %q.%q.%q is not an integer: %v", k, kk, kkk, iv)
					continue
				}
				cell[kkk] = i
			}
			row[kk] = cell
		}
		out[k] = row
	}
	return out
}

func stringMap1(v any, vs *violations, field string) RString {
	if v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		vs.addf(field, "expected a mapping, got %T", v)
		return nil
	}
	out := make(RString, len(m))
	for k, item := range m {
		s, ok := item.(string)
		if !ok {
			vs.addf(field, "value at %q is not a string: %v", k, item)
			continue
		}
		out[k] = s
	}
	return out
}

// --- collection parsing -------------------------------------------------

// entityBodies interprets an entity collection as either a mapping keyed
// by id, a list of id strings, or a list of mappings carrying an "id"
// key. Ids are returned in stable (sorted or declaration) order.
func entityBodies(raw any, vs *violations, field string) ([]string, map[string]map[string]any) {
	bodies := make(map[string]map[string]any)
	var order []string

	switch coll := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		for id, body := range coll {
			b, ok := body.(map[string]any)
			if !ok {
				if body == nil {
					b = map[string]any{}
				} else {
					vs.addf(field, "entry %q is not a mapping", id)
					continue
				}
			}
			bodies[id] = b
			order = append(order, id)
		}
		sort.Strings(order)
	case []any:
		for i, item := range coll {
			switch entry := item.(type) {
			case string:
				bodies[entry] = map[string]any{}
				order = append(order, entry)
			case map[string]any:
				id, ok := entry["id"].(string)
				if !ok {
					vs.addf(field, "entry %d has no string id", i)
					continue
				}
				bodies[id] = entry
				order = append(order, id)
			default:
				vs.addf(field, "entry %d is neither an id nor a mapping", i)
			}
		}
	default:
		vs.addf(field, "expected a mapping or list, got %T", raw)
	}
	return order, bodies
}

func stringList(raw any, vs *violations, field string) []string {
	if raw == nil {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		vs.addf(field, "expected a list, got %T", raw)
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case int:
			out = append(out, strconv.Itoa(v))
		case float64:
			out = append(out, strconv.FormatFloat(v, 'g', -1, 64))
		default:
			vs.addf(field, "list entry %v is not a label", item)
		}
	}
	return out
}
