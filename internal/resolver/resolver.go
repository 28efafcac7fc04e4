// Package resolver substitutes cross-tree references (${path.into.tree})
// and environment placeholders ($ENV{NAME} / $ENV{NAME:fallback}) in a
// configuration tree, and evaluates embedded expressions once their
// inputs are available. Substitution runs to a fixed point with a hard
// pass ceiling so that reference cycles terminate as a named error
// instead of looping.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/vk/voltgrid/internal/ctxlog"
	"github.com/vk/voltgrid/internal/exprs"
)

var (
	envMatcher = regexp.MustCompile(`\$ENV\{([^}{]+)\}`)
	varMatcher = regexp.MustCompile(`\$\{([^}{]+)\}`)
)

// DefaultMaxPasses bounds the fixed-point loop. An acyclic reference
// graph of depth d converges in at most d+1 passes, so the ceiling only
// bites on cycles or pathological nesting.
const DefaultMaxPasses = 16

// Options configure one resolution run.
type Options struct {
	// MaxPasses overrides DefaultMaxPasses when positive.
	MaxPasses int
	// LookupEnv overrides os.LookupEnv, mainly for tests.
	LookupEnv func(string) (string, bool)
}

// Resolve rewrites the tree in place until no placeholder or evaluable
// expression remains, and returns the same tree for convenience.
func Resolve(ctx context.Context, tree map[string]any, opts Options) (map[string]any, error) {
	logger := ctxlog.FromContext(ctx)

	maxPasses := opts.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}
	lookupEnv := opts.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	r := &run{tree: tree, lookupEnv: lookupEnv}

	for pass := 1; pass <= maxPasses; pass++ {
		r.changed = false
		r.pending = r.pending[:0]

		if err := r.walkMap(tree, ""); err != nil {
			return nil, err
		}

		logger.Debug("Resolver pass complete.", "pass", pass, "changed", r.changed, "pending", len(r.pending))

		if len(r.pending) == 0 {
			return tree, nil
		}
		if !r.changed {
			// No progress while placeholders remain: unresolvable forward
			// references or a cycle.
			break
		}
	}

	sort.Strings(r.pending)
	return nil, &exprs.UnresolvedReferenceError{Refs: dedupe(r.pending)}
}

type run struct {
	tree      map[string]any
	lookupEnv func(string) (string, bool)
	changed   bool
	pending   []string
}

func (r *run) walkMap(m map[string]any, prefix string) error {
	for key, val := range m {
		path := joinPath(prefix, key)
		newVal, err := r.resolveValue(val, path)
		if err != nil {
			return err
		}
		m[key] = newVal
	}
	return nil
}

func (r *run) walkSlice(s []any, prefix string) error {
	for i, val := range s {
		path := joinPath(prefix, strconv.Itoa(i))
		newVal, err := r.resolveValue(val, path)
		if err != nil {
			return err
		}
		s[i] = newVal
	}
	return nil
}

func (r *run) resolveValue(val any, path string) (any, error) {
	switch v := val.(type) {
	case map[string]any:
		return v, r.walkMap(v, path)
	case []any:
		return v, r.walkSlice(v, path)
	case string:
		return r.resolveString(v, path)
	default:
		return val, nil
	}
}

func (r *run) resolveString(s, path string) (any, error) {
	out, err := r.substituteEnv(s, path)
	if err != nil {
		return nil, err
	}

	replaced, done := r.substituteRefs(out, path)
	if !done {
		// Some reference target is missing or not yet resolved; retry on
		// the next pass.
		return replaced, nil
	}

	if str, ok := replaced.(string); ok && exprs.LooksLikeExpression(str) {
		result, err := exprs.Evaluate(str, r.tree)
		if err != nil {
			var unresolved *exprs.UnresolvedReferenceError
			if errors.As(err, &unresolved) {
				r.pending = append(r.pending, fmt.Sprintf("%s (%s)", path, err.Error()))
				return str, nil
			}
			return nil, err
		}
		r.changed = true
		return result, nil
	}

	return replaced, nil
}

// substituteEnv replaces every $ENV{NAME} / $ENV{NAME:fallback}
// occurrence. A missing variable without fallback is a hard failure on
// the spot: retrying cannot make the environment grow.
func (r *run) substituteEnv(s, path string) (string, error) {
	matches := envMatcher.FindAllStringSubmatch(s, -1)
	for _, match := range matches {
		name, fallback, hasFallback := strings.Cut(match[1], ":")
		value, ok := r.lookupEnv(name)
		if !ok {
			if !hasFallback {
				return "", &MissingEnvironmentValueError{Name: name, Path: path}
			}
			value = fallback
		}
		s = strings.ReplaceAll(s, match[0], value)
		r.changed = true
	}
	return s, nil
}

// substituteRefs replaces ${path} placeholders. When the placeholder is
// the entire string the target's type is preserved; otherwise the target
// is interpolated as text. Returns done=false when any target is absent
// or itself still unresolved.
func (r *run) substituteRefs(s, path string) (any, bool) {
	matches := varMatcher.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return s, true
	}

	for _, match := range matches {
		target, ok := lookupPath(r.tree, match[1])
		if !ok {
			r.pending = append(r.pending, fmt.Sprintf("%s (${%s})", path, match[1]))
			return s, false
		}
		if str, isStr := target.(string); isStr && containsPlaceholder(str) {
			// The target exists but has its own pending work; substituting
			// now would copy an unresolved placeholder.
			r.pending = append(r.pending, fmt.Sprintf("%s (${%s})", path, match[1]))
			return s, false
		}

		if strings.TrimSpace(s) == match[0] {
			r.changed = true
			return target, true
		}
		s = strings.ReplaceAll(s, match[0], fmt.Sprintf("%v", target))
		r.changed = true
	}
	return s, true
}

func containsPlaceholder(s string) bool {
	return varMatcher.MatchString(s) || envMatcher.MatchString(s) || exprs.LooksLikeExpression(s)
}

// lookupPath walks a dot-separated path through nested maps and slices.
func lookupPath(tree map[string]any, dotted string) (any, bool) {
	var current any = tree
	for _, part := range strings.Split(dotted, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
