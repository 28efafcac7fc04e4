// Package loader reads declarative model documents, merges them by
// key-union, and drives reference resolution and expression evaluation,
// producing the resolved configuration tree consumed by the schema
// layer.
package loader

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vk/voltgrid/internal/ctxlog"
	"github.com/vk/voltgrid/internal/fsutil"
	"github.com/vk/voltgrid/internal/resolver"
)

// Options configure one load.
type Options struct {
	// MaxPasses is forwarded to the reference resolver.
	MaxPasses int
	// LookupEnv is forwarded to the reference resolver.
	LookupEnv func(string) (string, bool)
}

// Load reads every document named by the given paths (files or
// directories), merges them in order, and resolves references and
// expressions to a fixed point.
func Load(ctx context.Context, opts Options, paths ...string) (map[string]any, error) {
	merged, err := LoadRaw(ctx, paths...)
	if err != nil {
		return nil, err
	}
	return resolver.Resolve(ctx, merged, resolver.Options{
		MaxPasses: opts.MaxPasses,
		LookupEnv: opts.LookupEnv,
	})
}

// LoadRaw reads and merges documents without resolving placeholders.
func LoadRaw(ctx context.Context, paths ...string) (map[string]any, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, path := range paths {
		found, err := fsutil.ResolveDocumentPath(path)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no yaml documents found in %v", paths)
	}

	merged := make(map[string]any)
	for _, file := range files {
		doc, err := decodeDocument(file)
		if err != nil {
			return nil, err
		}
		merged = Merge(merged, doc)
		logger.Debug("Merged document.", "path", file, "top_level_keys", len(doc))
	}
	return merged, nil
}

func decodeDocument(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", path, err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing document %s: %w", path, err)
	}
	if doc == nil {
		return map[string]any{}, nil
	}
	normalized, ok := Normalize(doc).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document %s is not a mapping at the top level", path)
	}
	return normalized, nil
}

// Merge folds src into dst: mappings merge recursively, anything else is
// last-wins. dst is returned for chaining.
func Merge(dst, src map[string]any) map[string]any {
	for key, srcVal := range src {
		if dstMap, ok := dst[key].(map[string]any); ok {
			if srcMap, ok := srcVal.(map[string]any); ok {
				dst[key] = Merge(dstMap, srcMap)
				continue
			}
		}
		dst[key] = srcVal
	}
	return dst
}

// Normalize rewrites a decoded yaml value so every mapping is a
// map[string]any (numeric keys such as years become their decimal
// strings) and nested values are normalized recursively.
func Normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprintf("%v", k)] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	default:
		return v
	}
}
