// Package koanfutil loads layered configuration with koanf: struct defaults,
// an optional TOML file, environment variables and file:// secret references.
package koanfutil

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/v2"
)

const fileURIPrefix = "file://"

// ErrEmptyFileURI is returned for a bare "file://" value.
var ErrEmptyFileURI = errors.New("file uri has no path")

// FileResolver returns a koanf.Provider that replaces each string loaded into
// k so far that starts with "file://" by the trimmed contents of that file.
// Strings inside lists are resolved as well. Only changed keys are returned,
// so loading the provider into k merges the secrets over the references.
func FileResolver(k *koanf.Koanf) koanf.Provider {
	return fileResolver{k: k}
}

type fileResolver struct {
	k *koanf.Koanf
}

func (r fileResolver) Read() (map[string]any, error) {
	resolved := make(map[string]any)
	for _, key := range r.k.Keys() {
		val, changed, err := resolveValue(r.k.Get(key))
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", key, err)
		}
		if changed {
			resolved[key] = val
		}
	}
	return maps.Unflatten(resolved, r.k.Delim()), nil
}

func (fileResolver) ReadBytes() ([]byte, error) {
	return nil, errReadBytes
}

func resolveValue(val any) (any, bool, error) {
	switch v := val.(type) {
	case string:
		if !strings.HasPrefix(v, fileURIPrefix) {
			return v, false, nil
		}
		secret, err := readSecret(v)
		return secret, err == nil, err
	case []string:
		return resolveList(v)
	case []any:
		return resolveList(v)
	default:
		return val, false, nil
	}
}

func resolveList[E any](list []E) (any, bool, error) {
	out := make([]any, len(list))
	changed := false
	for i, item := range list {
		val, ok, err := resolveValue(item)
		if err != nil {
			return nil, false, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = val
		changed = changed || ok
	}
	if !changed {
		return list, false, nil
	}
	return out, true, nil
}

func readSecret(uri string) (string, error) {
	path := strings.TrimPrefix(uri, fileURIPrefix)
	if path == "" {
		return "", ErrEmptyFileURI
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
