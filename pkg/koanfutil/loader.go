package koanfutil

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envNestingDelimiter separates nested keys in environment variable names,
// so that CASTING_AUTH__HTTP_TIMEOUT maps to "auth.http_timeout".
const envNestingDelimiter = "__"

// Source describes where a configuration is read from.
type Source struct {
	// File is an optional TOML file. A missing file is an error only when
	// FileRequired is set.
	File         string
	FileRequired bool

	// EnvPrefix selects environment variables (e.g., "CASTING_").
	// Empty disables environment overrides.
	EnvPrefix string
}

// Load builds a koanf instance in precedence order: defaults, TOML file,
// environment, then file:// secret resolution.
func Load[T any](defaults T, src Source) (*koanf.Koanf, error) {
	k := koanf.New(".")

	if err := k.Load(WithDefaults(defaults), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if src.File != "" {
		if err := k.Load(file.Provider(src.File), toml.Parser()); err != nil {
			if src.FileRequired || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("load config file %s: %w", src.File, err)
			}
		}
	}

	if src.EnvPrefix != "" {
		if err := k.Load(env.Provider(src.EnvPrefix, ".", EnvKeyMapper(src.EnvPrefix)), nil); err != nil {
			return nil, fmt.Errorf("load environment: %w", err)
		}
	}

	if err := k.Load(FileResolver(k), nil); err != nil {
		return nil, fmt.Errorf("resolve file references: %w", err)
	}

	return k, nil
}

// Unmarshal loads src over defaults and decodes the result into a T.
func Unmarshal[T any](defaults T, src Source) (T, error) {
	var out T
	k, err := Load(defaults, src)
	if err != nil {
		return out, err
	}
	if err := k.UnmarshalWithConf("", &out, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return out, fmt.Errorf("decode config: %w", err)
	}
	return out, nil
}

// EnvKeyMapper returns the koanf key for an environment variable name.
func EnvKeyMapper(prefix string) func(string) string {
	return func(name string) string {
		key := strings.ToLower(strings.TrimPrefix(name, prefix))
		return strings.ReplaceAll(key, envNestingDelimiter, ".")
	}
}
