package koanfutil

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/v2"
)

var errReadBytes = errors.New("koanfutil: ReadBytes not supported")

// WithDefaults returns a koanf.Provider exposing every koanf-tagged field of
// defaults, zero values included, so later layers only need to name the keys
// they change. Fields tagged "-" and nil pointers, maps or slices are left out.
func WithDefaults[T any](defaults T) koanf.Provider {
	return defaultsProvider{value: reflect.ValueOf(defaults)}
}

type defaultsProvider struct {
	value reflect.Value
}

func (p defaultsProvider) Read() (map[string]any, error) {
	flat := make(map[string]any)
	if err := flatten(p.value, "", flat); err != nil {
		return nil, err
	}
	return maps.Unflatten(flat, "."), nil
}

func (defaultsProvider) ReadBytes() ([]byte, error) {
	return nil, errReadBytes
}

var (
	timeType          = reflect.TypeFor[time.Time]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// flatten writes the leaves of the struct v into out under dotted keys.
func flatten(v reflect.Value, prefix string, out map[string]any) error {
	v, ok := deref(v)
	if !ok {
		return nil
	}
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("koanfutil: defaults must be a struct, got %s", v.Type())
	}

	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("koanf"), ",")
		if !field.IsExported() || name == "" || name == "-" {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}

		fv, ok := deref(v.Field(i))
		if !ok {
			continue
		}
		if isLeaf(fv) {
			if (fv.Kind() == reflect.Map || fv.Kind() == reflect.Slice) && fv.IsNil() {
				continue
			}
			out[key] = fv.Interface()
			continue
		}
		if err := flatten(fv, key, out); err != nil {
			return err
		}
	}
	return nil
}

func deref(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

// isLeaf reports whether v is stored as a single value rather than walked.
func isLeaf(v reflect.Value) bool {
	if v.Kind() != reflect.Struct {
		return true
	}
	return v.Type() == timeType || v.Type().Implements(textMarshalerType) ||
		reflect.PointerTo(v.Type()).Implements(textMarshalerType)
}
