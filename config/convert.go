package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// codec is the to/from-text coercion pair for a scalar type T.
// Container coercions (Slice, Map, Set below) recursively reuse a
// scalar codec for their element type.
type codec[T any] struct {
	encode func(T) string
	decode func(string) (T, error)
}

// scalarCodec resolves the codec for a supported scalar type T via a
// runtime type switch on the zero value - Go generics have no way to
// switch on a type parameter directly, so this is the idiomatic
// workaround.
func scalarCodec[T any]() codec[T] {
	var zero T
	switch any(zero).(type) {
	case string:
		return codec[T]{
			encode: func(v T) string { return any(v).(string) },
			decode: func(s string) (T, error) { return any(s).(T), nil },
		}
	case bool:
		return codec[T]{
			encode: func(v T) string { return strconv.FormatBool(any(v).(bool)) },
			decode: func(s string) (T, error) {
				b, err := strconv.ParseBool(s)
				return any(b).(T), err
			},
		}
	case int:
		return intCodec[T](64, func(i int64) any { return int(i) })
	case int8:
		return intCodec[T](8, func(i int64) any { return int8(i) })
	case int16:
		return intCodec[T](16, func(i int64) any { return int16(i) })
	case int32:
		return intCodec[T](32, func(i int64) any { return int32(i) })
	case int64:
		return intCodec[T](64, func(i int64) any { return i })
	case uint:
		return uintCodec[T](64, func(u uint64) any { return uint(u) })
	case uint8:
		return uintCodec[T](8, func(u uint64) any { return uint8(u) })
	case uint16:
		return uintCodec[T](16, func(u uint64) any { return uint16(u) })
	case uint32:
		return uintCodec[T](32, func(u uint64) any { return uint32(u) })
	case uint64:
		return uintCodec[T](64, func(u uint64) any { return u })
	case float32:
		return codec[T]{
			encode: func(v T) string { return strconv.FormatFloat(float64(any(v).(float32)), 'g', -1, 32) },
			decode: func(s string) (T, error) {
				f, err := strconv.ParseFloat(s, 32)
				return any(float32(f)).(T), err
			},
		}
	case float64:
		return codec[T]{
			encode: func(v T) string { return strconv.FormatFloat(any(v).(float64), 'g', -1, 64) },
			decode: func(s string) (T, error) {
				f, err := strconv.ParseFloat(s, 64)
				return any(f).(T), err
			},
		}
	case time.Duration:
		return codec[T]{
			encode: func(v T) string { return any(v).(time.Duration).String() },
			decode: func(s string) (T, error) {
				d, err := time.ParseDuration(s)
				return any(d).(T), err
			},
		}
	default:
		panic(fmt.Sprintf("config: unsupported scalar type %T", zero))
	}
}

func intCodec[T any](_ int, conv func(int64) any) codec[T] {
	return codec[T]{
		encode: func(v T) string {
			// widen back to int64 for formatting purposes only.
			switch x := any(v).(type) {
			case int:
				return strconv.FormatInt(int64(x), 10)
			case int8:
				return strconv.FormatInt(int64(x), 10)
			case int16:
				return strconv.FormatInt(int64(x), 10)
			case int32:
				return strconv.FormatInt(int64(x), 10)
			case int64:
				return strconv.FormatInt(x, 10)
			}
			return ""
		},
		decode: func(s string) (T, error) {
			i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				var zero T
				return zero, err
			}
			return conv(i).(T), nil
		},
	}
}

func uintCodec[T any](_ int, conv func(uint64) any) codec[T] {
	return codec[T]{
		encode: func(v T) string {
			switch x := any(v).(type) {
			case uint:
				return strconv.FormatUint(uint64(x), 10)
			case uint8:
				return strconv.FormatUint(uint64(x), 10)
			case uint16:
				return strconv.FormatUint(uint64(x), 10)
			case uint32:
				return strconv.FormatUint(uint64(x), 10)
			case uint64:
				return strconv.FormatUint(x, 10)
			}
			return ""
		},
		decode: func(s string) (T, error) {
			u, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
			if err != nil {
				var zero T
				return zero, err
			}
			return conv(u).(T), nil
		},
	}
}

// typeTag reports a stable textual identifier for T, used for the
// registry's safe down-cast check.
func typeTag[T any]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

// sliceCodec builds an ordered-sequence-of-E container coercion,
// recursively reusing the scalar codec for E. The wire form is a YAML
// sequence (decode accepts flow or block form; encode renders block
// form), parsed/rendered through gopkg.in/yaml.v3 so
// round-tripping holds regardless of how a value entered - whether
// via FromText or via Registry.LoadFromTree off a real YAML
// document.
func sliceCodec[E any]() codec[[]E] {
	ec := scalarCodec[E]()
	return codec[[]E]{
		encode: func(v []E) string {
			raw := make([]string, len(v))
			for i, e := range v {
				raw[i] = ec.encode(e)
			}
			b, _ := yaml.Marshal(raw)
			return strings.TrimSpace(string(b))
		},
		decode: func(s string) ([]E, error) {
			var raw []string
			if strings.TrimSpace(s) == "" {
				return nil, nil
			}
			if err := yaml.Unmarshal([]byte(s), &raw); err != nil {
				return nil, err
			}
			out := make([]E, len(raw))
			for i, rs := range raw {
				v, err := ec.decode(rs)
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return out, nil
		},
	}
}

// mapCodec builds a mapping-from-text-to-E container coercion. Keys
// are always textual.
func mapCodec[E any]() codec[map[string]E] {
	ec := scalarCodec[E]()
	return codec[map[string]E]{
		encode: func(v map[string]E) string {
			raw := make(map[string]string, len(v))
			for k, e := range v {
				raw[k] = ec.encode(e)
			}
			b, _ := yaml.Marshal(raw)
			return strings.TrimSpace(string(b))
		},
		decode: func(s string) (map[string]E, error) {
			var raw map[string]string
			if strings.TrimSpace(s) == "" {
				return map[string]E{}, nil
			}
			if err := yaml.Unmarshal([]byte(s), &raw); err != nil {
				return nil, err
			}
			out := make(map[string]E, len(raw))
			for k, rs := range raw {
				v, err := ec.decode(rs)
				if err != nil {
					return nil, err
				}
				out[k] = v
			}
			return out, nil
		},
	}
}

// Set is a hashed-variant container: a set of E, rendered in sorted
// order for deterministic round-tripping.
type Set[E comparable] map[E]struct{}

// NewSet builds a Set from the given elements.
func NewSet[E comparable](elems ...E) Set[E] {
	s := make(Set[E], len(elems))
	for _, e := range elems {
		s[e] = struct{}{}
	}
	return s
}

func setCodec[E comparable]() codec[Set[E]] {
	ec := scalarCodec[E]()
	return codec[Set[E]]{
		encode: func(v Set[E]) string {
			raw := make([]string, 0, len(v))
			for e := range v {
				raw = append(raw, ec.encode(e))
			}
			sort.Strings(raw)
			b, _ := yaml.Marshal(raw)
			return strings.TrimSpace(string(b))
		},
		decode: func(s string) (Set[E], error) {
			var raw []string
			if strings.TrimSpace(s) != "" {
				if err := yaml.Unmarshal([]byte(s), &raw); err != nil {
					return nil, err
				}
			}
			out := make(Set[E], len(raw))
			for _, rs := range raw {
				v, err := ec.decode(rs)
				if err != nil {
					return nil, err
				}
				out[v] = struct{}{}
			}
			return out, nil
		},
	}
}
