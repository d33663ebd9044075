package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "TIERANK_"

// envBinding ties one `env` tag to the koanf path of its field.
type envBinding struct {
	path  string
	field reflect.StructField
}

// loadFromEnv overlays TIERANK_* variables onto cfg. Each variable is bound
// through the `env` tag of a field and addressed by the field's json path.
func loadFromEnv(cfg *Config) error {
	byVar := map[string]envBinding{}
	collectEnvBindings(reflect.TypeOf(*cfg), "", byVar)
	byPath := make(map[string]envBinding, len(byVar))
	for _, b := range byVar {
		byPath[b.path] = b
	}

	// unbound or empty variables are ignored
	raw := koanf.New(".")
	provider := env.Provider(envPrefix, ".", func(name string) string {
		return byVar[name].path
	})
	if err := raw.Load(provider, nil); err != nil {
		return err
	}

	k := koanf.New(".")
	for _, path := range raw.Keys() {
		value := raw.String(path)
		if value == "" {
			continue
		}
		b := byPath[path]
		typed, err := parseEnvValue(b.field.Type, value)
		if err != nil {
			return fmt.Errorf("failed to set field %s from env var %s: %w", b.field.Name, b.field.Tag.Get("env"), err)
		}
		if err := k.Set(path, typed); err != nil {
			return err
		}
	}
	if len(k.Keys()) == 0 {
		return nil
	}
	return k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"})
}

// collectEnvBindings walks nested structs so sections declared in other
// packages (redis.Config, leaderboard.Config) keep their own tags.
func collectEnvBindings(t reflect.Type, prefix string, out map[string]envBinding) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		if f.Type.Kind() == reflect.Struct {
			collectEnvBindings(f.Type, path, out)
			continue
		}
		if tag := f.Tag.Get("env"); tag != "" {
			out[tag] = envBinding{path: path, field: f}
		}
	}
}

// parseEnvValue converts an environment string into a value of type t
func parseEnvValue(t reflect.Type, value string) (any, error) {
	if t == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid duration value: %s", value)
		}
		return d, nil
	}

	switch t.Kind() {
	case reflect.String:
		return value, nil

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean value: %s", value)
		}
		return b, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer value: %s", value)
		}
		return n, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid unsigned integer value: %s", value)
		}
		return n, nil

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float value: %s", value)
		}
		return f, nil

	case reflect.Slice:
		if t.Elem().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported slice type: %s", t.Elem().Kind())
		}
		// comma-separated
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil

	case reflect.Map:
		if t.Key().Kind() != reflect.String || t.Elem().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map type: %s -> %s", t.Key().Kind(), t.Elem().Kind())
		}
		// key=value,key2=value2
		m := map[string]string{}
		for _, pair := range strings.Split(value, ",") {
			k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				return nil, fmt.Errorf("invalid map entry format: %s", pair)
			}
			m[k] = v
		}
		return m, nil
	}

	return nil, fmt.Errorf("unsupported field type: %s", t.Kind())
}
