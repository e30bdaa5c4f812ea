package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// StringToExtensionList is a DecodeHookFunc that converts a comma-separated
// string (the environment form of the allow-list) into a []string of
// normalized extensions: trimmed, lowercased, leading dots stripped.
func StringToExtensionList() mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf([]string{}) {
			return data, nil
		}
		raw := data.(string)
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			ext := strings.ToLower(strings.TrimSpace(p))
			ext = strings.TrimPrefix(ext, ".")
			if ext == "" {
				continue
			}
			out = append(out, ext)
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("empty extension list %q", raw)
		}
		return out, nil
	}
}
