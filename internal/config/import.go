package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the on-disk form accepted by Import: sections of scalar or list
// values.
//
//	general:
//	  platform: openai
//	openai:
//	  api_key: sk-...
//	  stop_sequences: ["\n\n"]
type File map[string]map[string]any

// ReadFile parses a JSON or YAML configuration file.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to unmarshal JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s (use .json or .yaml)", ext)
	}
	return f, nil
}

// Entries flattens the file into section.name keys.
func (f File) Entries() map[string]string {
	out := map[string]string{}
	for section, values := range f {
		for name, v := range values {
			out[section+"."+name] = stringify(v)
		}
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, stringify(p))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

// Import validates every entry of the file before writing any of them and
// returns the keys written.
func (m *Manager) Import(path string) ([]string, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	entries := f.Entries()

	keys := make([]string, 0, len(entries))
	for k, v := range entries {
		section, name, err := SplitKey(k)
		if err != nil {
			return nil, err
		}
		valid, _ := validatorFor(section, name)
		if err := valid(strings.TrimSpace(v)); err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", k, err)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := m.Set(k, entries[k]); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
