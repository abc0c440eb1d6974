package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/termax/internal/credential"
	"github.com/felixgeelhaar/termax/internal/store"
)

type mapKV map[string]string

func (m mapKV) SetConfig(k, v string) error { m[k] = v; return nil }
func (m mapKV) GetConfig(k string) (string, error) { return m[k], nil }
func (m mapKV) DeleteConfig(k string) error { delete(m, k); return nil }
func (m mapKV) ListConfig(prefix string) (map[string]string, error) {
	out := map[string]string{}
	for k, v := range m {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out, nil
}

func newTestManager(t *testing.T) (*Manager, mapKV) {
	t.Helper()
	sealer, err := credential.NewManagerWithSecret("test")
	if err != nil {
		t.Fatalf("failed to create sealer: %v", err)
	}
	kv := mapKV{}
	return NewManager(kv, sealer), kv
}

func TestManager_SetGet(t *testing.T) {
	m, kv := newTestManager(t)

	if err := m.Set("openai.api_key", "sk-1234567890abcdef"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !credential.IsSealed(kv["openai.api_key"]) {
		t.Errorf("Expected api key to be sealed at rest, got %q", kv["openai.api_key"])
	}
	got, err := m.Get("openai.api_key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "sk-1234567890abcdef" {
		t.Errorf("Expected opened key, got %q", got)
	}

	if err := m.Set("general.platform", "openai"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if kv["general.platform"] != "openai" {
		t.Errorf("Non-secret values are stored as-is, got %q", kv["general.platform"])
	}

	listed, err := m.List(true)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if listed["openai.api_key"] != "sk-1...cdef" {
		t.Errorf("Expected masked key, got %q", listed["openai.api_key"])
	}

	if err := m.Unset("openai.api_key"); err != nil {
		t.Fatalf("Unset failed: %v", err)
	}
	if _, ok := kv["openai.api_key"]; ok {
		t.Error("Expected key to be removed")
	}
}

func TestManager_SetRejects(t *testing.T) {
	m, _ := newTestManager(t)

	tests := []struct {
		key, value string
		unknown    bool
	}{
		{"platform", "openai", true},
		{"general.colour", "blue", true},
		{"nosuch.model", "x", true},
		{"openai.flavour", "x", true},
		{"general.platform", "skynet", false},
		{"general.storage_size", "-1", false},
		{"general.eviction", "lru", false},
		{"general.auto_execute", "maybe", false},
		{"openai.temperature", "hot", false},
	}
	for _, tc := range tests {
		err := m.Set(tc.key, tc.value)
		if err == nil {
			t.Errorf("Set(%q, %q) should fail", tc.key, tc.value)
			continue
		}
		if tc.unknown != errors.Is(err, ErrUnknownKey) {
			t.Errorf("Set(%q): unexpected error kind %v", tc.key, err)
		}
	}
}

func TestManager_LoadDefaults(t *testing.T) {
	m, _ := newTestManager(t)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	g := cfg.General
	if g.StorageSize != 2000 || g.Neighbors != 5 || g.Eviction != store.EvictOldest || g.Embedder != EmbedderLocal {
		t.Errorf("Unexpected defaults: %+v", g)
	}
	if err := cfg.Validate(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
}

func TestManager_Load(t *testing.T) {
	m, kv := newTestManager(t)
	for k, v := range map[string]string{
		"general.platform":      "ollama",
		"general.auto_execute":  "true",
		"general.storage_size":  "10",
		"general.eviction":      "wipe",
		"general.ignore":        "node_modules/**, *.log",
		"ollama.model":          "llama3",
		"ollama.temperature":    "0.2",
		"ollama.top_k":          "40",
		"ollama.stop_sequences": "\\n\\n,END",
	} {
		if err := m.Set(k, v); err != nil {
			t.Fatalf("Set(%s) failed: %v", k, err)
		}
	}
	kv["legacy.thing"] = "ignored"

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !cfg.General.AutoExecute || cfg.General.StorageSize != 10 || cfg.General.Eviction != store.EvictAll {
		t.Errorf("Unexpected general section: %+v", cfg.General)
	}
	if len(cfg.General.Ignore) != 2 || cfg.General.Ignore[1] != "*.log" {
		t.Errorf("Unexpected ignore list: %v", cfg.General.Ignore)
	}

	s := cfg.ProviderSettings()
	if s.Model != "llama3" || s.Tuning.TopK != 40 || len(s.Tuning.StopSequences) != 2 {
		t.Errorf("Unexpected settings: %+v", s)
	}
	if s.Tuning.Temperature == nil || *s.Tuning.Temperature != 0.2 {
		t.Errorf("Unexpected temperature: %v", s.Tuning.Temperature)
	}
	if s.Tuning.TopP != nil {
		t.Errorf("Unset top_p should stay nil")
	}

	mo := cfg.MemoryOptions()
	if mo.Capacity != 10 || mo.Policy != store.EvictAll {
		t.Errorf("Unexpected memory options: %+v", mo)
	}
}

func TestManager_LoadEnvOverrides(t *testing.T) {
	m, _ := newTestManager(t)
	m.Set("general.platform", "ollama")
	m.Set("openai.model", "gpt-4o")

	t.Setenv("TERMAX_PLATFORM", "openai")
	t.Setenv("TERMAX_API_KEY", "sk-from-env")
	t.Setenv("TERMAX_AUTO_EXECUTE", "true")

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.General.Platform != "openai" || !cfg.General.AutoExecute {
		t.Errorf("Expected env overrides, got %+v", cfg.General)
	}
	cur := cfg.Current()
	if cur.APIKey != "sk-from-env" || cur.Model != "gpt-4o" {
		t.Errorf("Unexpected platform settings: %+v", cur)
	}
}

func TestConfig_Provider(t *testing.T) {
	cfg := &Config{General: General{Platform: "openai"}, Platforms: map[string]Platform{}}
	if _, err := cfg.Provider(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured for missing key, got %v", err)
	}

	cfg.General.Platform = "stub"
	p, err := cfg.Provider()
	if err != nil {
		t.Fatalf("Provider failed: %v", err)
	}
	if p.Name() != "stub" {
		t.Errorf("Expected stub provider, got %s", p.Name())
	}
}

func TestManager_Import(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "termax.yaml")
	os.WriteFile(yamlPath, []byte("general:\n  platform: claude\n  neighbors: 3\nclaude:\n  api_key: sk-ant-0123456789\n  max_tokens: 512\n  stop_sequences: [\"END\", \"STOP\"]\n"), 0600)
	jsonPath := filepath.Join(dir, "termax.json")
	os.WriteFile(jsonPath, []byte(`{"general": {"platform": "openai"}, "openai": {"temperature": 0.5}}`), 0600)
	badPath := filepath.Join(dir, "bad.yaml")
	os.WriteFile(badPath, []byte("general:\n  platform: claude\n  bogus: 1\n"), 0600)

	t.Run("YAML", func(t *testing.T) {
		m, kv := newTestManager(t)
		keys, err := m.Import(yamlPath)
		if err != nil {
			t.Fatalf("Import failed: %v", err)
		}
		if len(keys) != 5 {
			t.Errorf("Expected 5 keys, got %v", keys)
		}
		if kv["claude.stop_sequences"] != "END,STOP" {
			t.Errorf("Unexpected list value %q", kv["claude.stop_sequences"])
		}
		if !credential.IsSealed(kv["claude.api_key"]) {
			t.Error("Imported secrets should be sealed")
		}
	})

	t.Run("JSON", func(t *testing.T) {
		m, kv := newTestManager(t)
		if _, err := m.Import(jsonPath); err != nil {
			t.Fatalf("Import failed: %v", err)
		}
		if kv["openai.temperature"] != "0.5" {
			t.Errorf("Unexpected temperature %q", kv["openai.temperature"])
		}
	})

	t.Run("Invalid entries write nothing", func(t *testing.T) {
		m, kv := newTestManager(t)
		if _, err := m.Import(badPath); !errors.Is(err, ErrUnknownKey) {
			t.Errorf("Expected ErrUnknownKey, got %v", err)
		}
		if len(kv) != 0 {
			t.Errorf("Expected nothing written, got %v", kv)
		}
	})

	t.Run("Unsupported format", func(t *testing.T) {
		m, _ := newTestManager(t)
		if _, err := m.Import(filepath.Join(dir, "termax.toml")); err == nil {
			t.Error("Expected error")
		}
	})
}
