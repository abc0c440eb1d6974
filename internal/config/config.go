// Package config is the typed view of the configuration table. Keys are
// "section.name": the general section plus one section per platform.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/felixgeelhaar/termax/internal/credential"
	"github.com/felixgeelhaar/termax/internal/memory"
	"github.com/felixgeelhaar/termax/internal/provider"
	"github.com/felixgeelhaar/termax/internal/store"
)

// ErrNotConfigured means no usable platform is set up yet.
var ErrNotConfigured = errors.New("termax is not configured")

// ErrUnknownKey is returned for keys outside the known sections.
var ErrUnknownKey = errors.New("unknown configuration key")

const (
	GeneralSection = "general"

	DefaultStorageSize = memory.DefaultCapacity
	DefaultNeighbors   = 5

	EmbedderLocal    = "local"
	EmbedderProvider = "provider"
)

var generalKeys = map[string]func(string) error{
	"platform":     validPlatform,
	"auto_execute": validBool,
	"show_command": validBool,
	"storage_size": validPositiveInt,
	"eviction":     validEviction,
	"neighbors":    validPositiveInt,
	"ignore":       validAny,
	"embedder":     validEmbedder,
}

var platformKeys = map[string]func(string) error{
	"api_key":        validAny,
	"secret_key":     validAny,
	"model":          validAny,
	"base_url":       validAny,
	"temperature":    validFloat,
	"top_p":          validFloat,
	"top_k":          validPositiveInt,
	"max_tokens":     validPositiveInt,
	"stop_sequences": validAny,
	"binary":         validAny,
	"args":           validAny,
}

// KV is the raw key/value table. store.Storage satisfies it.
type KV interface {
	SetConfig(key, value string) error
	GetConfig(key string) (string, error)
	DeleteConfig(key string) error
	ListConfig(prefix string) (map[string]string, error)
}

// Sealer protects secret values at rest.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(stored string) (string, error)
}

type General struct {
	Platform    string
	AutoExecute bool
	ShowCommand bool
	StorageSize int
	Eviction    store.EvictionPolicy
	Neighbors   int
	Ignore      []string
	Embedder    string
}

type Platform struct {
	APIKey        string
	SecretKey     string
	Model         string
	BaseURL       string
	Binary        string
	Args          []string
	Temperature   *float64
	TopP          *float64
	TopK          int
	MaxTokens     int
	StopSequences []string
}

type Config struct {
	General   General
	Platforms map[string]Platform
}

// Current returns the settings of the selected platform.
func (c *Config) Current() Platform {
	return c.Platforms[c.General.Platform]
}

// Validate reports ErrNotConfigured when no known platform is selected.
func (c *Config) Validate() error {
	if c.General.Platform == "" {
		return fmt.Errorf("%w: no platform selected", ErrNotConfigured)
	}
	if err := validPlatform(c.General.Platform); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}
	return nil
}

// ProviderSettings converts the selected platform for provider.New.
func (c *Config) ProviderSettings() provider.Settings {
	p := c.Current()
	return provider.Settings{
		APIKey:    p.APIKey,
		SecretKey: p.SecretKey,
		Model:     p.Model,
		BaseURL:   p.BaseURL,
		Binary:    p.Binary,
		Args:      p.Args,
		Tuning: provider.Tuning{
			Temperature:   p.Temperature,
			TopP:          p.TopP,
			TopK:          p.TopK,
			MaxTokens:     p.MaxTokens,
			StopSequences: p.StopSequences,
		},
	}
}

// Provider validates the configuration and builds the selected backend.
// Missing credentials are reported as ErrNotConfigured.
func (c *Config) Provider() (provider.Provider, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	p, err := provider.New(c.General.Platform, c.ProviderSettings())
	if errors.Is(err, provider.ErrNotConfigured) {
		return nil, fmt.Errorf("%w: %w", ErrNotConfigured, err)
	}
	return p, err
}

func (c *Config) MemoryOptions() memory.Options {
	return memory.Options{Capacity: c.General.StorageSize, Policy: c.General.Eviction}
}

// Manager reads and writes configuration through a KV table, sealing
// secrets on the way in.
type Manager struct {
	kv     KV
	sealer Sealer
}

func NewManager(kv KV, sealer Sealer) *Manager {
	return &Manager{kv: kv, sealer: sealer}
}

// SplitKey splits "section.name" and checks it against the known keys.
func SplitKey(key string) (section, name string, err error) {
	section, name, ok := strings.Cut(key, ".")
	if !ok || section == "" || name == "" {
		return "", "", fmt.Errorf("%w: %q (want section.name)", ErrUnknownKey, key)
	}
	if _, err := validatorFor(section, name); err != nil {
		return "", "", err
	}
	return section, name, nil
}

func validatorFor(section, name string) (func(string) error, error) {
	var table map[string]func(string) error
	if section == GeneralSection {
		table = generalKeys
	} else if validPlatform(section) == nil {
		table = platformKeys
	}
	v, ok := table[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownKey, section, name)
	}
	return v, nil
}

// Set validates and stores one value.
func (m *Manager) Set(key, value string) error {
	section, name, err := SplitKey(key)
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	v, _ := validatorFor(section, name)
	if err := v(value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if credential.IsSecretKey(key) && m.sealer != nil {
		if value, err = m.sealer.Seal(value); err != nil {
			return fmt.Errorf("failed to seal %s: %w", key, err)
		}
	}
	return m.kv.SetConfig(key, value)
}

// Get returns the stored value with secrets opened.
func (m *Manager) Get(key string) (string, error) {
	if _, _, err := SplitKey(key); err != nil {
		return "", err
	}
	val, err := m.kv.GetConfig(key)
	if err != nil {
		return "", err
	}
	return m.open(key, val)
}

func (m *Manager) Unset(key string) error {
	if _, _, err := SplitKey(key); err != nil {
		return err
	}
	return m.kv.DeleteConfig(key)
}

// List returns every stored key. When mask is set, secrets are shown
// masked instead of opened.
func (m *Manager) List(mask bool) (map[string]string, error) {
	raw, err := m.kv.ListConfig("")
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if v, err = m.open(k, v); err != nil {
			return nil, err
		}
		if mask && credential.IsSecretKey(k) {
			v = credential.Mask(v)
		}
		out[k] = v
	}
	return out, nil
}

func (m *Manager) open(key, val string) (string, error) {
	if !credential.IsSecretKey(key) || m.sealer == nil {
		return val, nil
	}
	opened, err := m.sealer.Open(val)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", key, err)
	}
	return opened, nil
}

// overrides are the TERMAX_* environment variables. They win over stored
// values for the lifetime of the process.
type overrides struct {
	Platform    string `env:"TERMAX_PLATFORM"`
	APIKey      string `env:"TERMAX_API_KEY"`
	Model       string `env:"TERMAX_MODEL"`
	BaseURL     string `env:"TERMAX_BASE_URL"`
	AutoExecute *bool  `env:"TERMAX_AUTO_EXECUTE"`
	ShowCommand *bool  `env:"TERMAX_SHOW_COMMAND"`
	StorageSize int    `env:"TERMAX_STORAGE_SIZE"`
}

// Load reads the whole table, applies defaults and then environment
// overrides. It does not validate; call Config.Validate.
func (m *Manager) Load() (*Config, error) {
	all, err := m.List(false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		General: General{
			StorageSize: DefaultStorageSize,
			Eviction:    store.EvictOldest,
			Neighbors:   DefaultNeighbors,
			Embedder:    EmbedderLocal,
		},
		Platforms: map[string]Platform{},
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		section, name, err := SplitKey(k)
		if err != nil {
			// Stale keys from older versions are ignored.
			continue
		}
		if section == GeneralSection {
			applyGeneral(&cfg.General, name, all[k])
			continue
		}
		p := cfg.Platforms[section]
		applyPlatform(&p, name, all[k])
		cfg.Platforms[section] = p
	}

	var o overrides
	if err := env.Parse(&o); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	o.apply(cfg)
	return cfg, nil
}

func (o overrides) apply(cfg *Config) {
	if o.Platform != "" {
		cfg.General.Platform = o.Platform
	}
	if o.AutoExecute != nil {
		cfg.General.AutoExecute = *o.AutoExecute
	}
	if o.ShowCommand != nil {
		cfg.General.ShowCommand = *o.ShowCommand
	}
	if o.StorageSize > 0 {
		cfg.General.StorageSize = o.StorageSize
	}
	if cfg.General.Platform == "" {
		return
	}
	p := cfg.Platforms[cfg.General.Platform]
	if o.APIKey != "" {
		p.APIKey = o.APIKey
	}
	if o.Model != "" {
		p.Model = o.Model
	}
	if o.BaseURL != "" {
		p.BaseURL = o.BaseURL
	}
	cfg.Platforms[cfg.General.Platform] = p
}

func applyGeneral(g *General, name, val string) {
	switch name {
	case "platform":
		g.Platform = val
	case "auto_execute":
		g.AutoExecute, _ = strconv.ParseBool(val)
	case "show_command":
		g.ShowCommand, _ = strconv.ParseBool(val)
	case "storage_size":
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			g.StorageSize = n
		}
	case "eviction":
		g.Eviction = store.ParseEvictionPolicy(val)
	case "neighbors":
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			g.Neighbors = n
		}
	case "ignore":
		g.Ignore = splitList(val)
	case "embedder":
		if val != "" {
			g.Embedder = val
		}
	}
}

func applyPlatform(p *Platform, name, val string) {
	switch name {
	case "api_key":
		p.APIKey = val
	case "secret_key":
		p.SecretKey = val
	case "model":
		p.Model = val
	case "base_url":
		p.BaseURL = val
	case "binary":
		p.Binary = val
	case "args":
		p.Args = strings.Fields(val)
	case "temperature":
		p.Temperature = parseFloat(val)
	case "top_p":
		p.TopP = parseFloat(val)
	case "top_k":
		p.TopK, _ = strconv.Atoi(val)
	case "max_tokens":
		p.MaxTokens, _ = strconv.Atoi(val)
	case "stop_sequences":
		p.StopSequences = splitList(val)
	}
}

func parseFloat(val string) *float64 {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil
	}
	return &f
}

func splitList(val string) []string {
	var out []string
	for _, s := range strings.Split(val, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func validAny(string) error { return nil }

func validBool(v string) error {
	_, err := strconv.ParseBool(v)
	return err
}

func validPositiveInt(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

func validFloat(v string) error {
	_, err := strconv.ParseFloat(v, 64)
	return err
}

func validEviction(v string) error {
	switch store.EvictionPolicy(v) {
	case store.EvictOldest, store.EvictAll:
		return nil
	}
	return fmt.Errorf("eviction must be %q or %q", store.EvictOldest, store.EvictAll)
}

func validEmbedder(v string) error {
	if v == EmbedderLocal || v == EmbedderProvider {
		return nil
	}
	return fmt.Errorf("embedder must be %q or %q", EmbedderLocal, EmbedderProvider)
}

func validPlatform(v string) error {
	for _, p := range provider.Platforms() {
		if p == v {
			return nil
		}
	}
	return fmt.Errorf("unknown platform %q (one of %s)", v, strings.Join(provider.Platforms(), ", "))
}
