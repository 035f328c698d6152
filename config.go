package tiercache

import "time"

// GlobalConfig holds process-wide cache defaults plus per-repository overrides.
// It arrives already parsed; the struct tags only describe the expected shape.
type GlobalConfig struct {
	Enabled                     bool               `yaml:"enabled" json:"enabled"`
	DefaultPolicy               Policy             `yaml:"defaultPolicy" json:"defaultPolicy"`
	DefaultMaxSize              int                `yaml:"defaultMaxSize" json:"defaultMaxSize"`
	DefaultHotTierSize          int                `yaml:"defaultHotTierSize" json:"defaultHotTierSize"`
	DefaultTTLSeconds           int                `yaml:"defaultTtlSeconds" json:"defaultTtlSeconds"`
	DefaultWriteStrategy        WriteStrategy      `yaml:"defaultWriteStrategy" json:"defaultWriteStrategy"`
	DefaultFlushIntervalSeconds int                `yaml:"defaultFlushInterval" json:"defaultFlushInterval"`
	Repositories                []RepositoryConfig `yaml:"repositories" json:"repositories"`
}

// RepositoryConfig overrides global defaults for one repository.
// Nil fields inherit the global value.
type RepositoryConfig struct {
	RepositoryClass      string         `yaml:"repositoryClass" json:"repositoryClass"`
	Enabled              *bool          `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Policy               *Policy        `yaml:"policy,omitempty" json:"policy,omitempty"`
	MaxSize              *int           `yaml:"maxSize,omitempty" json:"maxSize,omitempty"`
	HotTierSize          *int           `yaml:"hotTierSize,omitempty" json:"hotTierSize,omitempty"`
	TTLSeconds           *int           `yaml:"ttlSeconds,omitempty" json:"ttlSeconds,omitempty"`
	WriteStrategy        *WriteStrategy `yaml:"writeStrategy,omitempty" json:"writeStrategy,omitempty"`
	FlushIntervalSeconds *int           `yaml:"flushIntervalSeconds,omitempty" json:"flushIntervalSeconds,omitempty"`
}

// DefaultGlobalConfig mirrors the defaults applied when nothing is configured.
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		Enabled:                     true,
		DefaultPolicy:               PolicyHotAware,
		DefaultMaxSize:              1000,
		DefaultHotTierSize:          100,
		DefaultTTLSeconds:           300,
		DefaultWriteStrategy:        WriteThrough,
		DefaultFlushIntervalSeconds: 5,
	}
}

// Settings is the effective configuration of one repository cache.
type Settings struct {
	Repository    string
	Enabled       bool
	Policy        Policy
	MaxSize       int
	HotTierSize   int
	TTL           time.Duration
	WriteStrategy WriteStrategy
	FlushInterval time.Duration
}

// Override returns the override registered for repository, if any.
func (g GlobalConfig) Override(repository string) (RepositoryConfig, bool) {
	for _, rc := range g.Repositories {
		if rc.RepositoryClass == repository {
			return rc, true
		}
	}
	return RepositoryConfig{}, false
}

// Resolve overlays the override matching repository onto the global defaults.
// Caching disabled at either level yields a disabled, write-through Settings.
func (g GlobalConfig) Resolve(repository string) Settings {
	s := Settings{
		Repository:    repository,
		Enabled:       g.Enabled,
		Policy:        g.DefaultPolicy,
		MaxSize:       g.DefaultMaxSize,
		HotTierSize:   g.DefaultHotTierSize,
		TTL:           seconds(g.DefaultTTLSeconds),
		WriteStrategy: g.DefaultWriteStrategy,
		FlushInterval: seconds(g.DefaultFlushIntervalSeconds),
	}
	if rc, ok := g.Override(repository); ok {
		rc.overlay(&s)
	}
	if !g.Enabled {
		s.Enabled = false
	}
	if !s.Enabled {
		s.WriteStrategy = WriteThrough
	}
	return s
}

func (rc RepositoryConfig) overlay(s *Settings) {
	if rc.Enabled != nil {
		s.Enabled = *rc.Enabled
	}
	if rc.Policy != nil {
		s.Policy = *rc.Policy
	}
	if rc.MaxSize != nil {
		s.MaxSize = *rc.MaxSize
	}
	if rc.HotTierSize != nil {
		s.HotTierSize = *rc.HotTierSize
	}
	if rc.TTLSeconds != nil {
		s.TTL = seconds(*rc.TTLSeconds)
	}
	if rc.WriteStrategy != nil {
		s.WriteStrategy = *rc.WriteStrategy
	}
	if rc.FlushIntervalSeconds != nil {
		s.FlushInterval = seconds(*rc.FlushIntervalSeconds)
	}
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// Validate checks the global defaults, every override, the settings each
// override resolves to and the settings the defaults resolve to on their own.
// It returns the first *ConfigError found.
func (g GlobalConfig) Validate() error {
	if err := g.validateDefaults(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(g.Repositories))
	for _, rc := range g.Repositories {
		if rc.RepositoryClass == "" {
			return &ConfigError{Field: "repositories", Reason: "override without repositoryClass"}
		}
		if _, dup := seen[rc.RepositoryClass]; dup {
			return &ConfigError{Repository: rc.RepositoryClass, Field: "repositoryClass", Reason: "duplicate override"}
		}
		seen[rc.RepositoryClass] = struct{}{}
		if err := g.Resolve(rc.RepositoryClass).Validate(); err != nil {
			return err
		}
	}
	// repositories without an override run on the defaults alone
	return g.Resolve("").Validate()
}

func (g GlobalConfig) validateDefaults() error {
	switch {
	case !g.DefaultPolicy.valid():
		return &ConfigError{Field: "defaultPolicy", Reason: "unknown policy " + g.DefaultPolicy.String()}
	case !g.DefaultWriteStrategy.valid():
		return &ConfigError{Field: "defaultWriteStrategy", Reason: "unknown strategy " + g.DefaultWriteStrategy.String()}
	case g.DefaultMaxSize < 0:
		return &ConfigError{Field: "defaultMaxSize", Reason: "must not be negative"}
	case g.DefaultHotTierSize < 0:
		return &ConfigError{Field: "defaultHotTierSize", Reason: "must not be negative"}
	case g.DefaultTTLSeconds < 0:
		return &ConfigError{Field: "defaultTtlSeconds", Reason: "must not be negative"}
	case g.DefaultFlushIntervalSeconds < 0:
		return &ConfigError{Field: "defaultFlushInterval", Reason: "must not be negative"}
	}
	return nil
}

// Validate rejects settings that cannot build a cache.
// Disabled settings are always valid.
func (s Settings) Validate() error {
	if !s.Enabled {
		return nil
	}
	fail := func(field, reason string) error {
		return &ConfigError{Repository: s.Repository, Field: field, Reason: reason}
	}
	switch {
	case !s.Policy.valid():
		return fail("policy", "unknown policy "+s.Policy.String())
	case !s.WriteStrategy.valid():
		return fail("writeStrategy", "unknown strategy "+s.WriteStrategy.String())
	case s.MaxSize < 0:
		return fail("maxSize", "must not be negative")
	case s.HotTierSize < 0:
		return fail("hotTierSize", "must not be negative")
	case s.TTL < 0:
		return fail("ttlSeconds", "must not be negative")
	case s.FlushInterval < 0:
		return fail("flushIntervalSeconds", "must not be negative")
	case s.Policy == PolicyTTL && s.TTL == 0:
		return fail("ttlSeconds", "must be positive for the TTL policy")
	case s.WriteStrategy == WriteBack && s.FlushInterval <= 0:
		return fail("flushIntervalSeconds", "must be positive for write-back")
	}
	return nil
}
