// Package settings holds the process-wide configuration of the dispatch
// engine. Settings are loaded once at startup from a YAML file with
// environment overrides, validated, and then passed by reference into the
// dispatcher and transports. Dynamic updates go through Holder.Update with
// a fully validated replacement snapshot; nothing mutates a live Settings
// value in place.
package settings

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EmailSizeLimitFloor is the lowest accepted email.size_limit value.
const EmailSizeLimitFloor = 10000

// envPrefix is the prefix for environment variable overrides; a double
// underscore separates nesting levels, e.g. NOTIFICATIONS_EMAIL__SIZE_LIMIT
// maps to email.size_limit. legacyEnvPrefix is accepted for settings
// migrated from older deployments.
const (
	envPrefix       = "NOTIFICATIONS_"
	legacyEnvPrefix = "OPENDISTRO_NOTIFICATIONS_"
)

// Credentials is a per-account SMTP username/password pair from secure
// settings, keyed by the email account config name.
type Credentials struct {
	Username string `koanf:"username" yaml:"username"`
	Password string `koanf:"password" yaml:"password"`
}

// EmailSettings tunes email assembly and admission.
type EmailSettings struct {
	// SizeLimit is the maximum approximate email size in bytes.
	SizeLimit int `koanf:"size_limit" yaml:"size_limit" validate:"gte=10000"`
	// MinimumHeaderLength approximates MIME header overhead in the size
	// estimate.
	MinimumHeaderLength int `koanf:"minimum_header_length" yaml:"minimum_header_length" validate:"gt=0"`
	// SanitizeHTML toggles HTML body sanitization before MIME assembly.
	SanitizeHTML bool `koanf:"sanitize_html" yaml:"sanitize_html"`
	// SanitizeAllowList adds elements to the sanitizer baseline policy,
	// SanitizeDenyList removes them.
	SanitizeAllowList []string `koanf:"sanitize_allow_list" yaml:"sanitize_allow_list"`
	SanitizeDenyList  []string `koanf:"sanitize_deny_list" yaml:"sanitize_deny_list"`
}

// HTTPSettings tunes the pooled webhook HTTP client.
type HTTPSettings struct {
	MaxConnections         int `koanf:"max_connections" yaml:"max_connections" validate:"gt=0"`
	MaxConnectionsPerRoute int `koanf:"max_connection_per_route" yaml:"max_connection_per_route" validate:"gt=0"`
	ConnectionTimeoutMS    int `koanf:"connection_timeout" yaml:"connection_timeout" validate:"gt=0"`
	SocketTimeoutMS        int `koanf:"socket_timeout" yaml:"socket_timeout" validate:"gt=0"`
}

// ThrottleSettings configures the quota accountant ceilings. A zero ceiling
// means unlimited.
type ThrottleSettings struct {
	MaxRequests       int `koanf:"max_requests" yaml:"max_requests" validate:"gte=0"`
	MaxMessages       int `koanf:"max_messages" yaml:"max_messages" validate:"gte=0"`
	RequestsPerMinute int `koanf:"requests_per_minute" yaml:"requests_per_minute" validate:"gte=0"`
	// WindowMinutes is the counter accounting window. Zero keeps counters
	// running until an explicit reset.
	WindowMinutes int `koanf:"window_minutes" yaml:"window_minutes" validate:"gte=0"`
}

// Settings is the full engine configuration snapshot. Treat values as
// immutable once constructed; replace the whole snapshot to reconfigure.
type Settings struct {
	Email    EmailSettings    `koanf:"email" yaml:"email"`
	HTTP     HTTPSettings     `koanf:"http" yaml:"http"`
	Throttle ThrottleSettings `koanf:"throttle" yaml:"throttle"`

	AllowedConfigTypes []string `koanf:"allowed_config_types" yaml:"allowed_config_types" validate:"min=1"`
	HostDenyList       []string `koanf:"host_deny_list" yaml:"host_deny_list"`
	TooltipSupport     bool     `koanf:"tooltip_support" yaml:"tooltip_support"`

	// Accounts maps email account config names to secure SMTP credentials.
	// LegacyAccounts is consulted as a fallback for migrated settings.
	Accounts       map[string]Credentials `koanf:"accounts" yaml:"accounts"`
	LegacyAccounts map[string]Credentials `koanf:"legacy_accounts" yaml:"legacy_accounts"`
}

// Default returns the settings used when no file or overrides are present.
func Default() *Settings {
	return &Settings{
		Email: EmailSettings{
			SizeLimit:           10000000,
			MinimumHeaderLength: 160,
			SanitizeHTML:        true,
		},
		HTTP: HTTPSettings{
			MaxConnections:         60,
			MaxConnectionsPerRoute: 20,
			ConnectionTimeoutMS:    5000,
			SocketTimeoutMS:        50000,
		},
		Throttle: ThrottleSettings{},
		AllowedConfigTypes: []string{
			"slack",
			"chime",
			"webhook",
			"email",
			"sns",
			"ses_account",
			"smtp_account",
			"email_group",
			"microsoft_teams",
		},
		HostDenyList:   nil,
		TooltipSupport: true,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from the given YAML file (if it exists), then
// overlays environment variable overrides, then validates the result.
func Load(path string) (*Settings, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading settings %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing settings %s: %w", path, err)
		}
	}

	// Legacy prefix first so current-prefix values win on conflict.
	for _, prefix := range []string{legacyEnvPrefix, envPrefix} {
		p := prefix
		if err := k.Load(env.Provider(p, ".", func(s string) string {
			key := strings.ToLower(strings.TrimPrefix(s, p))
			return strings.ReplaceAll(key, "__", ".")
		}), nil); err != nil {
			return nil, fmt.Errorf("loading env overrides: %w", err)
		}
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks bounds on the snapshot, including the size-limit floor.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if s.Email.SizeLimit < EmailSizeLimitFloor {
		return fmt.Errorf("email.size_limit %d is below floor %d", s.Email.SizeLimit, EmailSizeLimitFloor)
	}
	return nil
}

// Save writes the snapshot to the given YAML file path.
func (s *Settings) Save(path string) error {
	data, err := yamlv3.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshalling settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing settings to %s: %w", path, err)
	}
	return nil
}

// IsConfigTypeAllowed reports whether configType may be dispatched to.
func (s *Settings) IsConfigTypeAllowed(configType string) bool {
	for _, t := range s.AllowedConfigTypes {
		if t == configType {
			return true
		}
	}
	return false
}

// AccountCredentials looks up secure SMTP credentials for an email account
// name, falling back to the legacy-prefixed settings for migrated
// deployments. The second return is false when neither holds a full pair.
func (s *Settings) AccountCredentials(accountName string) (Credentials, bool) {
	if c, ok := s.Accounts[accountName]; ok && c.Username != "" && c.Password != "" {
		return c, true
	}
	if c, ok := s.LegacyAccounts[accountName]; ok && c.Username != "" && c.Password != "" {
		return c, true
	}
	return Credentials{}, false
}

// Holder is a thread-safe settings snapshot holder. Components keep a
// *Holder and read Current() per operation, so an Update is observed by
// the next send without coordination.
type Holder struct {
	mu      sync.RWMutex
	current *Settings
}

// NewHolder validates the initial snapshot and wraps it.
func NewHolder(s *Settings) (*Holder, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Holder{current: s}, nil
}

// Current returns the active snapshot. Callers must not mutate it.
func (h *Holder) Current() *Settings {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Update validates and installs a replacement snapshot.
func (h *Holder) Update(s *Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	h.mu.Lock()
	h.current = s
	h.mu.Unlock()
	return nil
}
