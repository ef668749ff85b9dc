// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/konsulton-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete konsulton configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Offline blocks every non-loopback network call, downloads included.
	Offline bool `toml:"offline" json:"offline"`

	Models    ModelsConfig    `toml:"models" json:"models"`
	Inference InferenceConfig `toml:"inference" json:"inference"`
	Chat      ChatConfig      `toml:"chat" json:"chat"`
	UI        UIConfig        `toml:"ui" json:"ui"`
	Metrics   MetricsConfig   `toml:"metrics" json:"metrics"`
}

// ModelsConfig controls where model files live and how they are fetched.
type ModelsConfig struct {
	// Dir overrides the platform models directory. Empty means auto.
	Dir string `toml:"dir" json:"dir"`

	// ResponseTimeout bounds connect plus response headers, in seconds.
	// The body itself is never time-limited; large models take a while.
	ResponseTimeout int `toml:"response_timeout" json:"response_timeout"`

	UserAgent string `toml:"user_agent" json:"user_agent"`
}

// InferenceConfig selects and configures the inference backend.
type InferenceConfig struct {
	// Backend is "ollama" or "openai".
	Backend string `toml:"backend" json:"backend"`

	OllamaURL string `toml:"ollama_url" json:"ollama_url"`

	// OpenAIURL is the base URL of an OpenAI-compatible server
	// (llama-server, LM Studio, vLLM), including the /v1 suffix.
	OpenAIURL string `toml:"openai_url" json:"openai_url"`
	OpenAIKey string `toml:"openai_key" json:"openai_key"`

	// RequestTimeout bounds one generate call, in seconds.
	RequestTimeout int `toml:"request_timeout" json:"request_timeout"`

	// KeepAlive is passed to ollama as the model keep-alive duration.
	KeepAlive string `toml:"keep_alive" json:"keep_alive"`
}

// ChatConfig holds conversation settings.
type ChatConfig struct {
	// HistoryWindow is how many prior messages are replayed into the prompt.
	HistoryWindow int `toml:"history_window" json:"history_window"`

	// SystemPrompt replaces the built-in persona when set.
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`

	// MaxTranscripts caps saved transcripts; the oldest are pruned.
	MaxTranscripts int `toml:"max_transcripts" json:"max_transcripts"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Locale is a BCP 47 tag; "id" and "en" have translations.
	Locale string `toml:"locale" json:"locale"`

	// Theme is "auto", "dark" or "light".
	Theme string `toml:"theme" json:"theme"`

	RenderMarkdown bool `toml:"render_markdown" json:"render_markdown"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	// Addr is a host:port to serve /metrics on. Empty disables it.
	Addr string `toml:"addr" json:"addr"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"

	currentVersion = "1"
)

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Version: currentVersion,
		Offline: false,
		Models: ModelsConfig{
			Dir:             "",
			ResponseTimeout: 30,
			UserAgent:       "konsulton/1.0",
		},
		Inference: InferenceConfig{
			Backend:        BackendOllama,
			OllamaURL:      "http://127.0.0.1:11434",
			OpenAIURL:      "http://127.0.0.1:8080/v1",
			RequestTimeout: 300,
			KeepAlive:      "5m",
		},
		Chat: ChatConfig{
			HistoryWindow:  6,
			MaxTranscripts: 100,
		},
		UI: UIConfig{
			Locale:         "id",
			Theme:          "auto",
			RenderMarkdown: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the konsulton configuration directory.
// KONSULTON_HOME overrides the default ~/.konsulton.
func ConfigDir() (string, error) {
	if dir := os.Getenv("KONSULTON_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".konsulton"), nil
}

func pathInConfigDir(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) { return pathInConfigDir("config.toml") }

// PrefsPath returns the path of the preferences database.
func PrefsPath() (string, error) { return pathInConfigDir("chat_prefs.db") }

// LogPath returns the path of the TUI log file.
func LogPath() (string, error) { return pathInConfigDir("konsulton.log") }

// HistoryPath returns the path of the REPL input history.
func HistoryPath() (string, error) { return pathInConfigDir("chat_history") }

// TranscriptsDir returns the directory saved conversations are written to.
func TranscriptsDir() (string, error) { return pathInConfigDir("transcripts") }

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens a config file to 0600.
// SECURITY: the file may hold an API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads ~/.konsulton/config.toml, falling back to defaults when the file
// does not exist. Environment overrides are applied last, then the result is
// validated.
func Load() (*Config, error) {
	path, err := ConfigPathTOML()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file. A missing
// file is not an error.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config: %w", err)
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config: %w", statErr)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file on top of cfg.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys ignored: %s\n", strings.Join(keys, ", "))
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# konsulton configuration file\n")
	buf.WriteString("# Generated by konsulton - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	switch strings.ToLower(c.Inference.Backend) {
	case BackendOllama, BackendOpenAI:
	default:
		errs = append(errs, ValidationError{
			Field:   "inference.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: ollama, openai", c.Inference.Backend),
		})
	}

	for field, raw := range map[string]string{
		"inference.ollama_url": c.Inference.OllamaURL,
		"inference.openai_url": c.Inference.OpenAIURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("invalid URL '%s'", raw)})
		}
	}

	if c.Inference.RequestTimeout < 0 {
		errs = append(errs, ValidationError{Field: "inference.request_timeout", Message: "must not be negative"})
	}
	if c.Models.ResponseTimeout < 0 {
		errs = append(errs, ValidationError{Field: "models.response_timeout", Message: "must not be negative"})
	}
	if c.Chat.HistoryWindow < 0 || c.Chat.HistoryWindow > 100 {
		errs = append(errs, ValidationError{
			Field:   "chat.history_window",
			Message: fmt.Sprintf("must be between 0 and 100, got %d", c.Chat.HistoryWindow),
		})
	}
	if c.Chat.MaxTranscripts < 0 {
		errs = append(errs, ValidationError{Field: "chat.max_transcripts", Message: "must not be negative"})
	}

	switch strings.ToLower(c.UI.Theme) {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}

	if c.Models.Dir != "" && !filepath.IsAbs(c.Models.Dir) {
		errs = append(errs, ValidationError{Field: "models.dir", Message: "must be an absolute path"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values that have a meaningful default.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Inference.Backend == "" {
		c.Inference.Backend = d.Inference.Backend
	}
	c.Inference.Backend = strings.ToLower(c.Inference.Backend)
	if c.Inference.OllamaURL == "" {
		c.Inference.OllamaURL = d.Inference.OllamaURL
	}
	if c.Inference.OpenAIURL == "" {
		c.Inference.OpenAIURL = d.Inference.OpenAIURL
	}
	if c.Inference.KeepAlive == "" {
		c.Inference.KeepAlive = d.Inference.KeepAlive
	}
	if c.Models.UserAgent == "" {
		c.Models.UserAgent = d.Models.UserAgent
	}
	if c.UI.Locale == "" {
		c.UI.Locale = d.UI.Locale
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - KONSULTON_MODELS_DIR: overrides models.dir
//   - KONSULTON_BACKEND: overrides inference.backend
//   - KONSULTON_OLLAMA_URL: overrides inference.ollama_url
//   - KONSULTON_OPENAI_URL: overrides inference.openai_url
//   - KONSULTON_OPENAI_KEY: overrides inference.openai_key
//   - KONSULTON_LOCALE: overrides ui.locale
//   - KONSULTON_OFFLINE: "1" or "true" enables offline mode
//   - KONSULTON_METRICS_ADDR: overrides metrics.addr
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("KONSULTON_MODELS_DIR"); v != "" {
		c.Models.Dir = v
	}
	if v := os.Getenv("KONSULTON_BACKEND"); v != "" {
		c.Inference.Backend = v
	}
	if v := os.Getenv("KONSULTON_OLLAMA_URL"); v != "" {
		c.Inference.OllamaURL = v
	}
	if v := os.Getenv("KONSULTON_OPENAI_URL"); v != "" {
		c.Inference.OpenAIURL = v
	}
	if v := os.Getenv("KONSULTON_OPENAI_KEY"); v != "" {
		c.Inference.OpenAIKey = v
	}
	if v := os.Getenv("KONSULTON_LOCALE"); v != "" {
		c.UI.Locale = v
	}
	if v := os.Getenv("KONSULTON_OFFLINE"); v != "" {
		c.Offline = parseBool(v)
	}
	if v := os.Getenv("KONSULTON_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value by its TOML key (e.g. "chat.history_window").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value by its TOML key. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks the struct by toml tag names.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tomlName(t.Field(i)) == strings.ToLower(name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func tomlName(f reflect.StructField) string {
	tag := f.Tag.Get("toml")
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	if tag == "" {
		return strings.ToLower(f.Name)
	}
	return tag
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// AllKeys returns every settable key in dot notation, sorted.
func AllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := prefix + tomlName(f)
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, name+".")
				continue
			}
			keys = append(keys, name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of the config. All fields are values, so a shallow
// copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a JSON rendering of the config for debugging.
// SECURITY: Redacts the API key so it never reaches logs.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Inference.OpenAIKey != "" {
		safe.Inference.OpenAIKey = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
