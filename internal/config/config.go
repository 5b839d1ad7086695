// Package config loads planner settings from ~/.planner/config.json and PLANNER_*
// environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRemote   = "remote"
)

type Config struct {
	// Backend selects where projects live: sqlite, postgres or remote (a planner server).
	Backend     string `json:"backend,omitempty"`
	DB          string `json:"db,omitempty"`
	PostgresDSN string `json:"postgresDsn,omitempty"`
	ServerURL   string `json:"serverUrl,omitempty"`

	// Notifier selects the change channel: none, sqlite, redis, postgres or mqtt.
	Notifier      string `json:"notifier,omitempty"`
	RedisAddr     string `json:"redisAddr,omitempty"`
	RedisPassword string `json:"redisPassword,omitempty"`
	RedisChannel  string `json:"redisChannel,omitempty"`
	MQTTBroker    string `json:"mqttBroker,omitempty"`
	MQTTTopic     string `json:"mqttTopic,omitempty"`
	MQTTUsername  string `json:"mqttUsername,omitempty"`
	MQTTPassword  string `json:"mqttPassword,omitempty"`

	GuardWindow Duration `json:"guardWindow,omitempty"`
	Debounce    Duration `json:"debounce,omitempty"`
	WeekStart   string   `json:"weekStart,omitempty"`

	Addr string `json:"addr,omitempty"`

	LogLevel  string `json:"logLevel,omitempty"`
	LogFormat string `json:"logFormat,omitempty"`
}

// Duration is a time.Duration stored as a Go duration string ("5s").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("PLANNER_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".planner"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Defaults returns the settings used when neither file nor environment say otherwise.
func Defaults() (Config, error) {
	dir, err := Dir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Backend:     BackendSQLite,
		DB:          filepath.Join(dir, "planner.sqlite"),
		Notifier:    "sqlite",
		GuardWindow: Duration(5 * time.Second),
		Debounce:    Duration(300 * time.Millisecond),
		WeekStart:   "monday",
		Addr:        "127.0.0.1:8080",
		LogLevel:    "info",
		LogFormat:   "console",
	}, nil
}

// LoadFile reads the config file without defaults or environment. A missing file is empty.
func LoadFile() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Load layers defaults, the config file, then PLANNER_* variables.
func Load() (Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return Config{}, err
	}
	file, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	cfg.merge(file)
	env, err := fromEnv(os.Getenv)
	if err != nil {
		return Config{}, err
	}
	cfg.merge(env)
	return cfg, nil
}

// merge copies every set field of o over c.
func (c *Config) merge(o Config) {
	set := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&c.Backend, o.Backend)
	set(&c.DB, o.DB)
	set(&c.PostgresDSN, o.PostgresDSN)
	set(&c.ServerURL, o.ServerURL)
	set(&c.Notifier, o.Notifier)
	set(&c.RedisAddr, o.RedisAddr)
	set(&c.RedisPassword, o.RedisPassword)
	set(&c.RedisChannel, o.RedisChannel)
	set(&c.MQTTBroker, o.MQTTBroker)
	set(&c.MQTTTopic, o.MQTTTopic)
	set(&c.MQTTUsername, o.MQTTUsername)
	set(&c.MQTTPassword, o.MQTTPassword)
	set(&c.WeekStart, o.WeekStart)
	set(&c.Addr, o.Addr)
	set(&c.LogLevel, o.LogLevel)
	set(&c.LogFormat, o.LogFormat)
	if o.GuardWindow > 0 {
		c.GuardWindow = o.GuardWindow
	}
	if o.Debounce > 0 {
		c.Debounce = o.Debounce
	}
}

var envKeys = map[string]func(c *Config, v string) error{
	"PLANNER_BACKEND":        func(c *Config, v string) error { c.Backend = v; return nil },
	"PLANNER_DB":             func(c *Config, v string) error { c.DB = v; return nil },
	"PLANNER_POSTGRES_DSN":   func(c *Config, v string) error { c.PostgresDSN = v; return nil },
	"PLANNER_SERVER_URL":     func(c *Config, v string) error { c.ServerURL = v; return nil },
	"PLANNER_NOTIFIER":       func(c *Config, v string) error { c.Notifier = v; return nil },
	"PLANNER_REDIS_ADDR":     func(c *Config, v string) error { c.RedisAddr = v; return nil },
	"PLANNER_REDIS_PASSWORD": func(c *Config, v string) error { c.RedisPassword = v; return nil },
	"PLANNER_MQTT_BROKER":    func(c *Config, v string) error { c.MQTTBroker = v; return nil },
	"PLANNER_WEEK_START":     func(c *Config, v string) error { c.WeekStart = v; return nil },
	"PLANNER_ADDR":           func(c *Config, v string) error { c.Addr = v; return nil },
	"PLANNER_LOG_LEVEL":      func(c *Config, v string) error { c.LogLevel = v; return nil },
	"PLANNER_LOG_FORMAT":     func(c *Config, v string) error { c.LogFormat = v; return nil },
	"PLANNER_GUARD_WINDOW":   durationKey(func(c *Config, d Duration) { c.GuardWindow = d }),
	"PLANNER_DEBOUNCE":       durationKey(func(c *Config, d Duration) { c.Debounce = d }),
}

func durationKey(set func(c *Config, d Duration)) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		if d <= 0 {
			return fmt.Errorf("must be positive: %s", v)
		}
		set(c, Duration(d))
		return nil
	}
}

func fromEnv(getenv func(string) string) (Config, error) {
	var cfg Config
	for key, apply := range envKeys {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			continue
		}
		if err := apply(&cfg, v); err != nil {
			return Config{}, fmt.Errorf("%s: %w", key, err)
		}
	}
	return cfg, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

// Save writes cfg to the config file, keeping the previous file as config.json.bak.
func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(dir, "config.json.bak.*.tmp", path+".bak", prev, 0o644)
	}
	// Holds credentials.
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

// Set assigns one setting by its json name. Used by `planner config set`.
func (c *Config) Set(key, value string) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	if _, ok := jsonKeys()[key]; !ok {
		return fmt.Errorf("unknown setting: %q", key)
	}
	m[key] = value
	raw, err = json.Marshal(m)
	if err != nil {
		return err
	}
	var out Config
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*c = out
	return nil
}

func jsonKeys() map[string]struct{} {
	return map[string]struct{}{
		"backend": {}, "db": {}, "postgresDsn": {}, "serverUrl": {},
		"notifier": {}, "redisAddr": {}, "redisPassword": {}, "redisChannel": {},
		"mqttBroker": {}, "mqttTopic": {}, "mqttUsername": {}, "mqttPassword": {},
		"guardWindow": {}, "debounce": {}, "weekStart": {}, "addr": {},
		"logLevel": {}, "logFormat": {},
	}
}
