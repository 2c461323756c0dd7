// Package config provides configuration management for wrap using Viper
// for loading from files, environment variables, and command-line flags.
//
// The configuration describes a scene (host page, container selector,
// fragment, initial values and declarative event actions), the live server,
// file watching and logging. Environment variables use the WRAP_ prefix,
// e.g. WRAP_SERVER_PORT=9000.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/wrap/internal/errors"
	"github.com/conneroisu/wrap/internal/logging"
)

type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Scene  SceneConfig  `mapstructure:"scene" yaml:"scene"`
	Watch  WatchConfig  `mapstructure:"watch" yaml:"watch"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host" yaml:"host"`
	Port           int      `mapstructure:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// SceneConfig describes what gets bound. Values and event assignments are
// lists rather than maps so that their order and the case of placeholder
// names survive Viper, which lowercases map keys.
type SceneConfig struct {
	Page       string        `mapstructure:"page" yaml:"page"`
	Fragment   string        `mapstructure:"fragment" yaml:"fragment"`
	Container  string        `mapstructure:"container" yaml:"container"`
	ValuesFile string        `mapstructure:"values_file" yaml:"values_file"`
	Values     []ValueConfig `mapstructure:"values" yaml:"values"`
	Events     []EventConfig `mapstructure:"events" yaml:"events"`
}

type ValueConfig struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Value string `mapstructure:"value" yaml:"value"`
}

// EventConfig is a declarative callback for an @name declaration.
type EventConfig struct {
	Name      string        `mapstructure:"name" yaml:"name"`
	Type      string        `mapstructure:"type" yaml:"type"`
	Set       []ValueConfig `mapstructure:"set" yaml:"set"`
	Increment []string      `mapstructure:"increment" yaml:"increment"`
}

type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

const (
	DefaultHost      = "localhost"
	DefaultPort      = 8080
	DefaultContainer = "#app"
	DefaultDebounce  = 200 * time.Millisecond
)

// EnvPrefix prefixes every environment variable, e.g. WRAP_SERVER_PORT.
const EnvPrefix = "WRAP"

var envKeys = []string{
	"server.host",
	"server.port",
	"server.allowed_origins",
	"scene.page",
	"scene.fragment",
	"scene.container",
	"scene.values_file",
	"watch.enabled",
	"watch.debounce",
	"log.level",
	"log.format",
}

// BindEnv makes v read WRAP_<SECTION>_<OPTION> variables. Scalar keys are
// bound explicitly so that Unmarshal sees them even when no file sets them.
func BindEnv(v *viper.Viper) error {
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	for _, key := range envKeys {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(replacer.Replace(key))); err != nil {
			return err
		}
	}

	return nil
}

// Load reads the configuration from the global Viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads, defaults and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "failed to decode configuration").
			WithContext("cause", err.Error())
	}

	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}
	if !v.IsSet("server.port") {
		config.Server.Port = DefaultPort
	}
	if config.Scene.Container == "" {
		config.Scene.Container = DefaultContainer
	}
	if !v.IsSet("watch.enabled") {
		config.Watch.Enabled = true
	}
	if config.Watch.Debounce == 0 {
		config.Watch.Debounce = DefaultDebounce
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
	for i := range config.Scene.Events {
		if config.Scene.Events[i].Type == "" {
			config.Scene.Events[i].Type = "click"
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// RequireFragment reports an error when no fragment file is configured.
func (c *Config) RequireFragment() error {
	if strings.TrimSpace(c.Scene.Fragment) == "" {
		var vec errors.ValidationErrorCollection
		vec.AddField("scene.fragment", c.Scene.Fragment, "a fragment file is required",
			"pass --fragment or set scene.fragment in .wrap.yml")
		return vec.ToWrapError()
	}

	return nil
}

// Logger builds the logger described by the log section.
func (c *Config) Logger() logging.Logger {
	level, _ := logging.ParseLevel(c.Log.Level)
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = c.Log.Format

	return logging.NewLogger(cfg)
}

// Addr returns host:port for the live server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func validateConfig(config *Config) error {
	var vec errors.ValidationErrorCollection

	validateServerConfig(&config.Server, &vec)
	validateSceneConfig(&config.Scene, &vec)

	if config.Watch.Debounce < 0 {
		vec.AddField("watch.debounce", config.Watch.Debounce, "debounce must not be negative")
	}
	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		vec.AddField("log.level", config.Log.Level, err.Error(), "use debug, info, warn or error")
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		vec.AddField("log.format", config.Log.Format, "unsupported log format", "use text or json")
	}

	if vec.HasErrors() {
		return vec.ToWrapError()
	}

	return nil
}

func validateServerConfig(config *ServerConfig, vec *errors.ValidationErrorCollection) {
	// 0 lets the OS pick a port.
	if config.Port < 0 || config.Port > 65535 {
		vec.AddField("server.port", config.Port, fmt.Sprintf("port %d is not in valid range 0-65535", config.Port))
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", " "}
	for _, char := range dangerousChars {
		if strings.Contains(config.Host, char) {
			vec.AddField("server.host", config.Host, "host contains dangerous character: "+char)
			break
		}
	}
}

func validateSceneConfig(config *SceneConfig, vec *errors.ValidationErrorCollection) {
	for i, val := range config.Values {
		if val.Name == "" {
			vec.AddField(fmt.Sprintf("scene.values[%d].name", i), val.Name, "value name is required")
		}
	}

	for i, ev := range config.Events {
		field := fmt.Sprintf("scene.events[%d]", i)
		if ev.Name == "" {
			vec.AddField(field+".name", ev.Name, "event name is required")
		}
		if strings.HasPrefix(ev.Name, "@") {
			vec.AddField(field+".name", ev.Name, "event name must not include the @ prefix",
				"use "+strings.TrimPrefix(ev.Name, "@"))
		}
		for j, set := range ev.Set {
			if set.Name == "" {
				vec.AddField(fmt.Sprintf("%s.set[%d].name", field, j), set.Name, "placeholder name is required")
			}
		}
	}
}
