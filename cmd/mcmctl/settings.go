package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mcmlink/mcm/internal/config"
)

// Setting keys. Each is a persistent flag and an MCM_* environment variable
// (dashes become underscores).
const (
	keyMaster    = "master"
	keySecure    = "secure"
	keyTimeout   = "timeout"
	keyHeartbeat = "heartbeat"
	keyBaudrate  = "baudrate"
	keyLogLevel  = "log-level"
	keyFormat    = "format"
	keyConfig    = "config"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultHeartbeat = time.Duration(config.DefaultHeartbeatIntervalMS) * time.Millisecond
	defaultBaudrate  = config.DefaultBaudrate

	formatText = "text"
	formatJSON = "json"
)

// settings resolves options in the order flag, environment, registry
// preference, built-in default.
type settings struct {
	v        *viper.Viper
	registry *config.Registry
	path     string // registry file; empty for the default location
}

func loadSettings(flags *pflag.FlagSet) (*settings, error) {
	v := viper.New()
	v.SetEnvPrefix("MCM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	path := v.GetString(keyConfig)
	var (
		reg *config.Registry
		err error
	)
	if path != "" {
		reg, err = config.LoadRegistryFrom(path)
	} else {
		reg, err = config.LoadRegistry()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Viper defaults rank below flags and environment but above the flag
	// defaults, which makes them the registry layer.
	if prefs := reg.Preferences; prefs != nil {
		if prefs.HeartbeatIntervalMS > 0 {
			v.SetDefault(keyHeartbeat, time.Duration(prefs.HeartbeatIntervalMS)*time.Millisecond)
		}
		if prefs.DefaultBaudrate > 0 {
			v.SetDefault(keyBaudrate, prefs.DefaultBaudrate)
		}
		if prefs.LogLevel != "" {
			v.SetDefault(keyLogLevel, prefs.LogLevel)
		}
	}

	return &settings{v: v, registry: reg, path: path}, nil
}

func (s *settings) timeout() time.Duration   { return s.v.GetDuration(keyTimeout) }
func (s *settings) heartbeat() time.Duration { return s.v.GetDuration(keyHeartbeat) }
func (s *settings) baudrate() int            { return s.v.GetInt(keyBaudrate) }
func (s *settings) logLevel() string         { return s.v.GetString(keyLogLevel) }

func (s *settings) format() (string, error) {
	switch f := strings.ToLower(s.v.GetString(keyFormat)); f {
	case formatText, formatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", f)
	}
}

// target resolves the master to talk to. name is empty when the target is
// not a registered master.
func (s *settings) target() (name, host string, secure bool, err error) {
	name, host, regSecure, err := s.registry.Resolve(s.v.GetString(keyMaster))
	if err != nil {
		return "", "", false, err
	}
	if name != "" {
		s.v.SetDefault(keySecure, regSecure)
	}
	return name, host, s.v.GetBool(keySecure), nil
}

func (s *settings) save() error {
	if s.path != "" {
		return s.registry.SaveTo(s.path)
	}
	return s.registry.Save()
}
