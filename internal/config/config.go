// Package config loads the coordinator's configuration from the
// process environment, matching spec §6 and the teacher's own
// os.Getenv-based startup in cmd/server/main.go.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ryandielhenn/zephyrcache/internal/aae"
)

// Config is the parsed process configuration, before it is turned into
// a CoordinatorState (the ScheduleWants, LocalEndpoint, RemoteEndpoint
// and InitialBucketList methods below supply the translated fields).
type Config struct {
	Scope aae.Scope

	LocalNVal  int
	RemoteNVal int

	Bucket     string
	BucketType string

	NoCheck   int
	AllCheck  int
	HourCheck int
	DayCheck  int

	PeerIP       string
	PeerPort     int
	PeerProtocol string

	LocalIP       string
	LocalPort     int
	LocalProtocol string

	QueueName string
}

// Load reads every recognized environment variable listed in spec §6
// and validates the scope-dependent required fields.
func Load() (Config, error) {
	scopeStr := os.Getenv("AAE_SCOPE")
	scope, err := parseScope(scopeStr)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Scope:         scope,
		Bucket:        os.Getenv("AAE_BUCKET"),
		BucketType:    os.Getenv("AAE_BUCKETTYPE"),
		PeerIP:        os.Getenv("AAE_PEERIP"),
		PeerProtocol:  envOr("AAE_PEERPROTOCOL", "http"),
		LocalIP:       envOr("AAE_LOCALIP", "127.0.0.1"),
		LocalProtocol: envOr("AAE_LOCALPROTOCOL", "http"),
		QueueName:     envOr("AAE_QUEUENAME", "aae_repl"),
	}

	cfg.LocalNVal, err = envInt("AAE_LOCALNVAL", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.RemoteNVal, err = envInt("AAE_REMOTENVAL", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.NoCheck, err = envInt("AAE_NOCHECK", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.AllCheck, err = envInt("AAE_ALLCHECK", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.HourCheck, err = envInt("AAE_HOURCHECK", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.DayCheck, err = envInt("AAE_DAYCHECK", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.PeerPort, err = envInt("AAE_PEERPORT", 8098)
	if err != nil {
		return Config{}, err
	}
	cfg.LocalPort, err = envInt("AAE_LOCALPORT", 8098)
	if err != nil {
		return Config{}, err
	}

	switch scope {
	case aae.ScopeAll:
		if cfg.LocalNVal <= 0 || cfg.RemoteNVal <= 0 {
			return Config{}, fmt.Errorf("config: scope=all requires positive AAE_LOCALNVAL and AAE_REMOTENVAL")
		}
	case aae.ScopeBucket:
		if cfg.Bucket == "" || cfg.BucketType == "" {
			return Config{}, fmt.Errorf("config: scope=bucket requires AAE_BUCKET and AAE_BUCKETTYPE")
		}
	case aae.ScopeDisabled:
		// no extra requirements
	}

	return cfg, nil
}

// ScheduleWants derives the quota 4-tuple from scope, per spec §6's
// "quota derivation" rule.
func (c Config) ScheduleWants() aae.ScheduleWants {
	switch c.Scope {
	case aae.ScopeAll:
		return aae.ScheduleWants{NoSync: c.NoCheck, AllSync: c.AllCheck}
	case aae.ScopeBucket:
		return aae.ScheduleWants{NoSync: c.NoCheck, AllSync: c.AllCheck, DaySync: c.DayCheck, HourSync: c.HourCheck}
	default:
		return aae.DisabledWants()
	}
}

// LocalEndpoint and RemoteEndpoint translate the config's peer/local
// fields into aae.Endpoint values.
func (c Config) LocalEndpoint() aae.Endpoint {
	return aae.Endpoint{Protocol: c.LocalProtocol, IP: c.LocalIP, Port: c.LocalPort}
}

func (c Config) RemoteEndpoint() aae.Endpoint {
	return aae.Endpoint{Protocol: c.PeerProtocol, IP: c.PeerIP, Port: c.PeerPort}
}

// InitialBucketList builds the single-entry rotating bucket list
// scope=bucket starts with.
func (c Config) InitialBucketList() aae.BucketList {
	if c.Scope != aae.ScopeBucket {
		return nil
	}
	return aae.BucketList{{Name: c.Bucket, Type: c.BucketType}}
}

func parseScope(s string) (aae.Scope, error) {
	switch s {
	case "all":
		return aae.ScopeAll, nil
	case "bucket":
		return aae.ScopeBucket, nil
	case "disabled":
		return aae.ScopeDisabled, nil
	case "":
		return 0, fmt.Errorf("config: AAE_SCOPE is required (all|bucket|disabled)")
	default:
		return 0, fmt.Errorf("config: unrecognized AAE_SCOPE %q", s)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q", key, v)
	}
	return n, nil
}
