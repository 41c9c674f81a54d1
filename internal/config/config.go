// Package config loads the process configuration from environment
// variables via viper, generalizing the teacher's YAML-file loader to
// the spec's env-var-only CLI surface: there is no config file here,
// only defaults plus whatever the environment overrides.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           int           `mapstructure:"port"`
	DataDir        string        `mapstructure:"data_dir"`
	AdminKey       string        `mapstructure:"admin_key"`
	RoomCacheMax   int           `mapstructure:"room_cache_max"`
	RoomCacheIdle  time.Duration `mapstructure:"room_cache_idle_ms"`
	ReservationTTL time.Duration `mapstructure:"reservation_ms"`
	BackupInterval time.Duration `mapstructure:"backup_interval_ms"`
	BackupKeep     int           `mapstructure:"backup_keep"`
}

// Load reads PORT, DATA_DIR, ADMIN_KEY, ROOM_CACHE_MAX,
// ROOM_CACHE_IDLE_MS, RESERVATION_MS, BACKUP_INTERVAL_MS, and
// BACKUP_KEEP from the environment, falling back to the spec's
// defaults for anything unset.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	v.SetDefault("port", 3000)
	v.SetDefault("data_dir", "./data")
	v.SetDefault("admin_key", "")
	v.SetDefault("room_cache_max", 80)
	v.SetDefault("room_cache_idle_ms", 300000)
	v.SetDefault("reservation_ms", 180000)
	v.SetDefault("backup_interval_ms", 1800000)
	v.SetDefault("backup_keep", 24)

	bindings := map[string]string{
		"port":               "PORT",
		"data_dir":           "DATA_DIR",
		"admin_key":          "ADMIN_KEY",
		"room_cache_max":     "ROOM_CACHE_MAX",
		"room_cache_idle_ms": "ROOM_CACHE_IDLE_MS",
		"reservation_ms":     "RESERVATION_MS",
		"backup_interval_ms": "BACKUP_INTERVAL_MS",
		"backup_keep":        "BACKUP_KEEP",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", env, err)
		}
	}

	cfg := &Config{
		Port:           v.GetInt("port"),
		DataDir:        v.GetString("data_dir"),
		AdminKey:       v.GetString("admin_key"),
		RoomCacheMax:   v.GetInt("room_cache_max"),
		RoomCacheIdle:  time.Duration(v.GetInt64("room_cache_idle_ms")) * time.Millisecond,
		ReservationTTL: time.Duration(v.GetInt64("reservation_ms")) * time.Millisecond,
		BackupInterval: time.Duration(v.GetInt64("backup_interval_ms")) * time.Millisecond,
		BackupKeep:     v.GetInt("backup_keep"),
	}
	return cfg, nil
}
