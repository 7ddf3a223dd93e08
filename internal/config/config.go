// Package config charge la configuration du serveur: valeurs par défaut, puis fichier TOML,
// puis variables d'environnement HIDAYA_* (un fichier .env est lu s'il existe).
// Les flags de la ligne de commande s'appliquent en dernier, dans cmd/hidaya-server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const DefaultConfigPath = "hidaya.toml"

type Config struct {
	Addr    string  `toml:"addr"`
	DBPath  string  `toml:"db_path"`
	Log     Log     `toml:"log"`
	Content Content `toml:"content"`
	Prayer  Prayer  `toml:"prayer"`
	Cache   Cache   `toml:"cache"`
	Offline Offline `toml:"offline"`
	Audio   Audio   `toml:"audio"`
	MQTT    MQTT    `toml:"mqtt"`
	Search  Search  `toml:"search"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" | "console"
}

type Content struct {
	Endpoint    string   `toml:"endpoint"`
	Translation string   `toml:"translation"`
	Timeout     Duration `toml:"timeout"`
}

type Prayer struct {
	Endpoint      string   `toml:"endpoint"`
	Method        int      `toml:"method"`
	GeoIPEndpoint string   `toml:"geoip_endpoint"`
	Latitude      *float64 `toml:"latitude"`
	Longitude     *float64 `toml:"longitude"`
	Refresh       Duration `toml:"refresh"`
}

type Cache struct {
	Backend string   `toml:"backend"` // "memory" | "redis"
	TTL     Duration `toml:"ttl"`
	Redis   Redis    `toml:"redis"`
}

type Redis struct {
	Addr     string `toml:"addr"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type Offline struct {
	Dir         string `toml:"dir"`
	Workers     int    `toml:"workers"`
	Concurrency int    `toml:"concurrency"`
}

type Audio struct {
	Driver string `toml:"driver"` // "none" | "mpv"
	Binary string `toml:"binary"`
}

type MQTT struct {
	Broker        string `toml:"broker"`
	ClientID      string `toml:"client_id"`
	Username      string `toml:"username"`
	Password      string `toml:"password"`
	EventsPrefix  string `toml:"events_prefix"`
	CommandsTopic string `toml:"commands_topic"`
}

type Search struct {
	Debounce Duration `toml:"debounce"`
}

// Duration accepte "10s", "24h"... dans le TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default() Config {
	return Config{
		Addr:   "127.0.0.1:8080",
		DBPath: "hidaya.db",
		Log:    Log{Level: "info", Format: "json"},
		Content: Content{
			Endpoint:    "https://api.alquran.cloud/v1",
			Translation: "en.asad",
			Timeout:     Duration{10 * time.Second},
		},
		Prayer: Prayer{
			Endpoint:      "https://api.aladhan.com/v1",
			Method:        2,
			GeoIPEndpoint: "http://ip-api.com/json",
			Refresh:       Duration{time.Minute},
		},
		Cache:   Cache{Backend: "memory", TTL: Duration{24 * time.Hour}},
		Offline: Offline{Dir: "offline", Workers: 1, Concurrency: 4},
		Audio:   Audio{Driver: "none", Binary: "mpv"},
		MQTT:    MQTT{ClientID: "hidaya-server", EventsPrefix: "hidaya/events", CommandsTopic: "hidaya/commands"},
		Search:  Search{Debounce: Duration{300 * time.Millisecond}},
	}
}

// Load applique, dans l'ordre: défauts, .env, fichier TOML (HIDAYA_CONFIG ou path), environnement.
// Un fichier absent n'est pas une erreur.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if v := os.Getenv("HIDAYA_CONFIG"); v != "" {
		path = v
	}
	if path == "" {
		path = DefaultConfigPath
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}
	float := func(key string, dst **float64) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = &f
		}
	}

	str("HIDAYA_ADDR", &cfg.Addr)
	str("HIDAYA_DB_PATH", &cfg.DBPath)
	str("HIDAYA_LOG_LEVEL", &cfg.Log.Level)
	str("HIDAYA_LOG_FORMAT", &cfg.Log.Format)

	str("HIDAYA_CONTENT_URL", &cfg.Content.Endpoint)
	str("HIDAYA_TRANSLATION", &cfg.Content.Translation)
	dur("HIDAYA_FETCH_TIMEOUT", &cfg.Content.Timeout)

	str("HIDAYA_PRAYER_URL", &cfg.Prayer.Endpoint)
	integer("HIDAYA_PRAYER_METHOD", &cfg.Prayer.Method)
	str("HIDAYA_GEOIP_URL", &cfg.Prayer.GeoIPEndpoint)
	float("HIDAYA_LATITUDE", &cfg.Prayer.Latitude)
	float("HIDAYA_LONGITUDE", &cfg.Prayer.Longitude)
	dur("HIDAYA_PRAYER_REFRESH", &cfg.Prayer.Refresh)

	str("HIDAYA_CACHE", &cfg.Cache.Backend)
	dur("HIDAYA_CACHE_TTL", &cfg.Cache.TTL)
	str("HIDAYA_REDIS_ADDR", &cfg.Cache.Redis.Addr)
	str("HIDAYA_REDIS_USERNAME", &cfg.Cache.Redis.Username)
	str("HIDAYA_REDIS_PASSWORD", &cfg.Cache.Redis.Password)
	integer("HIDAYA_REDIS_DB", &cfg.Cache.Redis.DB)

	str("HIDAYA_OFFLINE_DIR", &cfg.Offline.Dir)
	integer("HIDAYA_WORKERS", &cfg.Offline.Workers)
	integer("HIDAYA_PREFETCH_CONCURRENCY", &cfg.Offline.Concurrency)

	str("HIDAYA_AUDIO", &cfg.Audio.Driver)
	str("HIDAYA_AUDIO_BINARY", &cfg.Audio.Binary)

	str("HIDAYA_MQTT_BROKER", &cfg.MQTT.Broker)
	str("HIDAYA_MQTT_CLIENT_ID", &cfg.MQTT.ClientID)
	str("HIDAYA_MQTT_USERNAME", &cfg.MQTT.Username)
	str("HIDAYA_MQTT_PASSWORD", &cfg.MQTT.Password)
	str("HIDAYA_MQTT_EVENTS_PREFIX", &cfg.MQTT.EventsPrefix)
	str("HIDAYA_MQTT_COMMANDS_TOPIC", &cfg.MQTT.CommandsTopic)

	dur("HIDAYA_SEARCH_DEBOUNCE", &cfg.Search.Debounce)

	return errors.Join(errs...)
}

func (c Config) Validate() error {
	var errs []error
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		errs = append(errs, fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend))
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		errs = append(errs, errors.New("cache.redis.addr is required with the redis backend"))
	}
	if c.Audio.Driver != "none" && c.Audio.Driver != "mpv" {
		errs = append(errs, fmt.Errorf("audio.driver must be none or mpv, got %q", c.Audio.Driver))
	}
	if (c.Prayer.Latitude == nil) != (c.Prayer.Longitude == nil) {
		errs = append(errs, errors.New("prayer.latitude and prayer.longitude must be set together"))
	}
	if c.Prayer.Latitude != nil && (*c.Prayer.Latitude < -90 || *c.Prayer.Latitude > 90) {
		errs = append(errs, errors.New("prayer.latitude must be in [-90, 90]"))
	}
	if c.Prayer.Longitude != nil && (*c.Prayer.Longitude < -180 || *c.Prayer.Longitude > 180) {
		errs = append(errs, errors.New("prayer.longitude must be in [-180, 180]"))
	}
	if c.Offline.Workers < 1 {
		errs = append(errs, errors.New("offline.workers must be >= 1"))
	}
	if c.Offline.Concurrency < 1 {
		errs = append(errs, errors.New("offline.concurrency must be >= 1"))
	}
	return errors.Join(errs...)
}
