package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tapboard/internal/app"
	"tapboard/internal/inventory"
)

// fileConfig is the YAML layout of --config. Empty fields keep the value
// from the environment.
type fileConfig struct {
	Addr         string           `yaml:"addr"`
	DataDir      string           `yaml:"dataDir"`
	Store        string           `yaml:"store"`
	DBPath       string           `yaml:"dbPath"`
	StateFile    string           `yaml:"stateFile"`
	RemoteURL    string           `yaml:"remoteURL"`
	StaticDir    string           `yaml:"staticDir"`
	Revisions    int              `yaml:"revisions"`
	Quiescence   time.Duration    `yaml:"quiescence"`
	ClientTTL    time.Duration    `yaml:"clientTTL"`
	WriteRate    float64          `yaml:"writeRate"`
	WriteBurst   int              `yaml:"writeBurst"`
	OTLPEndpoint string           `yaml:"otlpEndpoint"`
	Seed         *inventory.State `yaml:"seed"`
}

// envConfig reads the process environment.
func envConfig() (app.Config, error) {
	cfg := app.Config{
		Addr:         getenv("ADDR", ":3001"),
		DataDir:      getenv("DATA_DIR", "data"),
		Store:        getenv("STORE", app.StoreSQLite),
		DBPath:       getenv("DB_PATH", ""),
		StateFile:    getenv("STATE_FILE", ""),
		RemoteURL:    getenv("REMOTE_URL", ""),
		StaticDir:    getenv("STATIC_DIR", "dist"),
		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	var err error
	if cfg.Quiescence, err = envDuration("QUIESCENCE"); err != nil {
		return cfg, err
	}
	if cfg.ClientTTL, err = envDuration("CLIENT_TTL"); err != nil {
		return cfg, err
	}
	if v := getenv("WRITE_RATE", ""); v != "" {
		if cfg.WriteRate, err = strconv.ParseFloat(v, 64); err != nil {
			return cfg, fmt.Errorf("WRITE_RATE: %w", err)
		}
	}
	if v := getenv("REVISIONS", ""); v != "" {
		if cfg.Revisions, err = strconv.Atoi(v); err != nil {
			return cfg, fmt.Errorf("REVISIONS: %w", err)
		}
	}
	return cfg, nil
}

// loadConfig layers the YAML file at path, if any, over the environment.
func loadConfig(path string) (app.Config, error) {
	cfg, err := envConfig()
	if err != nil {
		return cfg, err
	}
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.Addr, fc.Addr)
	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.Store, fc.Store)
	setString(&cfg.DBPath, fc.DBPath)
	setString(&cfg.StateFile, fc.StateFile)
	setString(&cfg.RemoteURL, fc.RemoteURL)
	setString(&cfg.StaticDir, fc.StaticDir)
	setString(&cfg.OTLPEndpoint, fc.OTLPEndpoint)
	if fc.Revisions != 0 {
		cfg.Revisions = fc.Revisions
	}
	if fc.Quiescence != 0 {
		cfg.Quiescence = fc.Quiescence
	}
	if fc.ClientTTL != 0 {
		cfg.ClientTTL = fc.ClientTTL
	}
	if fc.WriteRate != 0 {
		cfg.WriteRate = fc.WriteRate
	}
	if fc.WriteBurst != 0 {
		cfg.WriteBurst = fc.WriteBurst
	}
	if fc.Seed != nil {
		for _, b := range fc.Seed.OnTap {
			if b != nil {
				b.Normalize()
			}
		}
		if err := fc.Seed.Validate(); err != nil {
			return cfg, fmt.Errorf("config seed: %w", err)
		}
		cfg.Seed = fc.Seed
	}
	return cfg, nil
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func envDuration(k string) (time.Duration, error) {
	v := getenv(k, "")
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
