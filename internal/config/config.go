package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Playback PlaybackConfig `yaml:"playback"`
	Sponsor  SponsorConfig  `yaml:"sponsor"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// QualityTier maps a minimum sustained bandwidth to a resolution height.
// Tiers are evaluated highest bitrate first; the first one whose
// MinBitrate the sample meets wins.
type QualityTier struct {
	MinBitrate int64 `yaml:"min_bitrate"`
	Height     int   `yaml:"height"`
}

type PlaybackConfig struct {
	MaxStreamErrors    int           `yaml:"max_stream_errors"`
	MaxBufferingEvents int           `yaml:"max_buffering_events"`
	PositionInterval   time.Duration `yaml:"position_interval"`
	BandwidthInterval  time.Duration `yaml:"bandwidth_interval"`
	UpgradeRatio       float64       `yaml:"upgrade_ratio"`
	DowngradeRatio     float64       `yaml:"downgrade_ratio"`
	QualityTiers       []QualityTier `yaml:"quality_tiers"`
	InitialTiers       []QualityTier `yaml:"initial_tiers"`
	FloorHeight        int           `yaml:"floor_height"`
}

type SponsorConfig struct {
	Enabled      bool              `yaml:"enabled"`
	APIURL       string            `yaml:"api_url"`
	FetchTimeout time.Duration     `yaml:"fetch_timeout"`
	CacheSize    int               `yaml:"cache_size"`
	Categories   map[string]string `yaml:"categories"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         6590,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0,
		},
		Database: DatabaseConfig{
			Path: "data/playback.db",
		},
		Playback: PlaybackConfig{
			MaxStreamErrors:    3,
			MaxBufferingEvents: 5,
			PositionInterval:   500 * time.Millisecond,
			BandwidthInterval:  5 * time.Second,
			UpgradeRatio:       1.3,
			DowngradeRatio:     0.7,
			QualityTiers: []QualityTier{
				{MinBitrate: 5_000_000, Height: 1080},
				{MinBitrate: 2_500_000, Height: 720},
				{MinBitrate: 1_200_000, Height: 480},
				{MinBitrate: 700_000, Height: 360},
				{MinBitrate: 400_000, Height: 240},
			},
			// Coarser table for the very first estimate: a single early
			// sample is not trusted to pick a high tier.
			InitialTiers: []QualityTier{
				{MinBitrate: 3_000_000, Height: 720},
				{MinBitrate: 1_000_000, Height: 480},
			},
			FloorHeight: 144,
		},
		Sponsor: SponsorConfig{
			Enabled:      false,
			APIURL:       "https://sponsor.ajay.app/api",
			FetchTimeout: 10 * time.Second,
			CacheSize:    64,
			Categories: map[string]string{
				"sponsor":        "skip",
				"selfpromo":      "skip",
				"interaction":    "skip",
				"intro":          "show_toast",
				"outro":          "show_toast",
				"music_offtopic": "skip",
				"filler":         "ignore",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
