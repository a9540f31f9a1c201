package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Redis    RedisConfig    `yaml:"redis"`
	Kakao    KakaoConfig    `yaml:"kakao"`
	Overpass OverpassConfig `yaml:"overpass"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type NATSConfig struct {
	URL          string `yaml:"url"`
	Stream       string `yaml:"stream"`
	StreamMaxAge string `yaml:"stream_max_age"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	CacheTTLMs int    `yaml:"cache_ttl_ms"`
}

type KakaoConfig struct {
	RESTKey       string `yaml:"rest_key"`
	LocalURL      string `yaml:"local_url"`
	MobilityURL   string `yaml:"mobility_url"`
	TimeoutMs     int    `yaml:"timeout_ms"`
	PagesPerQuery int    `yaml:"pages_per_query"`
	PageSize      int    `yaml:"page_size"`
}

type OverpassConfig struct {
	Endpoint      string   `yaml:"endpoint"`
	MaxConcurrent int      `yaml:"max_concurrent"`
	Tags          []string `yaml:"tags"`
	RadiusM       float64  `yaml:"radius_m"`
	TimeoutMs     int      `yaml:"timeout_ms"`
}

// RegionConfig describes one study region: where itineraries start and where
// its spending breakdown lives.
type RegionConfig struct {
	Name         string  `yaml:"name"`
	Start        string  `yaml:"start"`
	SpendingFile string  `yaml:"spending_file"`
	AreaKm2      float64 `yaml:"area_km2"`
}

type AnalysisConfig struct {
	Regions            []RegionConfig `yaml:"regions"`
	POIKeywords        []string       `yaml:"poi_keywords"`
	POISource          string         `yaml:"poi_source"`
	StopCounts         []int          `yaml:"stop_counts"`
	MaxPerCount        int            `yaml:"max_per_count"`
	MaxPoints          int            `yaml:"max_points"`
	PlanLimit          int            `yaml:"plan_limit"`
	MaxPlanStops       int            `yaml:"max_plan_stops"`
	VitalityCategories []string       `yaml:"vitality_categories"`
	CategoryColumn     string         `yaml:"category_column"`
	ShareColumn        string         `yaml:"share_column"`
	WalkStrategy       string         `yaml:"walk_strategy"`
	Rescale            bool           `yaml:"rescale"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) KakaoTimeout() time.Duration {
	return time.Duration(c.Kakao.TimeoutMs) * time.Millisecond
}

func (c *Config) OverpassTimeout() time.Duration {
	return time.Duration(c.Overpass.TimeoutMs) * time.Millisecond
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.CacheTTLMs) * time.Millisecond
}

// RegionNames returns the configured region names in order.
func (c *Config) RegionNames() []string {
	names := make([]string, len(c.Analysis.Regions))
	for i, r := range c.Analysis.Regions {
		names[i] = r.Name
	}
	return names
}

// SpendingFiles maps region name to its spending table path.
func (c *Config) SpendingFiles() map[string]string {
	files := make(map[string]string, len(c.Analysis.Regions))
	for _, r := range c.Analysis.Regions {
		if r.SpendingFile != "" {
			files[r.Name] = r.SpendingFile
		}
	}
	return files
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		NATS: NATSConfig{
			URL:          "nats://localhost:4222",
			Stream:       "TPFI_EVENTS",
			StreamMaxAge: "720h",
		},
		Redis: RedisConfig{
			CacheTTLMs: 24 * 60 * 60 * 1000,
		},
		Kakao: KakaoConfig{
			LocalURL:      "https://dapi.kakao.com",
			MobilityURL:   "https://apis-navi.kakaomobility.com",
			TimeoutMs:     10000,
			PagesPerQuery: 1,
			PageSize:      15,
		},
		Overpass: OverpassConfig{
			Endpoint:      "https://overpass-api.de/api/interpreter",
			MaxConcurrent: 2,
			Tags:          []string{"tourism", "amenity"},
			RadiusM:       3000,
			TimeoutMs:     30000,
		},
		Analysis: AnalysisConfig{
			Regions: []RegionConfig{
				{Name: "강원 강릉시", Start: "강릉역", SpendingFile: "data/spending_gangneung.csv", AreaKm2: 1040.07},
				{Name: "부산 해운대구", Start: "해운대해수욕장", SpendingFile: "data/spending_haeundae.csv", AreaKm2: 51.47},
				{Name: "서울 중구", Start: "명동역", SpendingFile: "data/spending_junggu.csv", AreaKm2: 9.96},
			},
			POIKeywords:        []string{"관광지", "맛집", "카페"},
			POISource:          "kakao",
			StopCounts:         []int{3, 4},
			MaxPerCount:        100,
			MaxPoints:          25,
			PlanLimit:          150,
			MaxPlanStops:       8,
			VitalityCategories: []string{"쇼핑업", "여가서비스업"},
			CategoryColumn:     "대분류",
			ShareColumn:        "대분류 지출액 비율",
			WalkStrategy:       "measured",
			Rescale:            true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TPFI_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("TPFI_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("TPFI_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("TPFI_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("TPFI_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("TPFI_NATS_STREAM"); v != "" {
		cfg.NATS.Stream = v
	}
	if v := os.Getenv("TPFI_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TPFI_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TPFI_KAKAO_REST_KEY"); v != "" {
		cfg.Kakao.RESTKey = v
	}
	if v := os.Getenv("TPFI_KAKAO_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Kakao.TimeoutMs = n
		}
	}
	if v := os.Getenv("TPFI_OVERPASS_ENDPOINT"); v != "" {
		cfg.Overpass.Endpoint = v
	}
	if v := os.Getenv("TPFI_POI_SOURCE"); v != "" {
		cfg.Analysis.POISource = v
	}
	if v := os.Getenv("TPFI_WALK_STRATEGY"); v != "" {
		cfg.Analysis.WalkStrategy = v
	}
	if v := os.Getenv("TPFI_PLAN_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.PlanLimit = n
		}
	}
	if v := os.Getenv("TPFI_MAX_PLAN_STOPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.MaxPlanStops = n
		}
	}
	if v := os.Getenv("TPFI_VITALITY_CATEGORIES"); v != "" {
		cfg.Analysis.VitalityCategories = splitList(v)
	}
	if v := os.Getenv("TPFI_RESCALE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Analysis.Rescale = b
		}
	}
	if v := os.Getenv("TPFI_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
