package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	TelegramToken       string `yaml:"telegram_token"`
	ChatID              int64  `yaml:"chat_id"`
	YouTubeAPIKey       string `yaml:"youtube_api_key"`
	YouTubeClientID     string `yaml:"youtube_client_id"`
	YouTubeClientSecret string `yaml:"youtube_client_secret"`
	YouTubeRefreshToken string `yaml:"youtube_refresh_token"`
	GroqAPIKey          string `yaml:"groq_api_key"`
	GroqModel           string `yaml:"groq_model"`

	Timezone string `yaml:"timezone"`
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`

	Policy   Policy   `yaml:"policy"`
	Quota    Quota    `yaml:"quota"`
	Trending Trending `yaml:"trending"`
	Namer    Namer    `yaml:"namer"`
	Clipper  Clipper  `yaml:"clipper"`
	Schedule Schedule `yaml:"schedule"`
}

// Policy holds the content-safety thresholds and keyword sets. The
// forbidden keywords are organized by theme in the file for readability
// but evaluated as one flat set.
type Policy struct {
	MinViews             int64               `yaml:"min_views"`
	MinDurationSecs      int                 `yaml:"min_duration_secs"`
	MaxDurationSecs      int                 `yaml:"max_duration_secs"`
	MinChannelNameLength int                 `yaml:"min_channel_name_length"`
	ForbiddenKeywords    map[string][]string `yaml:"forbidden_keywords"`
	ChannelBlacklist     []string            `yaml:"channel_blacklist"`
	SuspiciousTokens     []string            `yaml:"suspicious_tokens"`
}

// Quota holds the daily upload caps.
type Quota struct {
	MaxPerCategory int `yaml:"max_per_category"`
	MaxTotal       int `yaml:"max_total"`
}

// Trending configures the upstream catalog client.
type Trending struct {
	Regions           []string          `yaml:"regions"`
	PerRegionLimit    int64             `yaml:"per_region_limit"`
	CandidateLimit    int               `yaml:"candidate_limit"`
	CategoryIDs       map[string]string `yaml:"category_ids"`
	RequestsPerSecond float64           `yaml:"requests_per_second"`
	FetchTimeoutSecs  int               `yaml:"fetch_timeout_secs"`
}

// Namer configures title/description generation.
type Namer struct {
	TitleMaxChars int `yaml:"title_max_chars"`
}

// Clipper configures the download and re-encode step.
type Clipper struct {
	WorkDir      string `yaml:"work_dir"`
	MaxShortSecs int    `yaml:"max_short_secs"`
	YTDLPPath    string `yaml:"yt_dlp_path"`
	FFmpegPath   string `yaml:"ffmpeg_path"`
}

// Schedule configures upload slots and the random trigger.
type Schedule struct {
	TechSlots          []string `yaml:"tech_slots"`
	EntertainmentSlots []string `yaml:"entertainment_slots"`
	RandomUploadChance float64  `yaml:"random_upload_chance"`
}

// slotRegex validates HH:MM format with proper ranges.
var slotRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Load reads configuration from a YAML file, applies defaults and
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// GetConfigPath returns the config file path from environment or default.
func GetConfigPath() string {
	if path := os.Getenv("SHORTS_BOT_CONFIG"); path != "" {
		return path
	}
	return "./config.yaml"
}

func applyDefaults(cfg *Config) {
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./shorts-bot.db"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.GroqModel == "" {
		cfg.GroqModel = "llama-3.3-70b-versatile"
	}

	if cfg.Policy.MinViews == 0 {
		cfg.Policy.MinViews = 1_000_000
	}
	if cfg.Policy.MinDurationSecs == 0 {
		cfg.Policy.MinDurationSecs = 15
	}
	if cfg.Policy.MaxDurationSecs == 0 {
		cfg.Policy.MaxDurationSecs = 600
	}
	if cfg.Policy.MinChannelNameLength == 0 {
		cfg.Policy.MinChannelNameLength = 5
	}

	if cfg.Quota.MaxPerCategory == 0 {
		cfg.Quota.MaxPerCategory = 5
	}
	if cfg.Quota.MaxTotal == 0 {
		cfg.Quota.MaxTotal = 10
	}

	if len(cfg.Trending.Regions) == 0 {
		cfg.Trending.Regions = []string{"US", "IN", "GB"}
	}
	if cfg.Trending.PerRegionLimit == 0 {
		cfg.Trending.PerRegionLimit = 10
	}
	if cfg.Trending.CandidateLimit == 0 {
		cfg.Trending.CandidateLimit = 10
	}
	if len(cfg.Trending.CategoryIDs) == 0 {
		cfg.Trending.CategoryIDs = map[string]string{
			"tech":          "28",
			"entertainment": "24",
		}
	}
	if cfg.Trending.RequestsPerSecond == 0 {
		cfg.Trending.RequestsPerSecond = 2
	}
	if cfg.Trending.FetchTimeoutSecs == 0 {
		cfg.Trending.FetchTimeoutSecs = 30
	}

	if cfg.Namer.TitleMaxChars == 0 {
		cfg.Namer.TitleMaxChars = 70
	}

	if cfg.Clipper.WorkDir == "" {
		cfg.Clipper.WorkDir = "./work"
	}
	if cfg.Clipper.MaxShortSecs == 0 {
		cfg.Clipper.MaxShortSecs = 60
	}
	if cfg.Clipper.YTDLPPath == "" {
		cfg.Clipper.YTDLPPath = "yt-dlp"
	}
	if cfg.Clipper.FFmpegPath == "" {
		cfg.Clipper.FFmpegPath = "ffmpeg"
	}

	if len(cfg.Schedule.TechSlots) == 0 {
		cfg.Schedule.TechSlots = []string{"08:00", "12:00", "16:00", "20:00", "23:00"}
	}
	if len(cfg.Schedule.EntertainmentSlots) == 0 {
		cfg.Schedule.EntertainmentSlots = []string{"10:00", "14:00", "18:00", "21:00", "23:30"}
	}
	if cfg.Schedule.RandomUploadChance == 0 {
		cfg.Schedule.RandomUploadChance = 0.1
	}
}

func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.TelegramToken = v
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		cfg.YouTubeAPIKey = v
	}
	if v := os.Getenv("YOUTUBE_CLIENT_ID"); v != "" {
		cfg.YouTubeClientID = v
	}
	if v := os.Getenv("YOUTUBE_CLIENT_SECRET"); v != "" {
		cfg.YouTubeClientSecret = v
	}
	if v := os.Getenv("YOUTUBE_REFRESH_TOKEN"); v != "" {
		cfg.YouTubeRefreshToken = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.GroqAPIKey = v
	}
	if v := os.Getenv("SHORTS_BOT_DB"); v != "" {
		cfg.DBPath = v
	}
}

func validate(cfg *Config) error {
	if cfg.TelegramToken == "" {
		return fmt.Errorf("telegram_token is required")
	}
	if cfg.YouTubeAPIKey == "" {
		return fmt.Errorf("youtube_api_key is required")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	p := cfg.Policy
	if p.MinDurationSecs >= p.MaxDurationSecs {
		return fmt.Errorf("policy duration bounds invalid: min %d >= max %d", p.MinDurationSecs, p.MaxDurationSecs)
	}
	if countKeywords(p.ForbiddenKeywords) == 0 {
		return fmt.Errorf("policy forbidden_keywords must not be empty")
	}
	if len(p.ChannelBlacklist) == 0 {
		return fmt.Errorf("policy channel_blacklist must not be empty")
	}
	if len(p.SuspiciousTokens) == 0 {
		return fmt.Errorf("policy suspicious_tokens must not be empty")
	}

	if cfg.Quota.MaxPerCategory < 1 {
		return fmt.Errorf("quota max_per_category must be at least 1")
	}
	if cfg.Quota.MaxTotal < cfg.Quota.MaxPerCategory {
		return fmt.Errorf("quota max_total %d is below max_per_category %d", cfg.Quota.MaxTotal, cfg.Quota.MaxPerCategory)
	}

	slots := append(append([]string{}, cfg.Schedule.TechSlots...), cfg.Schedule.EntertainmentSlots...)
	for _, slot := range slots {
		if !slotRegex.MatchString(slot) {
			return fmt.Errorf("schedule slot must be in HH:MM format, got %q", slot)
		}
	}
	if c := cfg.Schedule.RandomUploadChance; c < 0 || c > 1 {
		return fmt.Errorf("schedule random_upload_chance must be between 0 and 1, got %v", c)
	}

	return nil
}

func countKeywords(themes map[string][]string) int {
	n := 0
	for _, words := range themes {
		n += len(words)
	}
	return n
}
