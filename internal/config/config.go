package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable holding the config path.
const EnvPath = "BOOKINGDESK_CONFIG_PATH"

type Config struct {
	App struct {
		Environment string `yaml:"environment"`
		LogLevel    string `yaml:"log_level"`
		Timezone    string `yaml:"timezone"`
	} `yaml:"app"`

	Server struct {
		Address   string `yaml:"address"`
		GRPCPort  int    `yaml:"grpc_port"`
		APIKey    string `yaml:"api_key"`
		RateLimit struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Catalog struct {
		Path string `yaml:"path"`
	} `yaml:"catalog"`

	Schedule struct {
		StartTime    string `yaml:"start_time"`
		EndTime      string `yaml:"end_time"`
		SlotDuration int    `yaml:"slot_duration"`
		WindowDays   int    `yaml:"window_days"`
	} `yaml:"schedule"`

	Availability struct {
		// Mode is "local" (generator over sqlite) or "remote".
		Mode            string  `yaml:"mode"`
		Policy          string  `yaml:"policy"`
		OpenRate        float64 `yaml:"open_rate"`
		Seed            int64   `yaml:"seed"`
		LatencyMS       int     `yaml:"latency_ms"`
		FetchTimeoutSec int     `yaml:"fetch_timeout_seconds"`
	} `yaml:"availability"`

	Submission struct {
		// Mode is "db", "mock" or "remote".
		Mode             string `yaml:"mode"`
		MockDelayMS      int    `yaml:"mock_delay_ms"`
		SubmitTimeoutSec int    `yaml:"submit_timeout_seconds"`
	} `yaml:"submission"`

	Remote struct {
		BaseURL         string `yaml:"base_url"`
		APIKey          string `yaml:"api_key"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"remote"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Sessions struct {
		TimeoutMinutes   int `yaml:"timeout_minutes"`
		RetentionMinutes int `yaml:"retention_minutes"`
		JanitorSeconds   int `yaml:"janitor_seconds"`
	} `yaml:"sessions"`

	Telegram struct {
		Enabled  bool    `yaml:"enabled"`
		BotToken string  `yaml:"bot_token"`
		ChatIDs  []int64 `yaml:"chat_ids"`
		Debug    bool    `yaml:"debug"`
	} `yaml:"telegram"`

	Google struct {
		Enabled         bool   `yaml:"enabled"`
		CredentialsFile string `yaml:"credentials_file"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		SheetName       string `yaml:"sheet_name"`
	} `yaml:"google"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Load reads the YAML config at path, falling back to BOOKINGDESK_CONFIG_PATH
// and then configs/config.yaml.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Environment == "" {
		c.App.Environment = "production"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/bookingdesk.db"
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "data/backups"
	}
	if c.Schedule.StartTime == "" {
		c.Schedule.StartTime = "09:00"
	}
	if c.Schedule.EndTime == "" {
		c.Schedule.EndTime = "17:00"
	}
	if c.Schedule.SlotDuration <= 0 {
		c.Schedule.SlotDuration = 60
	}
	if c.Schedule.WindowDays <= 0 {
		c.Schedule.WindowDays = 14
	}
	if c.Availability.Mode == "" {
		c.Availability.Mode = "local"
	}
	if c.Availability.Policy == "" {
		c.Availability.Policy = "random"
	}
	if c.Submission.Mode == "" {
		c.Submission.Mode = "db"
	}
	if c.Google.SheetName == "" {
		c.Google.SheetName = "Bookings"
	}
}

// IsDevelopment reports whether console logging should be used.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// Location returns the configured timezone, or time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.App.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.App.Timezone)
}

func (c *Config) FetchTimeout() time.Duration {
	if c.Availability.FetchTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Availability.FetchTimeoutSec) * time.Second
}

func (c *Config) SubmitTimeout() time.Duration {
	if c.Submission.SubmitTimeoutSec <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Submission.SubmitTimeoutSec) * time.Second
}

func (c *Config) FetchLatency() time.Duration {
	return time.Duration(c.Availability.LatencyMS) * time.Millisecond
}

func (c *Config) MockDelay() time.Duration {
	return time.Duration(c.Submission.MockDelayMS) * time.Millisecond
}

func (c *Config) SessionTimeout() time.Duration {
	if c.Sessions.TimeoutMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Sessions.TimeoutMinutes) * time.Minute
}

func (c *Config) SessionRetention() time.Duration {
	if c.Sessions.RetentionMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Sessions.RetentionMinutes) * time.Minute
}

func (c *Config) JanitorInterval() time.Duration {
	if c.Sessions.JanitorSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Sessions.JanitorSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	if c.Remote.CacheTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Remote.CacheTTLSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}
