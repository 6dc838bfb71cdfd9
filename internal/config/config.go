package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/porkreport/porkbot/internal/safety"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources   Sources   `yaml:"sources"`
	Trends    Trends    `yaml:"trends"`
	Scoring   Scoring   `yaml:"scoring"`
	Safety    Safety    `yaml:"safety"`
	Cooldowns Cooldowns `yaml:"cooldowns"`
	Limits    Limits    `yaml:"limits"`
	Schedules Schedules `yaml:"schedules"`
	Generator Generator `yaml:"generator"`
	Output    Output    `yaml:"output"`
	Server    Server    `yaml:"server"`
}

type Sources struct {
	Feeds          []Feed         `yaml:"feeds"`
	Congress       CongressConfig `yaml:"congress"`
	SessionFeedURL string         `yaml:"session_feed_url"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type CongressConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type Trends struct {
	BoostMode   string   `yaml:"boost_mode"` // "additive" or "legacy"
	Watch       []string `yaml:"watch"`
	DaysBack    int      `yaml:"days_back"`
	ExpireHours int      `yaml:"expire_hours"`
}

type Scoring struct {
	HighKeywords   []string `yaml:"high_keywords"`
	MediumKeywords []string `yaml:"medium_keywords"`
	PeakStartHour  int      `yaml:"peak_start_hour"`
	PeakEndHour    int      `yaml:"peak_end_hour"`
}

type Safety struct {
	AllowBelow       int      `yaml:"allow_below"`
	RejectAt         int      `yaml:"reject_at"`
	DenylistKeywords []string `yaml:"denylist_keywords"`
	DenylistPatterns []string `yaml:"denylist_patterns"`
}

type Cooldowns struct {
	TopicHours  int `yaml:"topic_hours"`
	AuthorHours int `yaml:"author_hours"`
}

type Limits struct {
	Post Limit `yaml:"post"`
	Read Limit `yaml:"read"`
}

type Limit struct {
	Capacity      int     `yaml:"capacity"`
	RefillPerHour float64 `yaml:"refill_per_hour"`
}

type Schedules struct {
	Scan string `yaml:"scan"`
	Post string `yaml:"post"`
}

type Generator struct {
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

// ConfigDir returns the XDG config directory for porkbot.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "porkbot")
}

// DataDir returns the XDG data directory for porkbot.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "porkbot")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/porkbot/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'porkbot init' to create a default config",
		xdgConfig,
	)
}

// Load reads, parses, and validates a config YAML file. Validation failures
// are fatal; the daemon must never start with a half-usable configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Sources: Sources{
			Congress: CongressConfig{
				Enabled:   true,
				BaseURL:   "https://api.congress.gov/v3",
				APIKeyEnv: "CONGRESS_API_KEY",
			},
		},
		Trends: Trends{
			BoostMode:   "additive",
			DaysBack:    1,
			ExpireHours: 48,
		},
		Scoring: Scoring{
			PeakStartHour: 9,
			PeakEndHour:   21,
		},
		Safety: Safety{
			AllowBelow: 20,
			RejectAt:   50,
		},
		Cooldowns: Cooldowns{
			TopicHours:  24,
			AuthorHours: 4,
		},
		Limits: Limits{
			Post: Limit{Capacity: 17, RefillPerHour: 0.71},
			Read: Limit{Capacity: 60, RefillPerHour: 60},
		},
		Schedules: Schedules{
			Scan: "*/30 * * * *",
			Post: "15 */4 * * *",
		},
		Generator: Generator{
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Server: Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate fails fast on configuration the engine cannot run with.
func (c *Config) Validate() error {
	if err := c.SafetyThresholds().Validate(); err != nil {
		return err
	}
	// Compile the denylist now so a malformed pattern surfaces at startup,
	// not mid-cycle.
	if _, err := safety.NewDenylist(c.Safety.DenylistKeywords, c.Safety.DenylistPatterns); err != nil {
		return err
	}

	switch c.Trends.BoostMode {
	case "additive", "legacy":
	default:
		return fmt.Errorf("trends.boost_mode must be \"additive\" or \"legacy\", got %q", c.Trends.BoostMode)
	}

	if c.Cooldowns.TopicHours <= 0 || c.Cooldowns.AuthorHours <= 0 {
		return fmt.Errorf("cooldown windows must be positive, got topic=%d author=%d",
			c.Cooldowns.TopicHours, c.Cooldowns.AuthorHours)
	}

	for name, l := range map[string]Limit{"post": c.Limits.Post, "read": c.Limits.Read} {
		if l.Capacity <= 0 || l.RefillPerHour <= 0 {
			return fmt.Errorf("limits.%s: capacity and refill_per_hour must be positive", name)
		}
	}

	if c.Scoring.PeakStartHour < 0 || c.Scoring.PeakEndHour > 24 ||
		c.Scoring.PeakStartHour >= c.Scoring.PeakEndHour {
		return fmt.Errorf("peak hours must satisfy 0 <= start < end <= 24, got %d..%d",
			c.Scoring.PeakStartHour, c.Scoring.PeakEndHour)
	}

	for name, expr := range map[string]string{"scan": c.Schedules.Scan, "post": c.Schedules.Post} {
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("schedules.%s: invalid cron expression %q: %w", name, expr, err)
		}
	}

	return nil
}

// SafetyThresholds returns the configured verdict boundaries.
func (c *Config) SafetyThresholds() safety.Thresholds {
	return safety.Thresholds{Low: c.Safety.AllowBelow, High: c.Safety.RejectAt}
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
