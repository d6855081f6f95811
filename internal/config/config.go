package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envFile = ".env"

type Config struct {
	Token          string   `yaml:"token" env:"GITHUB_ACCESS_TOKEN"`
	Repository     string   `yaml:"repository" env:"USER_REPO"`
	Handles        []string `yaml:"handles" env:"GITHUB_HANDLES" env-separator:","`
	MaxPage        int      `yaml:"-"`
	RawMaxPage     string   `yaml:"max_page" env:"MAX_PAGE"`
	Skip           Switch   `yaml:"skip" env:"SKIP"`
	SkipPagination Switch   `yaml:"skip_pagination" env:"SKIP_PRS_FETCHING"`
	SnapshotFile   string   `yaml:"snapshot_file" env:"PRS_FILE"`
	LogFile        string   `yaml:"log_file" env:"LOG_FILE"`

	// Owner and Name are split out of Repository.
	Owner string `yaml:"-"`
	Name  string `yaml:"-"`

	GitHub  GitHubConfig  `yaml:"github"`
	Harvest HarvestConfig `yaml:"harvest"`
	Report  ReportConfig  `yaml:"report"`
	Log     LogConfig     `yaml:"log"`
}

type GitHubConfig struct {
	APIURL            string  `yaml:"api_url" env:"GITHUB_API_URL"`
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
}

type HarvestConfig struct {
	BatchSize int `yaml:"batch_size" env:"BATCH_SIZE"`
	// PageRetries caps retries of a failing page; zero retries forever.
	PageRetries   int           `yaml:"page_retries" env:"PAGE_RETRIES"`
	RetryDelay    time.Duration `yaml:"-"`
	RawRetryDelay string        `yaml:"retry_delay" env:"RETRY_DELAY"`
}

type ReportConfig struct {
	MaxURLWidth int `yaml:"max_url_width" env:"REPORT_MAX_URL_WIDTH"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// Switch is a flag read from the environment. Values strconv.ParseBool
// understands keep their meaning, any other non-empty value turns it on.
type Switch bool

// SetValue implements cleanenv.Setter.
func (s *Switch) SetValue(v string) error {
	if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
		*s = Switch(b)
		return nil
	}
	*s = v != ""
	return nil
}

// MissingError reports a required setting that was not provided.
type MissingError struct {
	Var   string
	Usage string
}

func (e *MissingError) Error() string {
	msg := fmt.Sprintf("the environment variable %s is not set", e.Var)
	if e.Usage != "" {
		msg += ". Usage: " + e.Usage
	}
	return msg
}

// Load reads the optional YAML file at path, then .env, then the process
// environment, each overriding the previous one.
func Load(path string) (*Config, error) {
	return load(path, envFile)
}

func load(path, dotenv string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	// godotenv.Load never overrides variables that are already set
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", dotenv, err)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.checkRequired(); err != nil {
		return nil, err
	}

	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) checkRequired() error {
	handles := c.Handles[:0]
	for _, h := range c.Handles {
		if h = strings.TrimSpace(h); h != "" {
			handles = append(handles, h)
		}
	}
	c.Handles = handles

	switch {
	case c.Repository == "":
		return &MissingError{Var: "USER_REPO", Usage: `USER_REPO="owner/name"`}
	case c.RawMaxPage == "":
		return &MissingError{Var: "MAX_PAGE"}
	case c.Token == "":
		return &MissingError{Var: "GITHUB_ACCESS_TOKEN"}
	case len(c.Handles) == 0:
		return &MissingError{Var: "GITHUB_HANDLES", Usage: `GITHUB_HANDLES="user1,user2"`}
	}
	return nil
}

func (c *Config) setDefaults() error {
	n, err := strconv.Atoi(strings.TrimSpace(c.RawMaxPage))
	if err != nil {
		return fmt.Errorf("parse MAX_PAGE %q: %w", c.RawMaxPage, err)
	}
	c.MaxPage = n

	c.Owner, c.Name, _ = strings.Cut(c.Repository, "/")

	if c.SnapshotFile == "" {
		c.SnapshotFile = "data/prs.json"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Harvest.BatchSize == 0 {
		c.Harvest.BatchSize = 20
	}

	if c.Harvest.RawRetryDelay == "" {
		c.Harvest.RawRetryDelay = "1s"
	}
	d, err := time.ParseDuration(c.Harvest.RawRetryDelay)
	if err != nil {
		return fmt.Errorf("parse harvest.retry_delay %q: %w", c.Harvest.RawRetryDelay, err)
	}
	c.Harvest.RetryDelay = d

	return nil
}

func (c *Config) validate() error {
	if c.Owner == "" || c.Name == "" || strings.Contains(c.Name, "/") {
		return fmt.Errorf("repository %q must be owner/name", c.Repository)
	}
	if c.MaxPage < 0 {
		return fmt.Errorf("max_page must not be negative, got %d", c.MaxPage)
	}
	seen := make(map[string]bool, len(c.Handles))
	for _, h := range c.Handles {
		if seen[h] {
			return fmt.Errorf("handle %q listed twice", h)
		}
		seen[h] = true
	}
	if c.Harvest.BatchSize < 0 {
		return fmt.Errorf("harvest.batch_size must be positive, got %d", c.Harvest.BatchSize)
	}
	if c.Harvest.PageRetries < 0 {
		return fmt.Errorf("harvest.page_retries must not be negative, got %d", c.Harvest.PageRetries)
	}
	if c.Harvest.RetryDelay < 0 {
		return fmt.Errorf("harvest.retry_delay must not be negative, got %s", c.Harvest.RawRetryDelay)
	}
	if c.GitHub.RequestsPerSecond < 0 {
		return fmt.Errorf("github.requests_per_second must not be negative, got %g", c.GitHub.RequestsPerSecond)
	}
	if c.Report.MaxURLWidth < 0 {
		return fmt.Errorf("report.max_url_width must not be negative, got %d", c.Report.MaxURLWidth)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q (debug|info|warn|error)", c.Log.Level)
	}
	return nil
}
