package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	CurrentVersion = 1
	DefaultPath    = "reviewlens.yaml"
)

// Config is the top-level configuration. It is built once per process and
// handed to each stage by value.
type Config struct {
	Version   int             `yaml:"version"`
	Banks     []Bank          `yaml:"banks"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Dirs      DirConfig       `yaml:"dirs"`
	Database  DatabaseConfig  `yaml:"database"`
	Sentiment SentimentConfig `yaml:"sentiment"`
	Keywords  KeywordConfig   `yaml:"keywords"`
	Dump      DumpConfig      `yaml:"dump,omitempty"`
	Mirror    MirrorConfig    `yaml:"mirror,omitempty"`
	Logging   LogConfig       `yaml:"logging,omitempty"`
}

// Bank is a tracked banking application.
type Bank struct {
	Code  string `yaml:"code"` // short name written by the collector, e.g. CBE
	Name  string `yaml:"name"` // full name stored in the banks table
	AppID string `yaml:"app_id"`
}

// ScraperConfig controls the review collector.
type ScraperConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	TargetReviews     int           `yaml:"target_reviews"`
	PageSize          int           `yaml:"page_size"`
	Lang              string        `yaml:"lang"`
	Country           string        `yaml:"country"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	BaseURL           string        `yaml:"base_url,omitempty"`
}

// DirConfig is the on-disk layout shared by all stages.
type DirConfig struct {
	Raw            string `yaml:"raw"`
	Processed      string `yaml:"processed"`
	Logs           string `yaml:"logs"`
	Visualizations string `yaml:"visualizations"`
	Database       string `yaml:"database"`
	State          string `yaml:"state"`
}

// DatabaseConfig defines the PostgreSQL connection.
type DatabaseConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Name          string `yaml:"name"`
	User          string `yaml:"user"`
	Password      string `yaml:"password,omitempty"`
	SSLMode       string `yaml:"sslmode,omitempty"`
	MigrationsDir string `yaml:"migrations_dir,omitempty"` // empty: embedded migrations
}

// SentimentConfig selects and configures the sentiment classifier.
type SentimentConfig struct {
	Backend   string        `yaml:"backend"` // tei or lexicon
	BaseURL   string        `yaml:"base_url,omitempty"`
	Model     string        `yaml:"model,omitempty"`
	APIKey    string        `yaml:"api_key,omitempty"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// KeywordConfig controls corpus keyword extraction.
type KeywordConfig struct {
	MaxFeatures int `yaml:"max_features"`
	TopN        int `yaml:"top_n"`
	MinNgram    int `yaml:"min_ngram"`
	MaxNgram    int `yaml:"max_ngram"`
}

// DumpConfig controls pg_dump snapshots.
type DumpConfig struct {
	PgDumpPath string `yaml:"pg_dump_path,omitempty"`
	S3Bucket   string `yaml:"s3_bucket,omitempty"`
	S3Prefix   string `yaml:"s3_prefix,omitempty"`
	S3Prune    bool   `yaml:"s3_prune,omitempty"` // clear s3_prefix before each upload
	AWSProfile string `yaml:"aws_profile,omitempty"`
	AWSRegion  string `yaml:"aws_region,omitempty"`
}

// MirrorConfig enables the optional MongoDB copy of persisted reviews.
type MirrorConfig struct {
	URI      string `yaml:"uri,omitempty"`
	Database string `yaml:"database,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level     string `yaml:"level,omitempty"`
	Directory string `yaml:"directory,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	cfg := Config{
		Version: CurrentVersion,
		Banks: []Bank{
			{Code: "CBE", Name: "Commercial Bank of Ethiopia", AppID: "com.combanketh.mobilebanking"},
			{Code: "BOA", Name: "Bank of Abyssinia", AppID: "com.boa.boaMobileBanking"},
			{Code: "Dashen", Name: "Dashen Bank", AppID: "com.dashen.dashensuperapp"},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads the config file at path. A missing file yields the defaults.
// Environment overrides (including a .env file) and secret references are
// resolved before the result is validated.
func Load(path string) (Config, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultPath
	}

	// .env is optional.
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(ExpandHome(path))
	switch {
	case err == nil:
		cfg = Config{}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config: %w", err)
		}
		if cfg.Version != CurrentVersion {
			return Config{}, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
		}
		if len(cfg.Banks) == 0 {
			cfg.Banks = Default().Banks
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.resolveSecrets(); err != nil {
		return Config{}, fmt.Errorf("resolving secrets: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the config to the given path.
func (c Config) Save(path string) error {
	if path == "" {
		path = DefaultPath
	}
	path = ExpandHome(path)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks the invariants every stage relies on.
func (c Config) Validate() error {
	var problems []string
	if len(c.Banks) == 0 {
		problems = append(problems, "at least one bank is required")
	}
	codes := map[string]bool{}
	names := map[string]bool{}
	for i, b := range c.Banks {
		if b.Code == "" || b.Name == "" || b.AppID == "" {
			problems = append(problems, fmt.Sprintf("banks[%d]: code, name and app_id are required", i))
			continue
		}
		if codes[strings.ToLower(b.Code)] {
			problems = append(problems, fmt.Sprintf("duplicate bank code %q", b.Code))
		}
		if names[b.Name] {
			problems = append(problems, fmt.Sprintf("duplicate bank name %q", b.Name))
		}
		codes[strings.ToLower(b.Code)] = true
		names[b.Name] = true
	}
	if c.Scraper.MaxAttempts < 1 {
		problems = append(problems, "scraper.max_attempts must be at least 1")
	}
	if c.Scraper.RetryDelay < 0 {
		problems = append(problems, "scraper.retry_delay must not be negative")
	}
	if c.Scraper.TargetReviews < 1 {
		problems = append(problems, "scraper.target_reviews must be at least 1")
	}
	if c.Sentiment.MaxTokens < 1 {
		problems = append(problems, "sentiment.max_tokens must be at least 1")
	}
	switch c.Sentiment.Backend {
	case "tei", "lexicon":
	default:
		problems = append(problems, fmt.Sprintf("unknown sentiment backend %q", c.Sentiment.Backend))
	}
	if c.Dump.S3Prune && (c.Dump.S3Bucket == "" || strings.Trim(c.Dump.S3Prefix, "/") == "") {
		problems = append(problems, "dump.s3_prune requires dump.s3_bucket and a non-empty dump.s3_prefix")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// BankByLabel finds a bank by code (case-insensitive) or full name.
func (c Config) BankByLabel(label string) (Bank, bool) {
	for _, b := range c.Banks {
		if strings.EqualFold(b.Code, label) || b.Name == label {
			return b, true
		}
	}
	return Bank{}, false
}

// DSN builds the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}
	return u.String()
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = CurrentVersion
	}
	s := &c.Scraper
	if s.MaxAttempts == 0 {
		s.MaxAttempts = 3
	}
	if s.RetryDelay == 0 {
		s.RetryDelay = 2 * time.Second
	}
	if s.TargetReviews == 0 {
		s.TargetReviews = 400
	}
	if s.PageSize == 0 {
		s.PageSize = 200
	}
	if s.Lang == "" {
		s.Lang = "en"
	}
	if s.Country == "" {
		s.Country = "et"
	}
	if s.RequestsPerSecond == 0 {
		s.RequestsPerSecond = 2
	}

	d := &c.Dirs
	if d.Raw == "" {
		d.Raw = "data/raw"
	}
	if d.Processed == "" {
		d.Processed = "data/processed"
	}
	if d.Logs == "" {
		d.Logs = "logs"
	}
	if d.Visualizations == "" {
		d.Visualizations = "visualizations"
	}
	if d.Database == "" {
		d.Database = "database"
	}
	if d.State == "" {
		d.State = "data"
	}

	db := &c.Database
	if db.Host == "" {
		db.Host = "localhost"
	}
	if db.Port == 0 {
		db.Port = 5432
	}
	if db.Name == "" {
		db.Name = "bank_reviews"
	}
	if db.User == "" {
		db.User = "postgres"
	}

	se := &c.Sentiment
	if se.Backend == "" {
		se.Backend = "tei"
	}
	if se.BaseURL == "" {
		se.BaseURL = "http://localhost:8080"
	}
	if se.Model == "" {
		se.Model = "distilbert-base-uncased-finetuned-sst-2-english"
	}
	if se.MaxTokens == 0 {
		se.MaxTokens = 512
	}

	k := &c.Keywords
	if k.MaxFeatures == 0 {
		k.MaxFeatures = 1000
	}
	if k.TopN == 0 {
		k.TopN = 20
	}
	if k.MinNgram == 0 {
		k.MinNgram = 1
	}
	if k.MaxNgram == 0 {
		k.MaxNgram = 2
	}

	if c.Dump.PgDumpPath == "" {
		c.Dump.PgDumpPath = "pg_dump"
	}
	if c.Mirror.URI != "" && c.Mirror.Database == "" {
		c.Mirror.Database = "bank_reviews"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = d.Logs
	}
}

// applyEnv applies the DB_* environment overrides.
func (c *Config) applyEnv() error {
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing DB_PORT %q: %w", v, err)
		}
		c.Database.Port = port
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Database.Name = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" && c.Database.Password == "" {
		c.Database.Password = v
	}
	return nil
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
