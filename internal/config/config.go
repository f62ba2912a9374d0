package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTricoURL    = "https://trico.haverford.edu/cgi-bin/courseguide/cgi-bin/search.cgi"
	DefaultTricoPrefix = "https://trico.haverford.edu/cgi-bin/courseguide/cgi-bin/"
)

type Config struct {
	// Course guide
	TricoURL     string `yaml:"trico_url"`
	TricoPrefix  string `yaml:"trico_prefix"`
	TricoInfoURL string `yaml:"trico_info_url"`

	// Scraping
	Workers       int    `yaml:"workers"`
	PageSize      int    `yaml:"page_size"`
	FailurePolicy string `yaml:"failure_policy"`

	// HTTP
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
	Insecure          bool          `yaml:"insecure"`
	CABundle          string        `yaml:"ca_bundle"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	MaxAttempts       int           `yaml:"max_attempts"`
	UserAgent         string        `yaml:"user_agent"`

	LogLevel string `yaml:"log_level"`

	SFTP SFTP `yaml:"sftp"`
}

// SFTP is the drop that exported results can be uploaded to.
type SFTP struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	User                  string `yaml:"user"`
	Pass                  string `yaml:"pass"`
	Dir                   string `yaml:"dir"`
	InsecureIgnoreHostKey bool   `yaml:"insecure_ignore_hostkey"`
	KnownHosts            string `yaml:"known_hosts"`
}

// Load reads the configuration from the environment. Unset or malformed
// values fall back to their defaults.
func Load() Config {
	tricoURL := getenv("TRICO_URL", DefaultTricoURL)

	return Config{
		TricoURL:     tricoURL,
		TricoPrefix:  getenv("TRICO_PREFIX", DefaultTricoPrefix),
		TricoInfoURL: getenv("TRICO_INFO_URL", tricoURL),

		Workers:       getenvInt("TRICO_WORKERS", runtime.NumCPU()),
		PageSize:      getenvInt("TRICO_PAGE_SIZE", 50),
		FailurePolicy: getenv("TRICO_FAILURE_POLICY", "fail-fast"),

		HTTPTimeout:       getenvDuration("TRICO_HTTP_TIMEOUT", 30*time.Second),
		Insecure:          getenvBool("TRICO_INSECURE", false),
		CABundle:          os.Getenv("TRICO_CA_BUNDLE"),
		RequestsPerSecond: getenvFloat("TRICO_RPS", 0),
		MaxAttempts:       getenvInt("TRICO_MAX_ATTEMPTS", 1),
		UserAgent:         os.Getenv("TRICO_USER_AGENT"),

		LogLevel: getenv("LOG_LEVEL", "info"),

		SFTP: SFTP{
			Host:                  os.Getenv("SFTP_HOST"),
			Port:                  getenvInt("SFTP_PORT", 22),
			User:                  os.Getenv("SFTP_USER"),
			Pass:                  os.Getenv("SFTP_PASS"),
			Dir:                   getenv("SFTP_DIR", "/inbound"),
			InsecureIgnoreHostKey: getenvBool("SFTP_INSECURE_IGNORE_HOSTKEY", true),
			KnownHosts:            os.Getenv("SFTP_KNOWN_HOSTS"),
		},
	}
}

// LoadFile reads the environment like Load and then applies the YAML document
// at path on top. Keys missing from the file keep their environment value.
func LoadFile(path string) (Config, error) {
	cfg := Load()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values that cannot be turned into a working scraper.
func (c Config) Validate() error {
	if strings.TrimSpace(c.TricoURL) == "" {
		return fmt.Errorf("config: trico_url is empty")
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must not be negative, got %d", c.Workers)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("config: page_size must be positive, got %d", c.PageSize)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("config: http_timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.Insecure && c.CABundle != "" {
		return fmt.Errorf("config: insecure and ca_bundle are mutually exclusive")
	}
	return nil
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvFloat(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
