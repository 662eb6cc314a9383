// Package config loads converter settings from a YAML file or command-line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vadiminshakov/fxconv/internal/domain"
	"gopkg.in/yaml.v3"
)

// Mode selects the presentation layer.
type Mode string

const (
	ModeTUI  Mode = "tui"
	ModeWeb  Mode = "web"
	ModeOnce Mode = "once"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

const (
	defaultAPIBaseURL  = "https://api.exchangerate-api.com/v4/latest"
	defaultHTTPTimeout = 10 * time.Second
	defaultStatePath   = "./state/fxconv.json"
	defaultJournalDir  = "./wal/conversions"
	defaultWebAddr     = ":8080"
	defaultCertDir     = "cert-cache"
	defaultRedisAddr   = "localhost:6379"
	defaultRedisPrefix = "fxconv:"
	defaultFrom        = "USD"
	defaultTo          = "EUR"
)

type StorageConfig struct {
	Backend       string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

type Config struct {
	Mode        Mode
	APIBaseURL  string
	HTTPTimeout time.Duration
	Retries     int
	// ShareFetches lets concurrent cache misses for one base wait for a single fetch.
	ShareFetches bool
	Storage      StorageConfig
	JournalDir   string
	WebAddr      string
	// TLSDomains enables HTTPS with ACME certificates in web mode.
	TLSDomains []string
	CertDir    string
	LogLevel   string
	// Pair is the fallback selection when no preference is stored,
	// and the pair converted in ModeOnce.
	Pair   domain.Pair
	Amount string
}

type ConfigTmp struct {
	Mode         string        `yaml:"mode"`
	APIBaseURL   string        `yaml:"api_base_url"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
	Retries      int           `yaml:"retries"`
	ShareFetches bool          `yaml:"share_fetches"`
	Storage      struct {
		Backend       string `yaml:"backend"`
		Path          string `yaml:"path"`
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`
		RedisPrefix   string `yaml:"redis_prefix"`
	} `yaml:"storage"`
	JournalDir string   `yaml:"journal_dir"`
	WebAddr    string   `yaml:"web_addr"`
	TLSDomains []string `yaml:"tls_domains"`
	CertDir    string   `yaml:"cert_dir"`
	LogLevel   string   `yaml:"log_level"`
	Pair       string   `yaml:"pair"`
	Amount     string   `yaml:"amount"`
}

// Get reads the configuration from os.Args.
func Get() (Config, error) {
	return Parse(os.Args[1:])
}

// Parse reads the configuration from args. With --config the YAML file is used
// and the remaining flags are ignored.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("fxconv", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to yaml config")
	mode := fs.String("mode", string(ModeTUI), "presentation: tui, web or once")
	apiURL := fs.String("api", defaultAPIBaseURL, "rate API base url, rates are fetched from {api}/{currency}")
	timeout := fs.Duration("timeout", defaultHTTPTimeout, "HTTP timeout for rate requests")
	retries := fs.Int("retries", 0, "retries of a failed rate request")
	shareFetches := fs.Bool("share-fetches", false, "concurrent requests for one currency share a single rate fetch")
	backend := fs.String("storage", BackendFile, "storage backend: file, redis or memory")
	statePath := fs.String("state", defaultStatePath, "state file for the file backend")
	redisAddr := fs.String("redis", defaultRedisAddr, "redis address for the redis backend")
	journalDir := fs.String("journal", defaultJournalDir, "conversion journal directory, empty disables it")
	webAddr := fs.String("addr", defaultWebAddr, "listen address in web mode")
	tlsDomains := fs.String("tls-domains", "", "comma-separated domains for automatic TLS in web mode")
	certDir := fs.String("cert-dir", defaultCertDir, "ACME certificate cache directory")
	logLevel := fs.String("loglevel", "info", "log level: debug, info, warn, error")
	pair := fs.String("pair", defaultFrom+"_"+defaultTo, "currency pair, example: USD_EUR")
	amount := fs.String("amount", "", "amount to convert in once mode")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *configPath != "" {
		return getYaml(*configPath)
	}

	tmp := ConfigTmp{
		Mode:         *mode,
		APIBaseURL:   *apiURL,
		HTTPTimeout:  *timeout,
		Retries:      *retries,
		ShareFetches: *shareFetches,
		JournalDir:   *journalDir,
		WebAddr:      *webAddr,
		TLSDomains:   splitList(*tlsDomains),
		CertDir:      *certDir,
		LogLevel:     *logLevel,
		Pair:         *pair,
		Amount:       *amount,
	}
	tmp.Storage.Backend = *backend
	tmp.Storage.Path = *statePath
	tmp.Storage.RedisAddr = *redisAddr

	return tmp.toConfig(false)
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, fmt.Errorf("incorrect yaml config %s: %w", path, err)
	}

	return tmp.toConfig(true)
}

// toConfig validates tmp. fromYaml marks fields absent from the file as defaults.
func (c ConfigTmp) toConfig(fromYaml bool) (Config, error) {
	conf := Config{
		Mode:         Mode(strings.ToLower(c.Mode)),
		APIBaseURL:   c.APIBaseURL,
		HTTPTimeout:  c.HTTPTimeout,
		Retries:      c.Retries,
		ShareFetches: c.ShareFetches,
		Storage: StorageConfig{
			Backend:       strings.ToLower(c.Storage.Backend),
			Path:          c.Storage.Path,
			RedisAddr:     c.Storage.RedisAddr,
			RedisPassword: c.Storage.RedisPassword,
			RedisDB:       c.Storage.RedisDB,
			RedisPrefix:   c.Storage.RedisPrefix,
		},
		JournalDir: c.JournalDir,
		WebAddr:    c.WebAddr,
		TLSDomains: c.TLSDomains,
		CertDir:    c.CertDir,
		LogLevel:   strings.ToLower(c.LogLevel),
		Amount:     c.Amount,
	}

	if fromYaml {
		conf.applyDefaults()
	}
	if conf.Storage.RedisPrefix == "" {
		conf.Storage.RedisPrefix = defaultRedisPrefix
	}

	switch conf.Mode {
	case ModeTUI, ModeWeb, ModeOnce:
	default:
		return Config{}, fmt.Errorf("invalid 'mode' param: %q, must be tui, web or once", c.Mode)
	}

	switch conf.Storage.Backend {
	case BackendFile, BackendRedis, BackendMemory:
	default:
		return Config{}, fmt.Errorf("invalid storage backend: %q, must be file, redis or memory", c.Storage.Backend)
	}

	switch conf.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("invalid log level: %q", c.LogLevel)
	}

	if conf.HTTPTimeout < 0 {
		return Config{}, fmt.Errorf("invalid http timeout: %s", conf.HTTPTimeout)
	}
	if conf.Retries < 0 {
		return Config{}, fmt.Errorf("invalid retries: %d", conf.Retries)
	}

	pairStr := c.Pair
	if pairStr == "" {
		pairStr = defaultFrom + "_" + defaultTo
	}
	pair, err := getPairFromString(pairStr)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'pair' param: %s, error: %w", c.Pair, err)
	}
	conf.Pair = pair

	if conf.Mode == ModeOnce && strings.TrimSpace(conf.Amount) == "" {
		return Config{}, fmt.Errorf("once mode requires an amount")
	}
	if conf.Mode == ModeWeb && conf.WebAddr == "" {
		return Config{}, fmt.Errorf("web mode requires a listen address")
	}

	return conf, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeTUI
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendFile
	}
	if c.Storage.Path == "" {
		c.Storage.Path = defaultStatePath
	}
	if c.Storage.RedisAddr == "" {
		c.Storage.RedisAddr = defaultRedisAddr
	}
	if c.JournalDir == "" {
		c.JournalDir = defaultJournalDir
	}
	if c.WebAddr == "" {
		c.WebAddr = defaultWebAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CertDir == "" {
		c.CertDir = defaultCertDir
	}
}

func getPairFromString(pairStr string) (domain.Pair, error) {
	pairElements := strings.Split(pairStr, "_")
	if len(pairElements) != 2 || pairElements[0] == "" || pairElements[1] == "" {
		return domain.Pair{}, fmt.Errorf("invalid pair param")
	}
	return domain.NewPair(pairElements[0], pairElements[1]), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
