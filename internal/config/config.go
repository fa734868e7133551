package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Root struct {
	Env   string `yaml:"env"`
	Local Config `yaml:"local"`
	Dev   Config `yaml:"dev"`
	Prod  Config `yaml:"prod"`
}

type Config struct {
	Env string `yaml:"-"`

	Log struct {
		Level     string `yaml:"level"`
		Format    string `yaml:"format"`
		AddSource bool   `yaml:"add_source"`
	} `yaml:"log"`

	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	ETG struct {
		BaseURL      string `yaml:"base_url"`
		ProductsPath string `yaml:"products_path"`
		FeatureType  string `yaml:"feature_type"`
	} `yaml:"etg"`

	Catalog struct {
		MaxSeconds     int     `yaml:"max_seconds"`
		TimeoutSeconds float64 `yaml:"timeout_seconds"`
		Passes         int     `yaml:"passes"`
		MaxPasses      int     `yaml:"max_passes"`
		SlugCacheSize  int     `yaml:"slug_cache_size"`
	} `yaml:"catalog"`

	HTTP struct {
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		Retries        int    `yaml:"retries"`
		BackoffMS      int    `yaml:"backoff_ms"`
		BackoffMaxMS   int    `yaml:"backoff_max_ms"`
		MinIntervalMS  int    `yaml:"min_interval_ms"`
		ProxyURL       string `yaml:"proxy_url"`
	} `yaml:"http"`

	CLI struct {
		OutputFile string `yaml:"output_file"`
	} `yaml:"cli"`
}

// overrides holds the environment variables that may replace profile values.
// Names carry the full ETGCATALOG_ prefix so envconfig never falls back to bare
// names such as ENV. Unset variables leave the pointer nil.
type overrides struct {
	Env *string `envconfig:"ETGCATALOG_ENV"`

	LogLevel  *string `envconfig:"ETGCATALOG_LOG_LEVEL"`
	LogFormat *string `envconfig:"ETGCATALOG_LOG_FORMAT"`

	ServerHost *string `envconfig:"ETGCATALOG_SERVER_HOST"`
	ServerPort *int    `envconfig:"ETGCATALOG_SERVER_PORT"`

	ETGBaseURL      *string `envconfig:"ETGCATALOG_ETG_BASE_URL"`
	ETGProductsPath *string `envconfig:"ETGCATALOG_ETG_PRODUCTS_PATH"`
	ETGFeatureType  *string `envconfig:"ETGCATALOG_ETG_FEATURE_TYPE"`

	CatalogMaxSeconds     *int     `envconfig:"ETGCATALOG_CATALOG_MAX_SECONDS"`
	CatalogTimeoutSeconds *float64 `envconfig:"ETGCATALOG_CATALOG_TIMEOUT_SECONDS"`
	CatalogPasses         *int     `envconfig:"ETGCATALOG_CATALOG_PASSES"`
	CatalogMaxPasses      *int     `envconfig:"ETGCATALOG_CATALOG_MAX_PASSES"`

	HTTPTimeoutSeconds *int    `envconfig:"ETGCATALOG_HTTP_TIMEOUT_SECONDS"`
	HTTPRetries        *int    `envconfig:"ETGCATALOG_HTTP_RETRIES"`
	HTTPMinIntervalMS  *int    `envconfig:"ETGCATALOG_HTTP_MIN_INTERVAL_MS"`
	HTTPProxyURL       *string `envconfig:"ETGCATALOG_HTTP_PROXY_URL"`

	CLIOutputFile *string `envconfig:"ETGCATALOG_CLI_OUTPUT_FILE"`
}

func Load(path string) (*Config, error) {
	return LoadWithEnvFile(path, ".env")
}

// LoadWithEnvFile reads the YAML profiles at path, loads envFile (a missing file
// is ignored) and applies ETGCATALOG_* overrides on top of the selected profile.
func LoadWithEnvFile(path, envFile string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var root Root
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var ov overrides
	if err := envconfig.Process("", &ov); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	env := root.Env
	if ov.Env != nil {
		env = *ov.Env
	}
	env = strings.TrimSpace(strings.ToLower(env))
	if env == "" {
		env = "local"
	}

	var p Config
	switch env {
	case "local":
		p = root.Local
	case "dev":
		p = root.Dev
	case "prod":
		p = root.Prod
	default:
		return nil, fmt.Errorf("unknown env=%q (expected local|dev|prod)", env)
	}
	p.Env = env

	ov.apply(&p)
	applyDefaults(&p)

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (ov overrides) apply(p *Config) {
	setString(&p.Log.Level, ov.LogLevel)
	setString(&p.Log.Format, ov.LogFormat)
	setString(&p.Server.Host, ov.ServerHost)
	setInt(&p.Server.Port, ov.ServerPort)
	setString(&p.ETG.BaseURL, ov.ETGBaseURL)
	setString(&p.ETG.ProductsPath, ov.ETGProductsPath)
	setString(&p.ETG.FeatureType, ov.ETGFeatureType)
	setInt(&p.Catalog.MaxSeconds, ov.CatalogMaxSeconds)
	if ov.CatalogTimeoutSeconds != nil {
		p.Catalog.TimeoutSeconds = *ov.CatalogTimeoutSeconds
	}
	setInt(&p.Catalog.Passes, ov.CatalogPasses)
	setInt(&p.Catalog.MaxPasses, ov.CatalogMaxPasses)
	setInt(&p.HTTP.TimeoutSeconds, ov.HTTPTimeoutSeconds)
	setInt(&p.HTTP.Retries, ov.HTTPRetries)
	setInt(&p.HTTP.MinIntervalMS, ov.HTTPMinIntervalMS)
	setString(&p.HTTP.ProxyURL, ov.HTTPProxyURL)
	setString(&p.CLI.OutputFile, ov.CLIOutputFile)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func applyDefaults(p *Config) {
	if p.ETG.BaseURL == "" {
		p.ETG.BaseURL = "https://engtechgroup.com"
	}
	p.ETG.BaseURL = strings.TrimRight(p.ETG.BaseURL, "/")
	if p.ETG.ProductsPath == "" {
		p.ETG.ProductsPath = "/wp-content/themes/ETG/machines/filter-machines.php"
	}
	if p.ETG.FeatureType == "" {
		p.ETG.FeatureType = "all"
	}

	if p.Server.Host == "" {
		p.Server.Host = "0.0.0.0"
	}
	if p.Server.Port == 0 {
		p.Server.Port = 8080
	}

	if p.Catalog.MaxSeconds <= 0 {
		p.Catalog.MaxSeconds = 55
	}
	if p.Catalog.TimeoutSeconds <= 0 {
		p.Catalog.TimeoutSeconds = 18
	}
	if p.Catalog.Passes <= 0 {
		p.Catalog.Passes = 2
	}
	if p.Catalog.MaxPasses <= 0 {
		p.Catalog.MaxPasses = 5
	}
	if p.Catalog.SlugCacheSize <= 0 {
		p.Catalog.SlugCacheSize = 1024
	}

	if p.HTTP.TimeoutSeconds <= 0 {
		p.HTTP.TimeoutSeconds = 30
	}
	if p.HTTP.Retries < 0 {
		p.HTTP.Retries = 0
	}
	if p.HTTP.BackoffMS <= 0 {
		p.HTTP.BackoffMS = 500
	}
	if p.HTTP.BackoffMaxMS <= 0 {
		p.HTTP.BackoffMaxMS = 8000
	}
	if p.HTTP.MinIntervalMS < 0 {
		p.HTTP.MinIntervalMS = 0
	}

	if p.CLI.OutputFile == "" {
		p.CLI.OutputFile = "etg_products.json"
	}

	if p.Log.Level == "" {
		if p.Env == "prod" {
			p.Log.Level = "info"
		} else {
			p.Log.Level = "debug"
		}
	}
	if p.Log.Format == "" {
		if p.Env == "prod" {
			p.Log.Format = "json"
		} else {
			p.Log.Format = "text"
		}
	}
	p.Log.Format = strings.ToLower(p.Log.Format)
}

func (p *Config) Validate() error {
	u, err := url.Parse(p.ETG.BaseURL)
	if err != nil {
		return fmt.Errorf("etg.base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("etg.base_url %q must be an absolute http(s) url", p.ETG.BaseURL)
	}
	if !strings.HasPrefix(p.ETG.ProductsPath, "/") {
		return fmt.Errorf("etg.products_path %q must start with /", p.ETG.ProductsPath)
	}
	if p.Server.Port < 1 || p.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", p.Server.Port)
	}
	if p.Catalog.Passes > p.Catalog.MaxPasses {
		return fmt.Errorf("catalog.passes %d exceeds catalog.max_passes %d", p.Catalog.Passes, p.Catalog.MaxPasses)
	}
	if p.HTTP.BackoffMaxMS < p.HTTP.BackoffMS {
		return fmt.Errorf("http.backoff_max_ms %d is below http.backoff_ms %d", p.HTTP.BackoffMaxMS, p.HTTP.BackoffMS)
	}
	switch p.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q (expected text|json)", p.Log.Format)
	}
	return nil
}
