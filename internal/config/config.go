package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/postfilter/internal/domain/criterion"
	"github.com/kailas-cloud/postfilter/internal/domain/pagination"
	"github.com/kailas-cloud/postfilter/internal/domain/query"
	"github.com/kailas-cloud/postfilter/internal/domain/widget"
)

// Config holds the postfilter service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Security  SecurityConfig  `yaml:"security"`
	Listing   ListingConfig   `yaml:"listing"`
	Facets    FacetsConfig    `yaml:"facets"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"` // default: determined by env
}

// AuthConfig holds admin API authentication settings.
// Requests carrying one of these keys are editors: they manage content and bypass the facet cache.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys" validate:"dive,required"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds content store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver" validate:"oneof=redis valkey"` // default: redis
	Addrs            []string `yaml:"addrs" validate:"required,dive,hostname_port"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CacheConfig holds the compiled-query slot and facet cache settings.
type CacheConfig struct {
	Driver     string       `yaml:"driver" validate:"oneof=redis badger"` // default: redis
	Key        string       `yaml:"key"`
	TTLSec     int          `yaml:"ttl_sec"`
	SharedSlot bool         `yaml:"shared_slot"` // listings without a token fall back to the last compiled filter
	Badger     BadgerConfig `yaml:"badger"`
}

// BadgerConfig holds the embedded cache driver settings.
type BadgerConfig struct {
	Dir      string `yaml:"dir"`
	InMemory bool   `yaml:"in_memory"`
}

// SecurityConfig holds token signing settings.
type SecurityConfig struct {
	NonceSecret  string `yaml:"nonce_secret" validate:"required,min=16"`
	FilterSecret string `yaml:"filter_secret" validate:"required,min=16"`
	NonceTTLSec  int    `yaml:"nonce_ttl_sec"`
	FilterTTLSec int    `yaml:"filter_ttl_sec"`
}

// ListingConfig declares the content index and the listing widgets.
type ListingConfig struct {
	Index         string         `yaml:"index"`
	Endpoint      string         `yaml:"endpoint"` // ajax endpoint path rewritten out of pagination links
	Taxonomies    []string       `yaml:"taxonomies" validate:"dive,required"`
	MetaFields    []string       `yaml:"meta_fields" validate:"dive,required"`
	NumericFields []string       `yaml:"numeric_fields" validate:"dive,required"`
	Widgets       []WidgetConfig `yaml:"widgets" validate:"required,dive"`
}

// WidgetConfig is one listing widget.
type WidgetConfig struct {
	ID               string `yaml:"id" validate:"required"`
	PostType         string `yaml:"post_type"`
	PerPage          int    `yaml:"per_page" validate:"gte=0,lte=100"`
	Pagination       string `yaml:"pagination" validate:"omitempty,oneof=numbers numbers_and_prev_next prev_next load_more_on_click load_more_infinite_scroll none"`
	Query            string `yaml:"query" validate:"omitempty,oneof=main custom user"`
	NothingFound     string `yaml:"nothing_found"`
	OrderBy          string `yaml:"order_by"`
	Order            string `yaml:"order" validate:"omitempty,oneof=ASC DESC asc desc"`
	OrderMetaKey     string `yaml:"order_meta_key"`
	GroupLogic       string `yaml:"group_logic" validate:"omitempty,oneof=AND OR and or"`
	DynamicFiltering bool   `yaml:"dynamic_filtering"`
}

// FacetsConfig holds facet enumeration settings.
type FacetsConfig struct {
	TTLSec int `yaml:"ttl_sec"`
}

// RateLimitConfig limits filter submissions per client.
type RateLimitConfig struct {
	Driver    string `yaml:"driver" validate:"oneof=redis memory"` // default: redis
	Requests  int    `yaml:"requests" validate:"gte=0"`            // 0 = unlimited
	WindowSec int    `yaml:"window_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML configuration.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "redis"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 24 * 60 * 60
	}
	if c.Listing.Endpoint == "" {
		c.Listing.Endpoint = "/ajax"
	}
	if c.Facets.TTLSec <= 0 {
		c.Facets.TTLSec = 12 * 60 * 60
	}
	if c.RateLimit.Driver == "" {
		c.RateLimit.Driver = "redis"
	}
	if c.RateLimit.WindowSec <= 0 {
		c.RateLimit.WindowSec = 60
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return err
	}

	if c.Cache.Driver == "badger" && c.Cache.Badger.Dir == "" && !c.Cache.Badger.InMemory {
		return fmt.Errorf("cache.badger.dir is required unless cache.badger.in_memory is set")
	}

	seen := make(map[string]bool, len(c.Listing.Widgets))
	for _, w := range c.Listing.Widgets {
		if seen[w.ID] {
			return fmt.Errorf("listing.widgets: duplicate id %q", w.ID)
		}
		seen[w.ID] = true
	}
	return nil
}

func fieldError(fe validator.FieldError) error {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	if fe.Param() != "" {
		return fmt.Errorf("%s failed %q (%s), got %v", field, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Errorf("%s failed %q", field, fe.Tag())
}

// CacheTTL returns the compiled-query slot TTL.
func (c *Config) CacheTTL() time.Duration { return time.Duration(c.Cache.TTLSec) * time.Second }

// FacetsTTL returns the facet cache TTL.
func (c *Config) FacetsTTL() time.Duration { return time.Duration(c.Facets.TTLSec) * time.Second }

// RateWindow returns the rate-limit window.
func (c *Config) RateWindow() time.Duration { return time.Duration(c.RateLimit.WindowSec) * time.Second }

// Schema returns the declared content fields.
func (l ListingConfig) Schema() *query.Schema {
	return query.NewSchema(l.Taxonomies, l.MetaFields, l.NumericFields)
}

// Widget converts the settings into a widget. Defaults are filled by widget.Normalize.
func (w WidgetConfig) Widget() widget.Widget {
	var order query.Sort
	if w.OrderBy != "" {
		order = query.Sort{Field: w.OrderBy, Direction: query.DESC, MetaKey: w.OrderMetaKey}
		if w.Order != "" {
			order.Direction = query.ParseDirection(w.Order)
		}
	}
	return widget.Widget{
		ID:               w.ID,
		PostType:         w.PostType,
		PerPage:          w.PerPage,
		Pagination:       pagination.ParseMode(w.Pagination),
		Query:            pagination.ParseQueryKind(w.Query),
		NothingFound:     w.NothingFound,
		Order:            order,
		GroupLogic:       criterion.ParseLogic(w.GroupLogic),
		DynamicFiltering: w.DynamicFiltering,
	}
}

// Registry builds the widget registry.
func (l ListingConfig) Registry() (*widget.Registry, error) {
	ws := make([]widget.Widget, 0, len(l.Widgets))
	for _, w := range l.Widgets {
		ws = append(ws, w.Widget())
	}
	return widget.NewRegistry(ws)
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		varName, defaultVal, hasDefault := strings.Cut(string(match[2:len(match)-1]), ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
