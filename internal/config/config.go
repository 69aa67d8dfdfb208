package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Publish  PublishConfig  `yaml:"publish" mapstructure:"publish"`
	Notion   NotionConfig   `yaml:"notion" mapstructure:"notion"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the upload history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the upload API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadMB    int64    `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// AnalysisConfig holds the tunables of column reconciliation and cost imputation.
type AnalysisConfig struct {
	SimilarityThreshold int            `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	FallbackMargin      float64        `yaml:"fallback_margin" mapstructure:"fallback_margin"`
	AOVUplift           float64        `yaml:"aov_uplift" mapstructure:"aov_uplift"`
	Currency            string         `yaml:"currency" mapstructure:"currency"`
	Margins             []MarginConfig `yaml:"margins" mapstructure:"margins"`
}

// MarginConfig is one row of the category margin table.
type MarginConfig struct {
	Category string   `yaml:"category" mapstructure:"category"`
	Margin   float64  `yaml:"margin" mapstructure:"margin"`
	Keywords []string `yaml:"keywords" mapstructure:"keywords"`
}

// PublishConfig configures where finished extracts are handed off.
type PublishConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	FileName string `yaml:"file_name" mapstructure:"file_name"`
	TempDir  string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// NotionConfig holds Notion API credentials for the upload log database.
// Publishing to Notion is skipped when Token or UploadDB is empty.
type NotionConfig struct {
	Token     string  `yaml:"token" mapstructure:"token"`
	UploadDB  string  `yaml:"upload_db" mapstructure:"upload_db"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`

	RetryAttempts  int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs int `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// Enabled reports whether uploads should be logged to Notion.
func (c NotionConfig) Enabled() bool {
	return c.Token != "" && c.UploadDB != ""
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultMargins returns the built-in category margin table.
func DefaultMargins() []MarginConfig {
	return []MarginConfig{
		{Category: "Electronics", Margin: 0.20, Keywords: []string{"electronics", "gadgets", "devices", "tech", "електроніка", "гаджети", "техніка"}},
		{Category: "Clothing", Margin: 0.50, Keywords: []string{"clothing", "apparel", "fashion", "shoes", "одяг", "взуття"}},
		{Category: "Food", Margin: 0.30, Keywords: []string{"food", "grocery", "groceries", "drinks", "продукти", "їжа", "напої"}},
		{Category: "Home", Margin: 0.40, Keywords: []string{"home", "furniture", "kitchen", "garden", "дім", "меблі"}},
		{Category: "Beauty", Margin: 0.55, Keywords: []string{"beauty", "cosmetics", "skincare", "косметика", "краса"}},
		{Category: "Books", Margin: 0.35, Keywords: []string{"books", "stationery", "книги", "канцелярія"}},
		{Category: "Sports", Margin: 0.40, Keywords: []string{"sports", "fitness", "outdoor", "спорт"}},
		{Category: "Toys", Margin: 0.45, Keywords: []string{"toys", "games", "kids", "іграшки", "ігри"}},
		{Category: "default", Margin: 0.30},
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INSIGHTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "data/uploads.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.allowed_origins", []string{"https://my-diploma-project.vercel.app"})
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("analysis.similarity_threshold", 60)
	v.SetDefault("analysis.fallback_margin", 0.30)
	v.SetDefault("analysis.aov_uplift", 1.15)
	v.SetDefault("analysis.currency", "грн")
	v.SetDefault("analysis.margins", DefaultMargins())
	v.SetDefault("publish.dir", "data")
	v.SetDefault("publish.file_name", "standard_sales_data.csv")
	v.SetDefault("notion.rate_limit", 3.0)
	v.SetDefault("notion.retry_attempts", 3)
	v.SetDefault("notion.retry_backoff_ms", 500)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration values a command depends on.
// Commands: "serve", "analyze", "store".
func (c *Config) Validate(command string) error {
	var errs []string

	if c.Analysis.SimilarityThreshold < 0 || c.Analysis.SimilarityThreshold > 100 {
		errs = append(errs, fmt.Sprintf("analysis.similarity_threshold must be within 0..100 (got %d)", c.Analysis.SimilarityThreshold))
	}
	if c.Analysis.FallbackMargin <= 0 || c.Analysis.FallbackMargin >= 1 {
		errs = append(errs, fmt.Sprintf("analysis.fallback_margin must be within (0, 1) (got %g)", c.Analysis.FallbackMargin))
	}
	if c.Analysis.AOVUplift <= 0 {
		errs = append(errs, fmt.Sprintf("analysis.aov_uplift must be positive (got %g)", c.Analysis.AOVUplift))
	}

	switch command {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port must be within 1..65535 (got %d)", c.Server.Port))
		}
		if c.Server.MaxUploadMB <= 0 {
			errs = append(errs, "server.max_upload_mb must be positive")
		}
		errs = append(errs, c.validateStore()...)
	case "store":
		errs = append(errs, c.validateStore()...)
	}

	if len(errs) > 0 {
		return eris.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return []string{fmt.Sprintf("store.driver must be sqlite or postgres (got %q)", c.Store.Driver)}
	}
	if c.Store.DatabaseURL == "" {
		return []string{"store.database_url is required"}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
