package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         App         `mapstructure:"app"`
	AI          AI          `mapstructure:"ai"`
	GoAPI       GoAPI       `mapstructure:"goapi"`
	Classifier  Classifier  `mapstructure:"classifier"`
	Budget      Budget      `mapstructure:"budget"`
	Summary     Summary     `mapstructure:"summary"`
	Prompts     Prompts     `mapstructure:"prompts"`
	Preferences Preferences `mapstructure:"preferences"`
	Store       Store       `mapstructure:"store"`
	Quality     Quality     `mapstructure:"quality"`
	Logging     Logging     `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	ConfigFile string `mapstructure:"config_file"`
}

// AI holds LLM configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey           string  `mapstructure:"api_key"`
	Model            string  `mapstructure:"model"`
	Timeout          string  `mapstructure:"timeout"`
	Temperature      float32 `mapstructure:"temperature"`
	MaxOutputTokens  int32   `mapstructure:"max_output_tokens"`
	PromptTokenLimit int     `mapstructure:"prompt_token_limit"`
	JSONResponseMode bool    `mapstructure:"json_response_mode"`
}

// GoAPI holds configuration for the IFRC GO platform API
type GoAPI struct {
	BaseURL    string `mapstructure:"base_url"`
	Token      string `mapstructure:"token"`
	PageSize   int    `mapstructure:"page_size"`
	Timeout    string `mapstructure:"timeout"`
	MaxRetries int    `mapstructure:"max_retries"`
	RetryDelay string `mapstructure:"retry_delay"`
}

// Classifier holds configuration for the PER component tagging service
type Classifier struct {
	URL     string `mapstructure:"url"`
	Timeout string `mapstructure:"timeout"`
}

// Budget holds the token budget used when selecting excerpts
type Budget struct {
	PromptDataLimit int    `mapstructure:"prompt_data_limit"`
	Encoding        string `mapstructure:"encoding"`
	CacheSize       int    `mapstructure:"cache_size"`
}

// Summary holds validation and retry settings for generated summaries
type Summary struct {
	MaxAttempts int    `mapstructure:"max_attempts"`
	RetryDelay  string `mapstructure:"retry_delay"`
}

// Prompts holds paths of the external prompt sections
type Prompts struct {
	SystemMessage   string `mapstructure:"system_message"`
	PrimaryFormat   string `mapstructure:"primary_format"`
	SecondaryFormat string `mapstructure:"secondary_format"`
}

// Preferences holds paths of the component preference lists
type Preferences struct {
	Countries string `mapstructure:"countries"`
	Regions   string `mapstructure:"regions"`
	Global    string `mapstructure:"global"`
}

// Store holds the SQLite store configuration
type Store struct {
	DataDir string `mapstructure:"data_dir"`
	Disable bool   `mapstructure:"disable"`
}

// Quality holds the summary evaluation settings. The evaluator uses the
// Gemini API key of the ai section.
type Quality struct {
	Model           string `mapstructure:"model"` // Defaults to ai.gemini.model
	MaxOutputTokens int32  `mapstructure:"max_output_tokens"`
	MinRelevance    int    `mapstructure:"min_relevance"`
	MinCoherence    int    `mapstructure:"min_coherence"`
	MinConsistency  int    `mapstructure:"min_consistency"`
	MinFluency      int    `mapstructure:"min_fluency"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads the configuration from .env, an optional config file, defaults
// and environment variables, in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.SetConfigName(".opslearning")
		v.SetConfigType("yaml")
	}

	setDefaults(v)
	bindEnvironmentVariables(v)

	v.SetEnvPrefix("OPSLEARNING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("%w: error reading config file: %v", core.ErrConfig, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("%w: error unmarshaling config: %v", core.ErrConfig, err)
	}
	config.App.ConfigFile = v.ConfigFileUsed()

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfig, err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.debug", false)

	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.timeout", "120s")
	v.SetDefault("ai.gemini.temperature", 0.2)
	v.SetDefault("ai.gemini.max_output_tokens", 4096)
	v.SetDefault("ai.gemini.prompt_token_limit", 6500)
	v.SetDefault("ai.gemini.json_response_mode", true)

	v.SetDefault("goapi.base_url", "https://goadmin.ifrc.org/api/v2/")
	v.SetDefault("goapi.page_size", 200)
	v.SetDefault("goapi.timeout", "60s")
	v.SetDefault("goapi.max_retries", 5)
	v.SetDefault("goapi.retry_delay", "1s")

	v.SetDefault("classifier.url", "https://dreftagging.azurewebsites.net/classify")
	v.SetDefault("classifier.timeout", "30s")

	v.SetDefault("budget.prompt_data_limit", 5000)
	v.SetDefault("budget.encoding", "cl100k_base")
	v.SetDefault("budget.cache_size", 4096)

	v.SetDefault("summary.max_attempts", 3)
	v.SetDefault("summary.retry_delay", "1s")

	v.SetDefault("prompts.system_message", "prompts/system_message.txt")
	v.SetDefault("prompts.primary_format", "prompts/format_primary.txt")
	v.SetDefault("prompts.secondary_format", "prompts/format_secondary.txt")

	v.SetDefault("preferences.countries", "data/list_components_countries.json")
	v.SetDefault("preferences.regions", "data/list_components_regions.json")
	v.SetDefault("preferences.global", "data/list_components_global.json")

	v.SetDefault("store.data_dir", ".opslearning-cache")
	v.SetDefault("store.disable", false)

	v.SetDefault("quality.model", "")
	v.SetDefault("quality.max_output_tokens", 500)
	v.SetDefault("quality.min_relevance", 3)
	v.SetDefault("quality.min_coherence", 3)
	v.SetDefault("quality.min_consistency", 3)
	v.SetDefault("quality.min_fluency", 2)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables(v *viper.Viper) {
	// Gemini API key - support multiple formats
	bindEnvKeys(v, "ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys(v, "ai.gemini.model", []string{
		"GEMINI_MODEL",
	})

	bindEnvKeys(v, "goapi.token", []string{
		"GO_API_TOKEN",
		"GO_AUTHORIZATION_TOKEN",
	})

	bindEnvKeys(v, "goapi.base_url", []string{
		"GO_API_URL",
	})

	bindEnvKeys(v, "classifier.url", []string{
		"CLASSIFY_URL",
	})

	bindEnvKeys(v, "app.debug", []string{
		"DEBUG",
		"OPSLEARNING_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(v *viper.Viper, viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			v.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	// Expand paths
	paths := []*string{
		&config.Store.DataDir,
		&config.Prompts.SystemMessage,
		&config.Prompts.PrimaryFormat,
		&config.Prompts.SecondaryFormat,
		&config.Preferences.Countries,
		&config.Preferences.Regions,
		&config.Preferences.Global,
	}
	for _, p := range paths {
		if *p != "" {
			*p = expandPath(*p)
		}
	}

	if !strings.HasSuffix(config.GoAPI.BaseURL, "/") {
		config.GoAPI.BaseURL += "/"
	}

	if config.App.Debug {
		config.Logging.Level = "debug"
	}

	// Validate durations
	durations := map[string]string{
		"ai.gemini.timeout":   config.AI.Gemini.Timeout,
		"goapi.timeout":       config.GoAPI.Timeout,
		"goapi.retry_delay":   config.GoAPI.RetryDelay,
		"classifier.timeout":  config.Classifier.Timeout,
		"summary.retry_delay": config.Summary.RetryDelay,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig checks values that would otherwise fail deep inside a run
func validateConfig(config *Config) error {
	var errors []string

	if config.Budget.PromptDataLimit <= 0 {
		errors = append(errors, "budget.prompt_data_limit must be positive")
	}
	if config.Budget.Encoding == "" {
		errors = append(errors, "budget.encoding is required")
	}
	if config.Summary.MaxAttempts <= 0 {
		errors = append(errors, "summary.max_attempts must be positive")
	}
	if config.GoAPI.PageSize <= 0 {
		errors = append(errors, "goapi.page_size must be positive")
	}
	if config.AI.Gemini.PromptTokenLimit <= 0 {
		errors = append(errors, "ai.gemini.prompt_token_limit must be positive")
	}
	if config.Quality.MaxOutputTokens <= 0 {
		errors = append(errors, "quality.max_output_tokens must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%w:\n- %s", core.ErrConfig, strings.Join(errors, "\n- "))
	}

	return nil
}

// RequireGemini reports a configuration error when no Gemini API key is set.
// Only commands that call the model need it.
func (c *Config) RequireGemini() error {
	if c.AI.Gemini.APIKey == "" {
		return fmt.Errorf("%w: Gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file", core.ErrConfig)
	}
	return nil
}

// RequireGoToken reports a configuration error when no GO API token is set.
// Reads of public tables work without one; posting learnings does not.
func (c *Config) RequireGoToken() error {
	if c.GoAPI.Token == "" {
		return fmt.Errorf("%w: GO API token is required. Set GO_API_TOKEN environment variable or goapi.token in config file", core.ErrConfig)
	}
	return nil
}

// EvaluatorGemini returns the Gemini settings of the summary evaluator:
// deterministic plain-text scoring with no prompt token guard.
func (c *Config) EvaluatorGemini() GeminiConfig {
	g := c.AI.Gemini
	if c.Quality.Model != "" {
		g.Model = c.Quality.Model
	}
	g.Temperature = 0
	g.MaxOutputTokens = c.Quality.MaxOutputTokens
	g.JSONResponseMode = false
	g.PromptTokenLimit = 0
	return g
}

// Duration parses a duration value that postProcessConfig already validated.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
