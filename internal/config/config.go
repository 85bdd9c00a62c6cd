package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration
type Config struct {
	Catalog   CatalogConfig   `json:"catalog"`
	Embedding EmbeddingConfig `json:"embedding"`
	LLM       LLMConfig       `json:"llm"`
	Index     IndexConfig     `json:"index"`
	Reranker  RerankerConfig  `json:"reranker"`
	Pipeline  PipelineConfig  `json:"pipeline"`
	Prompt    PromptConfig    `json:"prompt"`
	Logging   LoggingConfig   `json:"logging"`
}

// CatalogConfig identifies the external metadata catalog service
type CatalogConfig struct {
	ServerURL    string `json:"server_url"    env:"CATALOG_SERVER_URL"`
	Token        string `json:"token"         env:"CATALOG_TOKEN"`
	Timeout      string `json:"timeout"       env:"CATALOG_TIMEOUT"       envDefault:"30s"`
	FetchWorkers int    `json:"fetch_workers" env:"CATALOG_FETCH_WORKERS" envDefault:"8"`
}

// EmbeddingConfig selects and credentials the embedding capability
type EmbeddingConfig struct {
	Provider string `json:"provider" env:"EMBEDDING_PROVIDER" envDefault:"openai"`
	Model    string `json:"model"    env:"EMBEDDING_MODEL"    envDefault:"text-embedding-3-small"`
	APIKey   string `json:"api_key"  env:"EMBEDDING_API_KEY"`
	BaseURL  string `json:"base_url" env:"EMBEDDING_BASE_URL"`
	Timeout  string `json:"timeout"  env:"EMBEDDING_TIMEOUT"  envDefault:"60s"`
}

// LLMConfig selects and credentials the generation capability
type LLMConfig struct {
	Provider string `json:"provider" env:"LLM_PROVIDER" envDefault:"openai"`
	Model    string `json:"model"    env:"LLM_MODEL"    envDefault:"gpt-4o"`
	APIKey   string `json:"api_key"  env:"LLM_API_KEY"`
	BaseURL  string `json:"base_url" env:"LLM_BASE_URL"`
	Timeout  string `json:"timeout"  env:"LLM_TIMEOUT"  envDefault:"120s"`
}

// IndexConfig locates the persisted vector index
type IndexConfig struct {
	Location string `json:"location" env:"INDEX_LOCATION" envDefault:"~/.config/queryscout/table_info.db"`
}

// RerankerConfig configures the cross-encoder scoring endpoint
type RerankerConfig struct {
	BaseURL   string `json:"base_url"   env:"RERANKER_BASE_URL"`
	Model     string `json:"model"      env:"RERANKER_MODEL"      envDefault:"BAAI/bge-reranker-base"`
	Timeout   string `json:"timeout"    env:"RERANKER_TIMEOUT"    envDefault:"60s"`
	CacheSize int    `json:"cache_size" env:"RERANKER_CACHE_SIZE" envDefault:"512"`
}

// PipelineConfig carries pipeline execution defaults
type PipelineConfig struct {
	Topology    string `json:"topology"     env:"PIPELINE_TOPOLOGY"  envDefault:"basic"`
	Retriever   string `json:"retriever"    env:"PIPELINE_RETRIEVER" envDefault:"basic"`
	TopN        int    `json:"top_n"        env:"PIPELINE_TOP_N"     envDefault:"5"`
	Device      string `json:"device"       env:"PIPELINE_DEVICE"    envDefault:"cpu"`
	DatabaseEnv string `json:"database_env" env:"PIPELINE_DB_ENV"    envDefault:"postgres"`
}

// PromptConfig locates optional prompt template overrides
type PromptConfig struct {
	TemplateDir string `json:"template_dir" env:"PROMPT_TEMPLATE_DIR"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  envDefault:"info"`   // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"console"` // console, json
	Output string `json:"output" env:"LOG_OUTPUT" envDefault:"stderr"` // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"   envDefault:"~/.config/queryscout/logs/app.log"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	config := &Config{}

	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply environment variable overrides using env library (also sets defaults)
	if err := env.ParseWithOptions(config, env.Options{
		Prefix: "QUERYSCOUT_",
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if flagOverrides != nil {
		applyFlagOverrides(config, flagOverrides)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "index-location":
			if str, ok := value.(string); ok && str != "" {
				config.Index.Location = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "topology":
			if str, ok := value.(string); ok && str != "" {
				config.Pipeline.Topology = str
			}
		case "retriever":
			if str, ok := value.(string); ok && str != "" {
				config.Pipeline.Retriever = str
			}
		case "top-n":
			if n, ok := value.(int); ok && n > 0 {
				config.Pipeline.TopN = n
			}
		case "database-env":
			if str, ok := value.(string); ok && str != "" {
				config.Pipeline.DatabaseEnv = str
			}
		}
	}
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"console": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be console or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	for name, value := range map[string]string{
		"catalog timeout":   config.Catalog.Timeout,
		"embedding timeout": config.Embedding.Timeout,
		"llm timeout":       config.LLM.Timeout,
		"reranker timeout":  config.Reranker.Timeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %s", name, value)
		}
	}

	if config.Catalog.FetchWorkers <= 0 {
		return fmt.Errorf("catalog fetch workers must be positive: %d", config.Catalog.FetchWorkers)
	}

	if config.Pipeline.TopN <= 0 {
		return fmt.Errorf("pipeline top_n must be positive: %d", config.Pipeline.TopN)
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configPath := getConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("QUERYSCOUT_CONFIG"); configPath != "" {
		return ExpandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "queryscout", "config.json")
}

// ExpandPath expands ~ to home directory in file paths
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Index.Location = ExpandPath(c.Index.Location)
	c.Logging.File = ExpandPath(c.Logging.File)
	c.Prompt.TemplateDir = ExpandPath(c.Prompt.TemplateDir)
}
