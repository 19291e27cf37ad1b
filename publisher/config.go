package publisher

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration, loaded from YAML with environment
// overrides for the secrets.
type Config struct {
	ServerAddr string           `yaml:"server_addr"`
	LLM        *LLMConfig       `yaml:"llm"`
	WordPress  *WordPressConfig `yaml:"wordpress"`
	Generation GenerationConfig `yaml:"generation"`
}

// LLMConfig selects and configures the generation model.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

// WordPressConfig holds the publishing destination credentials.
type WordPressConfig struct {
	BaseURL     string `yaml:"base_url"`
	Username    string `yaml:"username"`
	AppPassword string `yaml:"app_password"`
}

// GenerationConfig tunes the pipeline.
type GenerationConfig struct {
	DraftConcurrency int  `yaml:"draft_concurrency"`
	MaxAttempts      int  `yaml:"max_attempts"`
	MaxRounds        int  `yaml:"max_rounds"`
	DeadlineSeconds  int  `yaml:"deadline_seconds"`
	SkipMetadata     bool `yaml:"skip_metadata"`
}

// LoadConfig reads YAML config from disk. LLM_API_KEY and WP_APP_PASSWORD
// environment variables override their file counterparts so secrets can stay
// out of the config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		if cfg.LLM == nil {
			cfg.LLM = &LLMConfig{}
		}
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("WP_APP_PASSWORD"); v != "" {
		if cfg.WordPress == nil {
			cfg.WordPress = &WordPressConfig{}
		}
		cfg.WordPress.AppPassword = v
	}
	return cfg, nil
}
