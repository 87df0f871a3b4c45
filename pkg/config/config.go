package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Provider  ProviderConfig  `json:"provider"`
	Gateway   GatewayConfig   `json:"gateway"`
	Companion CompanionConfig `json:"companion"`
	Storage   StorageConfig   `json:"storage"`
	mu        sync.RWMutex
}

type ProviderConfig struct {
	APIKey  string `json:"api_key" env:"AEGIS_PROVIDER_API_KEY"`
	APIBase string `json:"api_base" env:"AEGIS_PROVIDER_API_BASE"`
	Model   string `json:"model" env:"AEGIS_PROVIDER_MODEL"`
}

type GatewayConfig struct {
	Host    string `json:"host" env:"AEGIS_GATEWAY_HOST"`
	Port    int    `json:"port" env:"AEGIS_GATEWAY_PORT"`
	WebRoot string `json:"web_root" env:"AEGIS_GATEWAY_WEB_ROOT"`
}

type CompanionConfig struct {
	DefaultLanguage string  `json:"default_language" env:"AEGIS_COMPANION_DEFAULT_LANGUAGE"`
	Temperature     float64 `json:"temperature" env:"AEGIS_COMPANION_TEMPERATURE"`
	TopK            int     `json:"top_k" env:"AEGIS_COMPANION_TOP_K"`
	TopP            float64 `json:"top_p" env:"AEGIS_COMPANION_TOP_P"`
	MaxOutputTokens int     `json:"max_output_tokens" env:"AEGIS_COMPANION_MAX_OUTPUT_TOKENS"`
	ChatRecapLimit  int     `json:"chat_recap_limit" env:"AEGIS_COMPANION_CHAT_RECAP_LIMIT"`
}

type StorageConfig struct {
	DataDir string `json:"data_dir" env:"AEGIS_STORAGE_DATA_DIR"`
}

func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			APIKey:  "",
			APIBase: "https://generativelanguage.googleapis.com/v1",
			Model:   "gemini-2.5-flash-lite",
		},
		Gateway: GatewayConfig{
			Host:    "0.0.0.0",
			Port:    5001,
			WebRoot: "",
		},
		Companion: CompanionConfig{
			DefaultLanguage: "en",
			Temperature:     0.7,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 1024,
			ChatRecapLimit:  10,
		},
		Storage: StorageConfig{
			DataDir: "~/.aegis/data",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if envErr := env.Parse(cfg); envErr != nil {
				return nil, envErr
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func (c *Config) DataDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Storage.DataDir)
}

func (c *Config) GetAPIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Provider.APIKey
}

func (c *Config) GetAPIBase() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Provider.APIBase != "" {
		return c.Provider.APIBase
	}
	return "https://generativelanguage.googleapis.com/v1"
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
