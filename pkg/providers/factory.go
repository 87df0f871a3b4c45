package providers

import (
	"fmt"

	"github.com/aegiscare/aegis/pkg/config"
)

// CreateProvider builds the configured backend provider.
func CreateProvider(cfg *config.Config) (Provider, error) {
	apiKey := cfg.GetAPIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("no API key configured; set provider.api_key or AEGIS_PROVIDER_API_KEY")
	}

	genConfig := GenerationConfig{
		Temperature:     cfg.Companion.Temperature,
		TopK:            cfg.Companion.TopK,
		TopP:            cfg.Companion.TopP,
		MaxOutputTokens: cfg.Companion.MaxOutputTokens,
	}
	return NewGeminiProvider(apiKey, cfg.GetAPIBase(), cfg.Provider.Model, genConfig), nil
}
