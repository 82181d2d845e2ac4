package factory

import (
	"fmt"

	"owlynn-be/internal/config"
	"owlynn-be/pkg/llm"
	"owlynn-be/pkg/llm/ollama"
	"owlynn-be/pkg/llm/openai"
)

// NewLLMProvider builds the chat provider selected by LLM_PROVIDER.
func NewLLMProvider(cfg config.LLMConfig, vision config.VisionConfig) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "openai", "lmstudio", "":
		p := openai.NewProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Temperature, cfg.MaxTokens)
		return p.WithCaptionModel(vision.CaptionModel), nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
