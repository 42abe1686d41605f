// Package provider selects the configured model backend.
package provider

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/llm"
	"github.com/joseph-ayodele/contract-tracker/internal/llm/gemini"
	"github.com/joseph-ayodele/contract-tracker/internal/llm/openai"
)

// New returns the Generator named by cfg.Provider.
func New(cfg common.LLMConfig, logger *slog.Logger) (llm.Generator, error) {
	switch cfg.Provider {
	case "", "gemini":
		return gemini.NewClient(gemini.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger), nil
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger), nil
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown llm provider %q", cfg.Provider), common.ErrInvalidInput)
	}
}
