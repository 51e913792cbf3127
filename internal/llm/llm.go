package llm

import (
	"net/http"

	"github.com/comigor/salesdesk/internal/config"
	"github.com/sashabaranov/go-openai"
)

// NewClient creates a new OpenAI client. An empty BaseURL keeps the library
// default; a zero Timeout keeps the transport default.
func NewClient(cfg config.LLMConfig) *openai.Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		config.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return openai.NewClientWithConfig(config)
}
