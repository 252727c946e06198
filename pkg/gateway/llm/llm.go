package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/simplifyhr/offerflow/pkg/config"
)

// Prompt is one single-turn completion request.
type Prompt struct {
	System string
	User   string
}

// Completer returns the raw text the model produced for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// New builds the completer selected by cfg.Provider.
func New(ctx context.Context, cfg config.AIConfig, httpClient *http.Client) (Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("ai.api_key is required for the openai provider")
		}
		return NewOpenAIClient(cfg.Endpoint, cfg.APIKey, cfg.Model, cfg.Temperature, httpClient), nil
	case "vertex":
		return NewVertexAIClient(ctx, cfg.GoogleCloudProject, cfg.GoogleCloudLocation, cfg.Model, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
