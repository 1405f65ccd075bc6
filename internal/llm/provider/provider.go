// Package provider builds the model registry from configured credentials.
package provider

import (
	"net/http"

	"github.com/alanyoungcy/oracles/internal/llm"
	"github.com/alanyoungcy/oracles/internal/llm/anthropic"
	"github.com/alanyoungcy/oracles/internal/llm/openai"
)

// Supported provider keys.
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
	XAI       = "xai"
)

// XAIBaseURL is the OpenAI-compatible xAI endpoint.
const XAIBaseURL = "https://api.x.ai/v1"

// Credentials holds one provider's key and optional endpoint override.
type Credentials struct {
	APIKey  string
	BaseURL string
}

// Config lists credentials per provider.
type Config struct {
	OpenAI    Credentials
	Anthropic Credentials
	XAI       Credentials
}

// NewRegistry registers a client for every provider that has an API key and
// declares the rest, so lookups report missing credentials rather than an
// unknown provider.
func NewRegistry(cfg Config, httpClient *http.Client) *llm.Registry {
	reg := llm.NewRegistry()

	if cfg.OpenAI.APIKey != "" {
		reg.Register(OpenAI, openai.New(openai.Config{
			Name:             OpenAI,
			APIKey:           cfg.OpenAI.APIKey,
			BaseURL:          cfg.OpenAI.BaseURL,
			StructuredOutput: true,
			HTTPClient:       httpClient,
		}))
	} else {
		reg.Declare(OpenAI)
	}

	if cfg.Anthropic.APIKey != "" {
		reg.Register(Anthropic, anthropic.New(cfg.Anthropic.APIKey, cfg.Anthropic.BaseURL, httpClient))
	} else {
		reg.Declare(Anthropic)
	}

	if cfg.XAI.APIKey != "" {
		baseURL := cfg.XAI.BaseURL
		if baseURL == "" {
			baseURL = XAIBaseURL
		}
		reg.Register(XAI, openai.New(openai.Config{
			Name:             XAI,
			APIKey:           cfg.XAI.APIKey,
			BaseURL:          baseURL,
			StructuredOutput: true,
			HTTPClient:       httpClient,
		}))
	} else {
		reg.Declare(XAI)
	}

	return reg
}
