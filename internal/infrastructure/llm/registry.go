package llm

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"TiskyPipeline/internal/config"
	"TiskyPipeline/internal/ports"
)

// Provider couples configuration validation with client construction.
type Provider struct {
	Validate func(config.LLMConfig) error
	Build    func(config.LLMConfig, *slog.Logger) ports.LLM
}

// Registry keeps a mapping from provider names to their constructors.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry preloaded with the built-in providers.
func NewRegistry() *Registry {
	r := &Registry{providers: map[string]Provider{}}

	r.Register("ollama", Provider{
		Validate: func(config.LLMConfig) error { return nil },
		Build: func(cfg config.LLMConfig, log *slog.Logger) ports.LLM {
			return newClient(newOllama(cfg.Ollama, log), cfg, log)
		},
	})
	r.Register("openai", Provider{
		Validate: func(cfg config.LLMConfig) error {
			if cfg.OpenAI.APIKey == "" {
				return errors.New("OPENAI_API_KEY is not set")
			}
			return nil
		},
		Build: func(cfg config.LLMConfig, log *slog.Logger) ports.LLM {
			return newClient(newOpenAI(cfg.OpenAI, log), cfg, log)
		},
	})
	r.Register("anthropic", Provider{
		Validate: func(cfg config.LLMConfig) error {
			if cfg.Anthropic.APIKey == "" {
				return errors.New("ANTHROPIC_API_KEY is not set")
			}
			return nil
		},
		Build: func(cfg config.LLMConfig, log *slog.Logger) ports.LLM {
			return newClient(newAnthropic(cfg.Anthropic), cfg, log)
		},
	})

	return r
}

// Register adds or replaces a provider implementation.
func (r *Registry) Register(name string, p Provider) {
	if r.providers == nil {
		r.providers = map[string]Provider{}
	}
	r.providers[strings.ToLower(name)] = p
}

// Resolve returns a provider by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Provider, error) {
	if p, ok := r.providers[strings.ToLower(name)]; ok {
		return p, nil
	}
	return Provider{}, fmt.Errorf("llm provider %s is not registered", name)
}

// NewFactory validates the configured provider and returns a factory that
// yields a fresh client per call. Each pipeline stage constructs its own
// client, so provider availability is re-probed between stages.
func NewFactory(cfg config.LLMConfig, log *slog.Logger) (ports.LLMFactory, error) {
	name := strings.TrimSpace(cfg.Provider)
	if name == "" {
		name = "ollama"
	}

	provider, err := NewRegistry().Resolve(name)
	if err != nil {
		return nil, err
	}
	if err := provider.Validate(cfg); err != nil {
		return nil, err
	}

	return func() ports.LLM {
		return provider.Build(cfg, log)
	}, nil
}
