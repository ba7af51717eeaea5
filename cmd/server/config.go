package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/vantageintel/vantage-web-ui/internal/handlers"
	"github.com/vantageintel/vantage-web-ui/internal/services"
	"gopkg.in/yaml.v3"
)

type llmConfig interface {
	llm(systemPrompt string, logger *slog.Logger) (handlers.LLM, error)
	generator(systemPrompt string, logger *slog.Logger) (handlers.Generator, error)
}

// BaseLLMConfig contains the common fields for all LLM configurations.
type BaseLLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type config struct {
	Port             string    `yaml:"port"`
	GeneratorBaseURL string    `yaml:"generatorBaseURL"`
	StatsBaseURL     string    `yaml:"statsBaseURL"`
	SystemPrompt     string    `yaml:"systemPrompt"`
	Targets          []string  `yaml:"targets"`
	StatsRPS         float64   `yaml:"statsRPS"`
	StatsBurst       int       `yaml:"statsBurst"`
	LogLevel         string    `yaml:"logLevel"`
	LLM              llmConfig `yaml:"llm"`
}

type ollamaConfig struct {
	BaseLLMConfig `yaml:",inline"`
	Host          string `yaml:"host"`
}

type anthropicConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
	MaxTokens     int    `yaml:"maxTokens"`
}

type openAIConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string                 `yaml:"apiKey"`
	Parameters    services.LLMParameters `yaml:"parameters"`
}

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port             string         `yaml:"port"`
		GeneratorBaseURL string         `yaml:"generatorBaseURL"`
		StatsBaseURL     string         `yaml:"statsBaseURL"`
		SystemPrompt     string         `yaml:"systemPrompt"`
		Targets          []string       `yaml:"targets"`
		StatsRPS         float64        `yaml:"statsRPS"`
		StatsBurst       int            `yaml:"statsBurst"`
		LogLevel         string         `yaml:"logLevel"`
		LLM              map[string]any `yaml:"llm"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	c.Port = rawConfig.Port
	c.GeneratorBaseURL = rawConfig.GeneratorBaseURL
	c.StatsBaseURL = rawConfig.StatsBaseURL
	c.SystemPrompt = rawConfig.SystemPrompt
	c.Targets = rawConfig.Targets
	c.StatsRPS = rawConfig.StatsRPS
	c.StatsBurst = rawConfig.StatsBurst
	c.LogLevel = rawConfig.LogLevel

	llmProvider, ok := rawConfig.LLM["provider"].(string)
	if !ok {
		return fmt.Errorf("llm provider is required")
	}

	llmRawYAML, err := yaml.Marshal(rawConfig.LLM)
	if err != nil {
		return err
	}

	var llm llmConfig
	switch llmProvider {
	case "ollama":
		llm = &ollamaConfig{}
	case "anthropic":
		llm = &anthropicConfig{}
	case "openai":
		llm = &openAIConfig{}
	default:
		return fmt.Errorf("unknown llm provider: %s", llmProvider)
	}

	if err := yaml.Unmarshal(llmRawYAML, llm); err != nil {
		return err
	}

	c.LLM = llm

	return nil
}

func (o ollamaConfig) newOllama(systemPrompt string) (services.Ollama, error) {
	if o.Model == "" {
		return services.Ollama{}, fmt.Errorf("model is required")
	}

	host := o.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	return services.NewOllama(host, o.Model, systemPrompt), nil
}

func (o ollamaConfig) llm(systemPrompt string, _ *slog.Logger) (handlers.LLM, error) {
	return o.newOllama(systemPrompt)
}

func (o ollamaConfig) generator(systemPrompt string, _ *slog.Logger) (handlers.Generator, error) {
	return o.newOllama(systemPrompt)
}

func (a anthropicConfig) newAnthropic(systemPrompt string) (services.Anthropic, error) {
	if a.Model == "" {
		return services.Anthropic{}, fmt.Errorf("model is required")
	}
	if a.MaxTokens == 0 {
		return services.Anthropic{}, fmt.Errorf("maxTokens is required")
	}

	apiKey := a.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return services.NewAnthropic(apiKey, a.Model, systemPrompt, a.MaxTokens), nil
}

func (a anthropicConfig) llm(systemPrompt string, _ *slog.Logger) (handlers.LLM, error) {
	return a.newAnthropic(systemPrompt)
}

func (a anthropicConfig) generator(systemPrompt string, _ *slog.Logger) (handlers.Generator, error) {
	return a.newAnthropic(systemPrompt)
}

func (o openAIConfig) newOpenAI(systemPrompt string, logger *slog.Logger) (services.OpenAI, error) {
	if o.Model == "" {
		return services.OpenAI{}, fmt.Errorf("model is required")
	}

	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return services.NewOpenAI(apiKey, o.Model, systemPrompt, o.Parameters, logger), nil
}

func (o openAIConfig) llm(systemPrompt string, logger *slog.Logger) (handlers.LLM, error) {
	return o.newOpenAI(systemPrompt, logger)
}

func (o openAIConfig) generator(systemPrompt string, logger *slog.Logger) (handlers.Generator, error) {
	return o.newOpenAI(systemPrompt, logger)
}
