package services

// LLMParameters carries optional sampling parameters forwarded to providers
// that support them. Nil fields keep the provider's defaults.
type LLMParameters struct {
	Temperature      *float32 `yaml:"temperature,omitempty"`
	TopP             *float32 `yaml:"topP,omitempty"`
	Stop             []string `yaml:"stop,omitempty"`
	PresencePenalty  *float32 `yaml:"presencePenalty,omitempty"`
	FrequencyPenalty *float32 `yaml:"frequencyPenalty,omitempty"`
	Seed             *int     `yaml:"seed,omitempty"`
}
