package domains

// Config is the on-disk shape of the tracked-domain list.
type Config struct {
	Domains map[string]DomainConfig `json:"domains"`
}

// DomainConfig describes one tracked hostname.
type DomainConfig struct {
	Enabled  bool   `json:"enabled"`
	Platform string `json:"platform,omitempty"`
}

// DefaultConfig returns the built-in domain list. All entries start enabled;
// users disable or extend the list through the registry.
func DefaultConfig() *Config {
	return &Config{
		Domains: map[string]DomainConfig{
			"gemini.google.com": {Enabled: true, Platform: "Gemini"},
			"chat.openai.com":   {Enabled: true, Platform: "ChatGPT"},
			"chat.deepseek.com": {Enabled: true, Platform: "DeepSeek"},
			"claude.ai":         {Enabled: true, Platform: "Claude"},
		},
	}
}
