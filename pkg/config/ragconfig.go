package config

import (
	"os"
	"strings"
	"time"
)

// RAGConfig is the §6 environment-variable surface: everything
// cmd/ragserver reads to stand up the HTTP surface and the AI provider
// clients. Field names use the raw env tag (no prefix) since these are
// the exact variable names named by §6, not an application-namespaced
// set like ServerConfig's RAGSERVER_* tags.
type RAGConfig struct {
	Port       int    `json:"port" yaml:"port" env:"PORT"`
	NodeEnv    string `json:"node_env" yaml:"node_env" env:"NODE_ENV"`
	CORSOrigin string `json:"cors_origin" yaml:"cors_origin" env:"CORS_ORIGIN"`
	APIPrefix  string `json:"api_prefix" yaml:"api_prefix" env:"API_PREFIX"`

	OpenAIAPIKey string `json:"openai_api_key" yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	OpenAIOrgID  string `json:"openai_org_id" yaml:"openai_org_id" env:"OPENAI_ORG_ID"`
	GeminiAPIKey string `json:"gemini_api_key" yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	AIProvider   string `json:"ai_provider" yaml:"ai_provider" env:"AI_PROVIDER"`

	DefaultAIModel       string  `json:"default_ai_model" yaml:"default_ai_model" env:"DEFAULT_AI_MODEL"`
	DefaultAITemperature float64 `json:"default_ai_temperature" yaml:"default_ai_temperature" env:"DEFAULT_AI_TEMPERATURE"`
	DefaultAIMaxTokens   int     `json:"default_ai_max_tokens" yaml:"default_ai_max_tokens" env:"DEFAULT_AI_MAX_TOKENS"`
	AIRequestTimeoutMs   int     `json:"ai_request_timeout_ms" yaml:"ai_request_timeout_ms" env:"AI_REQUEST_TIMEOUT"`
	AIMaxRetries         int     `json:"ai_max_retries" yaml:"ai_max_retries" env:"AI_MAX_RETRIES"`
}

// DefaultRAGConfig returns §6's documented defaults.
func DefaultRAGConfig() RAGConfig {
	return RAGConfig{
		Port:                 3001,
		NodeEnv:              "development",
		CORSOrigin:           "*",
		APIPrefix:            "/api",
		AIProvider:           "openai",
		DefaultAIModel:       "gpt-4o-mini",
		DefaultAITemperature: 0.7,
		DefaultAIMaxTokens:   1000,
		AIRequestTimeoutMs:   30000,
		AIMaxRetries:         3,
	}
}

// CORSOrigins splits the comma-separated CORS_ORIGIN variable into its
// component origins, trimming whitespace around each.
func (c RAGConfig) CORSOrigins() []string {
	parts := strings.Split(c.CORSOrigin, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// AIRequestTimeout converts AIRequestTimeoutMs into a time.Duration.
func (c RAGConfig) AIRequestTimeout() time.Duration {
	return time.Duration(c.AIRequestTimeoutMs) * time.Millisecond
}

// IsDevelopment reports whether NODE_ENV selects development mode, which
// §7 uses to gate inclusion of sensitive error details in responses.
func (c RAGConfig) IsDevelopment() bool {
	return c.NodeEnv == "" || c.NodeEnv == "development"
}

// Default lets LoadFromFileWithEnv seed a RAGConfig's built-in defaults
// before the config file and environment layers are applied on top.
func (c RAGConfig) Default() RAGConfig {
	return DefaultRAGConfig()
}

// LoadRAGConfig builds a RAGConfig from defaults, an optional config file
// named by RAG_CONFIG_FILE, and environment variables layered on top, so an
// explicit env var always wins over both the file and the built-in default.
// RAG_CONFIG_FILE is unset in the common case, in which case this behaves
// exactly as before: defaults overridden only by environment variables.
func LoadRAGConfig() (RAGConfig, error) {
	cfg := RAGConfig{}
	if err := LoadFromFileWithEnv(os.Getenv("RAG_CONFIG_FILE"), "", &cfg); err != nil {
		return RAGConfig{}, err
	}
	return cfg, nil
}

// WatchRAGConfig watches RAG_CONFIG_FILE for changes and calls onChange
// with the reloaded RAGConfig whenever its contents change. It is a no-op
// when RAG_CONFIG_FILE is unset, since there is then nothing to watch.
func WatchRAGConfig(cfg *RAGConfig, onChange func(RAGConfig) error) error {
	path := os.Getenv("RAG_CONFIG_FILE")
	if path == "" {
		return nil
	}
	return LoadConfigWithWatch(path, "", cfg, func(reloaded *RAGConfig) error {
		if onChange == nil {
			return nil
		}
		return onChange(*reloaded)
	})
}
