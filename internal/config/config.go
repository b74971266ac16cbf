// Package config loads process configuration for the Switchboard server.
// Everything comes from the environment under the SWITCHBOARD prefix;
// tenant-scoped behavior lives in tenant documents, not here.
package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/switchboard-ai/switchboard/pkg/errdefs"
	"github.com/switchboard-ai/switchboard/pkg/models"
)

// Config holds all process-level configuration.
type Config struct {
	Port      int    `envconfig:"PORT" default:"8080"`
	Version   string `envconfig:"VERSION" default:"0.2.0"`
	TenantDir string `envconfig:"TENANT_DIR" default:"config/tenants"`

	// DeclarationsFile optionally names a JSON document declaring extra
	// agent and MCP server types to register at startup.
	DeclarationsFile string `envconfig:"DECLARATIONS"`

	// RequestTimeout bounds one dispatch end to end, external calls included.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"120s"`

	LLM       LLMConfig       `envconfig:"LLM"`
	Telemetry TelemetryConfig `envconfig:"OTEL"`
}

// LLMConfig configures the completion capability. BaseURL accepts any
// OpenAI-compatible endpoint (OpenRouter, Azure front door, local gateway).
type LLMConfig struct {
	BaseURL string        `envconfig:"BASE_URL" default:"https://api.openai.com/v1"`
	APIKey  string        `envconfig:"API_KEY"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"60s"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool   `envconfig:"ENABLED" default:"false"`
	OTLPEndpoint string `envconfig:"EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"switchboard"`
}

// Load reads configuration from SWITCHBOARD_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("switchboard", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDeclarations reads the optional registration document. An empty path
// yields an empty document; an unreadable or malformed file is a fatal
// configuration error.
func LoadDeclarations(path string) (*models.Declarations, error) {
	if path == "" {
		return &models.Declarations{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errdefs.Configuration("read declarations %s: %v", path, err)
	}
	var decls models.Declarations
	if err := json.Unmarshal(data, &decls); err != nil {
		return nil, errdefs.Configuration("parse declarations %s: %v", path, err)
	}
	return &decls, nil
}
