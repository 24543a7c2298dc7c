package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	openaix "github.com/laserhenk/henk-agent/pkg/openaix"
)

// Role selects per-role model overrides. Every role can pin its own model
// and temperature; unset fields fall back to the shared defaults.
type Role string

const (
	RoleSupervisor  Role = "supervisor"
	RoleNeeds       Role = "needs_assessment"
	RoleDesign      Role = "design"
	RoleMeasurement Role = "measurement"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"gpt-4o-mini"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	Organization       string        `envconfig:"ORGANIZATION" split_words:"true"`

	SupervisorModel        string  `envconfig:"SUPERVISOR_MODEL" split_words:"true"`
	NeedsModel             string  `envconfig:"NEEDS_MODEL" split_words:"true"`
	DesignModel            string  `envconfig:"DESIGN_MODEL" split_words:"true"`
	MeasurementModel       string  `envconfig:"MEASUREMENT_MODEL" split_words:"true"`
	ImageModel             string  `envconfig:"IMAGE_MODEL" split_words:"true"`
	SupervisorTemperature  float32 `envconfig:"SUPERVISOR_TEMPERATURE" split_words:"true" default:"-1"`
	NeedsTemperature       float32 `envconfig:"NEEDS_TEMPERATURE" split_words:"true" default:"-1"`
	DesignTemperature      float32 `envconfig:"DESIGN_TEMPERATURE" split_words:"true" default:"-1"`
	MeasurementTemperature float32 `envconfig:"MEASUREMENT_TEMPERATURE" split_words:"true" default:"-1"`
}

// Enabled reports whether a model backend is configured at all. Without an
// API key the whole core runs in deterministic offline mode.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenAIFor resolves the effective model settings for one role.
func (c Config) OpenAIFor(role Role) openaix.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch role {
	case RoleSupervisor:
		if v := strings.TrimSpace(c.SupervisorModel); v != "" {
			modelName = v
		}
		if c.SupervisorTemperature >= 0 {
			temp = c.SupervisorTemperature
		}
	case RoleNeeds:
		if v := strings.TrimSpace(c.NeedsModel); v != "" {
			modelName = v
		}
		if c.NeedsTemperature >= 0 {
			temp = c.NeedsTemperature
		}
	case RoleDesign:
		if v := strings.TrimSpace(c.DesignModel); v != "" {
			modelName = v
		}
		if c.DesignTemperature >= 0 {
			temp = c.DesignTemperature
		}
	case RoleMeasurement:
		if v := strings.TrimSpace(c.MeasurementModel); v != "" {
			modelName = v
		}
		if c.MeasurementTemperature >= 0 {
			temp = c.MeasurementTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openaix.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		Organization:       strings.TrimSpace(c.Organization),
	}
}
