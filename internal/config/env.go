package config

import (
	"strings"

	"github.com/caarlos0/env/v6"
)

// Env holds credentials and CI context read from the environment.
type Env struct {
	ProjectID string `env:"PROJECT_ID"`

	NTAPIKey    string `env:"NT_API_KEY"`
	XAPIKey     string `env:"X_API_KEY"`
	NTSecretKey string `env:"NT_SECRET_KEY"`
	XSecretKey  string `env:"X_SECRET_KEY"`
	TenantKey   string `env:"X_TENANT_KEY"`

	DebugMode string `env:"DEBUG_MODE"`

	Workspace   string `env:"GITHUB_WORKSPACE"`
	Repository  string `env:"GITHUB_REPOSITORY"`
	Ref         string `env:"GITHUB_REF"`
	RefName     string `env:"GITHUB_REF_NAME"`
	HeadRef     string `env:"GITHUB_HEAD_REF"`
	RunID       string `env:"GITHUB_RUN_ID"`
	OutputFile  string `env:"GITHUB_OUTPUT"`
	StepSummary string `env:"GITHUB_STEP_SUMMARY"`
	APIURL      string `env:"GITHUB_API_URL" envDefault:"https://api.github.com"`
}

// LoadEnv parses the process environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, err
	}
	return e, nil
}

// APIKey returns NT_API_KEY, falling back to X_API_KEY.
func (e Env) APIKey() string {
	if e.NTAPIKey != "" {
		return e.NTAPIKey
	}
	return e.XAPIKey
}

// SecretKey returns NT_SECRET_KEY, falling back to X_SECRET_KEY.
func (e Env) SecretKey() string {
	if e.NTSecretKey != "" {
		return e.NTSecretKey
	}
	return e.XSecretKey
}

// Debug reports whether DEBUG_MODE is enabled.
func (e Env) Debug() bool {
	switch strings.ToLower(strings.TrimSpace(e.DebugMode)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// Branch returns the PR head branch when set, else the ref name.
func (e Env) Branch() string {
	if e.HeadRef != "" {
		return e.HeadRef
	}
	return e.RefName
}
